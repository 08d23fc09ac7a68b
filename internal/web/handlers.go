package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/medcopy"
	"github.com/nevindra/medcopy/export"
	"github.com/nevindra/medcopy/ingest"
)

const msgNoConditions = "No conditions found in the file"

type pageData struct {
	Prompt string
}

type conditionsResponse struct {
	Filename   string   `json:"filename"`
	Conditions []string `json:"conditions"`
	Count      int      `json:"count"`
}

type startRequest struct {
	Conditions []string `json:"conditions"`
	Prompt     string   `json:"prompt"`
}

type startResponse struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

type batchResponse struct {
	ID       string           `json:"id"`
	Created  time.Time        `json:"created"`
	Progress medcopy.Progress `json:"progress"`
	Finished bool             `json:"finished"`
	Records  []recordView     `json:"records,omitempty"`
}

type recordView struct {
	Condition string        `json:"condition"`
	Status    string        `json:"status"`
	Content   string        `json:"content,omitempty"`
	HTML      template.HTML `json:"html,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Prompt: s.prompt}); err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleConditions parses an uploaded spreadsheet into conditions.
func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge,
			"File is too large (limit "+sizeLimit(tooLarge.Limit)+")")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	conditions, err := ingest.ParseFile(header.Filename, data)
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Please upload a CSV or Excel file (.csv, .xlsx, .xls)")
		return
	case errors.Is(err, ingest.ErrDecode):
		s.logger.Warn("parse upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, parseErrorMessage(header.Filename))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if conditions == nil {
		conditions = []string{}
	}

	s.logger.Info("conditions parsed", "filename", header.Filename, "count", len(conditions))
	writeJSON(w, http.StatusOK, conditionsResponse{
		Filename:   header.Filename,
		Conditions: conditions,
		Count:      len(conditions),
	})
}

func sizeLimit(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func parseErrorMessage(filename string) string {
	if f, _ := ingest.FormatFromFilename(filename); f == ingest.FormatCSV {
		return "Error parsing CSV file"
	}
	return "Error parsing Excel file"
}

// handleStartBatch starts a run and answers 202 with its id.
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// Re-apply the ingest filter so API callers get the same labels as uploads.
	row := make([]any, len(req.Conditions))
	for i, c := range req.Conditions {
		row[i] = c
	}
	conditions := ingest.Flatten([][]any{row})
	if len(conditions) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"warning": msgNoConditions})
		return
	}

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = s.prompt
	}

	rn := s.start(conditions, prompt)
	writeJSON(w, http.StatusAccepted, startResponse{ID: rn.id, Total: len(conditions)})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*run, bool) {
	rn, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
	}
	return rn, ok
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	progress, records, finished := rn.snapshot()

	resp := batchResponse{
		ID:       rn.id,
		Created:  rn.created,
		Progress: progress,
		Finished: finished,
	}
	for _, rec := range records {
		v := recordView{Condition: rec.Label, Status: rec.Status()}
		if rec.Outcome.Succeeded {
			v.Content = rec.Outcome.Content
			v.HTML = renderMarkdown(rec.Outcome.Content)
		} else {
			v.Error = rec.Outcome.Error
		}
		resp.Records = append(resp.Records, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents streams progress snapshots as Server-Sent Events. Every
// change is sent as a "progress" event; a final "done" event carries the
// last snapshot once the run has finished.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	changed, release := rn.subscribe()
	defer release()

	send := func(event string) {
		p, _, _ := rn.snapshot()
		data, _ := json.Marshal(p)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	send("progress")
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			send("progress")
		case <-rn.done:
			send("done")
			return
		}
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	_, records, finished := rn.snapshot()
	if !finished {
		writeError(w, http.StatusConflict, "batch is still running")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, records)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, records)
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format+"; supported: csv, xlsx")
		return
	}
	if err != nil {
		s.logger.Error("export", "batch", rn.id, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format)))
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nevindra/medcopy"
	"github.com/nevindra/medcopy/export"
	"github.com/nevindra/medcopy/relay"
)

// fakeCompleter answers "## <label>" and fails labels starting with "bad".
// When gate is non-nil every call blocks until it is closed.
type fakeCompleter struct {
	gate chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, msgs []medcopy.ChatMessage, _ string, _ float64) medcopy.Outcome {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return medcopy.Failure(medcopy.KindUnclassified, ctx.Err().Error())
		}
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, msgs[0].Content)
	f.mu.Unlock()

	label := strings.TrimPrefix(msgs[1].Content, "Medical condition: ")
	if strings.HasPrefix(label, "bad") {
		return medcopy.Failure(medcopy.KindQuotaExceeded, "OpenAI API quota exceeded")
	}
	return medcopy.Success("## "+label+"\n\nSome <b>copy</b>.", medcopy.Usage{TotalTokens: 1})
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return do(t, h, http.MethodPost, "/api/conditions", buf.Bytes(), mw.FormDataContentType())
}

func startBatch(t *testing.T, h http.Handler, conditions []string, prompt string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(startRequest{Conditions: conditions, Prompt: prompt})
	return do(t, h, http.MethodPost, "/api/batches", body, "application/json")
}

func startedID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp startResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.ID
}

func TestIndex(t *testing.T) {
	s := New(&fakeCompleter{})
	rec := do(t, s, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Condition Batch Processor") {
		t.Error("page title missing")
	}
	if !strings.Contains(body, "highly skilled medical copywriter") {
		t.Error("default prompt not pre-filled")
	}
	if strings.Contains(body, "condition's name") {
		t.Error("prompt should be HTML-escaped in the textarea")
	}

	if rec := do(t, s, http.MethodGet, "/nope", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestConditionsUpload(t *testing.T) {
	s := New(&fakeCompleter{})
	rec := upload(t, s, "conditions.csv", "Asthma,,  \nDiabetes mellitus  \n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp conditionsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Filename != "conditions.csv" || resp.Count != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Conditions[0] != "Asthma" || resp.Conditions[1] != "Diabetes mellitus" {
		t.Errorf("conditions = %q", resp.Conditions)
	}
}

func TestConditionsUploadErrors(t *testing.T) {
	s := New(&fakeCompleter{})

	rec := upload(t, s, "notes.txt", "Asthma")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "CSV or Excel") {
		t.Errorf("unsupported: %d %s", rec.Code, rec.Body.String())
	}

	rec = upload(t, s, "book.xlsx", "not a workbook")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Error parsing Excel file") {
		t.Errorf("corrupt: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/conditions", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file: %d", rec.Code)
	}
}

func TestConditionsUploadTooLarge(t *testing.T) {
	s := New(&fakeCompleter{}, WithMaxUploadBytes(512))
	rec := upload(t, s, "conditions.csv", strings.Repeat("Asthma\n", 200))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "too large (limit 512 bytes)") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = upload(t, New(&fakeCompleter{}), "conditions.csv", strings.Repeat("Asthma\n", 200))
	if rec.Code != http.StatusOK {
		t.Errorf("default limit: status = %d", rec.Code)
	}
}

func TestSizeLimit(t *testing.T) {
	if got := sizeLimit(DefaultMaxUploadBytes); got != "32 MB" {
		t.Errorf("sizeLimit(default) = %q", got)
	}
	if got := sizeLimit(100); got != "100 bytes" {
		t.Errorf("sizeLimit(100) = %q", got)
	}
}

func TestConditionsUploadEmpty(t *testing.T) {
	s := New(&fakeCompleter{})
	rec := upload(t, s, "empty.csv", " , \n\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"conditions":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStartBatchNoConditions(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc)
	for _, conds := range [][]string{nil, {}, {"", "   "}} {
		rec := startBatch(t, s, conds, "p")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "No conditions found in the file") {
			t.Errorf("body = %s", rec.Body.String())
		}
	}
	if s.runs.len() != 0 {
		t.Error("no run should be registered")
	}
}

func TestStartBatchInvalidJSON(t *testing.T) {
	s := New(&fakeCompleter{})
	rec := do(t, s, http.MethodPost, "/api/batches", []byte("{"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBatchLifecycle(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc)

	id := startedID(t, startBatch(t, s, []string{"Asthma", "bad-Gout", " Lupus "}, "Write copy."))
	s.Wait()

	rec := do(t, s, http.MethodGet, "/api/batches/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		ID       string           `json:"id"`
		Progress medcopy.Progress `json:"progress"`
		Finished bool             `json:"finished"`
		Records  []recordView     `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Finished || resp.ID != id {
		t.Fatalf("resp = %+v", resp)
	}
	want := medcopy.Progress{Total: 3, Completed: 3, Succeeded: 2, Failed: 1}
	if resp.Progress != want {
		t.Errorf("progress = %+v, want %+v", resp.Progress, want)
	}
	if len(resp.Records) != 3 {
		t.Fatalf("records = %d", len(resp.Records))
	}
	if resp.Records[0].Condition != "Asthma" || resp.Records[1].Condition != "bad-Gout" || resp.Records[2].Condition != "Lupus" {
		t.Errorf("order not preserved: %+v", resp.Records)
	}
	if !strings.Contains(string(resp.Records[0].HTML), "<h2>Asthma</h2>") {
		t.Errorf("markdown not rendered: %q", resp.Records[0].HTML)
	}
	if strings.Contains(string(resp.Records[0].HTML), "<b>copy</b>") {
		t.Errorf("raw HTML passed through: %q", resp.Records[0].HTML)
	}
	if resp.Records[1].Status != "error" || resp.Records[1].Error != "OpenAI API quota exceeded" {
		t.Errorf("failed record = %+v", resp.Records[1])
	}

	fc.mu.Lock()
	for _, p := range fc.prompts {
		if p != "Write copy." {
			t.Errorf("system prompt = %q", p)
		}
	}
	fc.mu.Unlock()
}

func TestBatchUsesDefaultPrompt(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc, WithDefaultPrompt("default prompt"))
	startedID(t, startBatch(t, s, []string{"Asthma"}, "   "))
	s.Wait()

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.prompts) != 1 || fc.prompts[0] != "default prompt" {
		t.Errorf("prompts = %q", fc.prompts)
	}
}

func TestBatchNotFound(t *testing.T) {
	s := New(&fakeCompleter{})
	for _, path := range []string{"/api/batches/missing", "/api/batches/missing/events", "/api/batches/missing/export"} {
		if rec := do(t, s, http.MethodGet, path, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestExport(t *testing.T) {
	fc := &fakeCompleter{gate: make(chan struct{})}
	s := New(fc)
	id := startedID(t, startBatch(t, s, []string{"Asthma", "bad-Gout"}, "p"))

	rec := do(t, s, http.MethodGet, "/api/batches/"+id+"/export", nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("export while running = %d, want 409", rec.Code)
	}

	close(fc.gate)
	s.Wait()

	rec = do(t, s, http.MethodGet, "/api/batches/"+id+"/export?format=csv", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "medical-copy-results.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	rn, _ := s.runs.get(id)
	_, records, _ := rn.snapshot()
	if !bytes.Equal(rec.Body.Bytes(), export.CSV(records)) {
		t.Errorf("csv body = %q", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/batches/"+id+"/export?format=xlsx", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "spreadsheetml") {
		t.Errorf("xlsx: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("xlsx body is not a zip archive")
	}

	rec = do(t, s, http.MethodGet, "/api/batches/"+id+"/export?format=pdf", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("pdf status = %d", rec.Code)
	}
}

func TestEvents(t *testing.T) {
	fc := &fakeCompleter{gate: make(chan struct{})}
	s := New(fc)
	srv := httptest.NewServer(s)
	defer srv.Close()

	id := startedID(t, startBatch(t, s, []string{"a", "b", "c"}, "p"))

	resp, err := http.Get(srv.URL + "/api/batches/" + id + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	close(fc.gate)

	var (
		events []string
		last   medcopy.Progress
		event  string
	)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
			events = append(events, event)
		case strings.HasPrefix(line, "data: "):
			var p medcopy.Progress
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &p); err != nil {
				t.Fatalf("bad data line %q: %v", line, err)
			}
			if p.Completed != p.Succeeded+p.Failed || p.Completed > p.Total {
				t.Errorf("inconsistent snapshot %+v", p)
			}
			if p.Completed < last.Completed {
				t.Errorf("progress went backwards: %+v after %+v", p, last)
			}
			last = p
		}
	}
	s.Wait()

	if len(events) < 2 || events[0] != "progress" || events[len(events)-1] != "done" {
		t.Errorf("events = %v", events)
	}
	if !last.Done() || last.Total != 3 {
		t.Errorf("final snapshot = %+v", last)
	}
}

func TestRelayMounted(t *testing.T) {
	s := New(&fakeCompleter{}, WithRelay(relay.DefaultPath, relay.NewHandler(nil)))

	rec := do(t, s, http.MethodGet, "/api/openai", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "OpenAI API endpoint is running") {
		t.Errorf("GET relay: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/openai", []byte(`{}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST relay without messages: %d", rec.Code)
	}
}

func TestEndToEndThroughRelay(t *testing.T) {
	upstream := providerFunc(func(_ context.Context, req medcopy.ChatRequest) (medcopy.ChatResponse, error) {
		return medcopy.ChatResponse{Role: medcopy.RoleAssistant, Content: "copy for " + req.Messages[1].Content}, nil
	})

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(relay.NewClient(srv.URL+relay.DefaultPath, relay.WithHTTPClient(srv.Client())),
		WithRelay(relay.DefaultPath, relay.NewHandler(upstream)))
	mux.Handle("/", s)

	id := startedID(t, startBatch(t, s, []string{"Asthma", "Gout"}, "p"))
	s.Wait()

	rn, _ := s.runs.get(id)
	p, records, finished := rn.snapshot()
	if !finished || p.Succeeded != 2 {
		t.Fatalf("progress = %+v", p)
	}
	if records[1].Outcome.Content != "copy for Medical condition: Gout" {
		t.Errorf("record = %+v", records[1])
	}
}

type providerFunc func(context.Context, medcopy.ChatRequest) (medcopy.ChatResponse, error)

func (f providerFunc) Name() string { return "func" }
func (f providerFunc) Chat(ctx context.Context, req medcopy.ChatRequest) (medcopy.ChatResponse, error) {
	return f(ctx, req)
}

func TestRegistryEviction(t *testing.T) {
	g := newRegistry(2)

	running := newRun("running", 1)
	g.add(running)
	for _, id := range []string{"a", "b", "c"} {
		r := newRun(id, 1)
		r.finish(nil)
		g.add(r)
	}

	if _, ok := g.get("running"); !ok {
		t.Error("running batch must not be evicted")
	}
	if _, ok := g.get("a"); ok {
		t.Error("oldest finished run should be evicted")
	}
	if _, ok := g.get("c"); !ok {
		t.Error("newest run should be kept")
	}
	if g.len() != 2 {
		t.Errorf("len = %d, want 2", g.len())
	}
}

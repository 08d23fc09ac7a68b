package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nevindra/medcopy"
	"github.com/nevindra/medcopy/export"
	"github.com/nevindra/medcopy/ingest"
	"github.com/nevindra/medcopy/internal/config"
	"github.com/nevindra/medcopy/internal/web"
	"github.com/nevindra/medcopy/relay"
)

func runBatch(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default $MEDCOPY_CONFIG or medcopy.toml)")
	in := fs.String("in", "", "conditions file (.csv, .xlsx, .xls)")
	out := fs.String("out", export.Filename("csv"), "results file (.csv or .xlsx)")
	promptFile := fs.String("prompt-file", "", "system prompt file (default: built-in medical SEO prompt)")
	concurrency := fs.Int("concurrency", -1, "max in-flight requests, 0 = unbounded (default from config)")
	fs.Parse(args)

	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *concurrency < 0 {
		*concurrency = cfg.Batch.Concurrency
	}

	prompt := web.DefaultPrompt
	if *promptFile != "" {
		data, err := os.ReadFile(*promptFile)
		if err != nil {
			return err
		}
		prompt = string(data)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	conditions, err := ingest.ParseFile(*in, data)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := newStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	relayURL := cfg.Relay.URL
	if relayURL == "" {
		url, closeRelay, err := serveLocalRelay(st.relay)
		if err != nil {
			return err
		}
		defer closeRelay()
		relayURL = url
	}

	orch := medcopy.NewOrchestrator(st.completer(relayURL, logger),
		append(st.batchOptions(*concurrency), medcopy.WithBatchLogger(logger))...)

	records, err := orch.Run(ctx, conditions, prompt, func(p medcopy.Progress) {
		fmt.Fprintf(os.Stderr, "\r%3.0f%% %d/%d completed (%d succeeded, %d failed)",
			100*p.Fraction(), p.Completed, p.Total, p.Succeeded, p.Failed)
		if p.Done() {
			fmt.Fprintln(os.Stderr)
		}
	})
	if errors.Is(err, medcopy.ErrNoItems) {
		return fmt.Errorf("no conditions found in %s", *in)
	}
	if err != nil {
		return err
	}

	if err := writeResults(*out, records); err != nil {
		return err
	}
	logger.Info("results written", "path", *out, "records", len(records))
	return nil
}

func writeResults(path string, records []medcopy.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = export.WriteXLSX(f, records)
	} else {
		err = export.WriteCSV(f, records)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// serveLocalRelay serves h on a loopback port so that a standalone batch run
// goes through the same relay semantics as the web server.
func serveLocalRelay(h http.Handler) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(relay.DefaultPath, h)
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	return "http://" + ln.Addr().String() + relay.DefaultPath, func() { srv.Close() }, nil
}

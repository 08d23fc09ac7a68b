// Command medcopy generates patient-facing copy for a list of medical
// conditions, one chat completion per condition.
//
// Usage:
//
//	medcopy [serve]                       run the web UI, batch API and relay endpoint
//	medcopy batch -in conditions.xlsx     run one batch from the command line
//
// Configuration is read from medcopy.toml (or $MEDCOPY_CONFIG) and the
// environment; OPENAI_API_KEY holds the upstream credential.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nevindra/medcopy"
	"github.com/nevindra/medcopy/internal/config"
	"github.com/nevindra/medcopy/observer"
	"github.com/nevindra/medcopy/provider/resolve"
	"github.com/nevindra/medcopy/relay"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, logger)
	case "batch":
		err = runBatch(args, logger)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  medcopy [serve] [-config medcopy.toml] [-addr :3000]
  medcopy batch -in <file.csv|.xlsx|.xls> [-out results.csv|.xlsx] [-prompt-file prompt.txt] [-concurrency n]`)
}

func logLevel() slog.Level {
	if strings.EqualFold(os.Getenv("MEDCOPY_LOG_LEVEL"), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// stack is the wiring shared by both commands.
type stack struct {
	cfg      config.Config
	inst     *observer.Instruments
	shutdown func(context.Context) error
	relay    *relay.Handler
}

func newStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	s := &stack{cfg: cfg, shutdown: func(context.Context) error { return nil }}

	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		inst, shutdown, err := observer.Init(ctx, pricing)
		if err != nil {
			return nil, fmt.Errorf("observer: %w", err)
		}
		s.inst, s.shutdown = inst, shutdown
		logger.Info("observer enabled")
	}

	if !cfg.HasCredential() && resolve.RequiresKey(cfg.LLM.Provider) {
		logger.Warn("OPENAI_API_KEY is not set; the relay will answer 500 until it is configured")
	}
	upstream, err := resolve.Provider(resolve.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		TopP:      cfg.LLM.TopP,
		MaxTokens: cfg.LLM.MaxTokens,
		Seed:      cfg.LLM.Seed,
		Timeout:   cfg.LLM.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if upstream != nil && s.inst != nil {
		upstream = observer.WrapProvider(upstream, cfg.LLM.Model, s.inst)
	}

	s.relay = relay.NewHandler(upstream,
		relay.WithDefaultModel(cfg.LLM.Model),
		relay.WithDefaultTemperature(cfg.LLM.Temperature),
		relay.WithHandlerLogger(logger))
	return s, nil
}

// completer returns the per-item client for relayURL.
func (s *stack) completer(relayURL string, logger *slog.Logger) medcopy.Completer {
	var c medcopy.Completer = relay.NewClient(relayURL,
		relay.WithHTTPClient(&http.Client{Timeout: s.cfg.LLM.Timeout}),
		relay.WithClientLogger(logger))
	if s.inst != nil {
		c = observer.WrapCompleter(c, s.inst)
	}
	return c
}

func (s *stack) batchOptions(concurrency int) []medcopy.BatchOption {
	opts := []medcopy.BatchOption{
		medcopy.WithModel(s.cfg.Batch.Model),
		medcopy.WithTemperature(s.cfg.Batch.Temperature),
		medcopy.WithConcurrency(concurrency),
	}
	if s.inst != nil {
		opts = append(opts, medcopy.WithBatchTracer(observer.NewTracer()))
	}
	return opts
}

func (s *stack) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.shutdown(ctx)
}

// localURL turns a listen address into a URL reachable from this process.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

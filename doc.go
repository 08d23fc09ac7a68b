// Package medcopy generates medical marketing copy in batches.
//
// A batch is an ordered list of condition names plus one system prompt. The
// [Orchestrator] sends one chat completion per condition, all at once, and
// collects the results in input order while publishing running counts:
//
//	client := relay.NewClient("http://localhost:3000/api/openai")
//	orch := medcopy.NewOrchestrator(client, medcopy.WithConcurrency(8))
//
//	records, err := orch.Run(ctx, conditions, prompt, func(p medcopy.Progress) {
//		fmt.Printf("%d/%d done (%d failed)\n", p.Completed, p.Total, p.Failed)
//	})
//
// # Core Interfaces
//
// The root package defines the contracts the rest of the module implements:
//
//   - [Completer]: one no-throw completion exchange (relay.Client)
//   - [Provider]: the upstream LLM backend (provider/openaicompat)
//   - [Tracer]: optional span creation (observer.NewTracer)
//
// # Packages
//
//   - relay: the HTTP boundary that holds the API key, and its client
//   - provider/openaicompat: OpenAI chat completions provider
//   - provider/resolve: builds the upstream provider from config
//   - ingest: CSV / XLSX / XLS upload parsing
//   - export: CSV and XLSX result files
//   - observer: OpenTelemetry instrumentation
package medcopy

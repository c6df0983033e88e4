// ShopScout Agent - Product Extraction and Comparison Workflows in Go
//
// ShopScout Agent powers a product shopping assistant: it turns captured
// product pages into structured analyses, compares products with
// human-in-the-loop input, and answers questions over the collected data.
// The workflows run on a graph-based engine with per-session checkpoints,
// so a session can pause for user input and resume later, even across
// process restarts when backed by a durable store.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/shopscout/agent
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/shopscout/agent/config"
//		"github.com/shopscout/agent/flows"
//		"github.com/shopscout/agent/service"
//		"github.com/shopscout/agent/store/memory"
//	)
//
//	func main() {
//		cfg, err := config.Load("")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		svc, err := service.NewFromSettings(cfg, memory.New())
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ctx := context.Background()
//
//		// Open a comparison session; it pauses for the user's criteria.
//		status, _ := svc.StartCompare(ctx, "노트북", []flows.ProductAnalysis{ /* ... */ })
//		fmt.Println("awaiting:", status.AwaitingInput)
//
//		// Inject the user's answer and resume.
//		status, _ = svc.ResumeCompare(ctx, status.SessionID, service.CompareInput{
//			Criteria: []string{"무게", "배터리"},
//		})
//	}
//
// # Packages
//
//   - graph: the workflow engine. StateGraph builder, per-field reducer
//     schema, compiled Runnable with checkpoint-per-session execution and
//     interrupt-before pauses.
//   - store: checkpoint persistence. Memory, Redis, SQLite and Postgres
//     backends behind one Store interface.
//   - llm: chat message model and the structured Invoker that validates
//     model output against required fields, with JSON repair.
//   - llm/openai: langchaingo-compatible model backed by the OpenAI API.
//   - ocr: image text extraction. OCR.space and Naver Clova providers
//     behind a concurrency-bounded, retrying Batch.
//   - page: sanitizing HTML text and image extraction for product pages.
//   - flows: the summarize, compare and chat workflow definitions, shop
//     domain parsers, and comparison report rendering.
//   - service: the inbound façade. Session lifecycle, human-in-the-loop
//     resumes, and the streaming chat surface.
//   - config: layered settings (defaults, YAML file, environment).
//   - log: leveled logging with a golog adapter.
//
// See the examples directory for runnable demos of the summarize, compare
// and streaming chat flows.
package agent

// Package service is the inbound façade over the workflows: it owns session
// ids and checkpoints, starts and resumes workflow sessions, and exposes the
// streaming chat surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopscout/agent/config"
	"github.com/shopscout/agent/flows"
	"github.com/shopscout/agent/graph"
	"github.com/shopscout/agent/llm"
	"github.com/shopscout/agent/llm/openai"
	"github.com/shopscout/agent/log"
	"github.com/shopscout/agent/ocr"
	"github.com/shopscout/agent/store"
	"github.com/shopscout/agent/store/memory"
)

// ErrSessionNotFound marks lookups for session ids this service never
// issued or already deleted. Node failures inside a run are reported as
// their own errors and never map to this.
var ErrSessionNotFound = errors.New("session not found")

// Deps are the collaborators of the service. Store and Logger are optional;
// they default to an in-memory store and the package default logger.
type Deps struct {
	Invoker  flows.ModelInvoker
	OCR      flows.ImageReader
	Store    store.Store
	Registry *flows.ParserRegistry
	Logger   log.Logger
}

// Service coordinates the summarize, compare and chat workflows over a
// shared checkpoint store. Safe for concurrent use.
type Service struct {
	deps Deps

	summarize    *graph.Runnable
	compare      *graph.Runnable
	quickCompare *graph.Runnable
	chat         *graph.Runnable
}

// New builds a service with all workflows compiled against the shared store.
func New(deps Deps) (*Service, error) {
	if deps.Invoker == nil {
		return nil, errors.New("service: invoker is required")
	}
	if deps.OCR == nil {
		return nil, errors.New("service: ocr is required")
	}
	if deps.Store == nil {
		deps.Store = memory.New()
	}
	if deps.Logger == nil {
		deps.Logger = log.GetDefaultLogger()
	}

	s := &Service{deps: deps}

	var err error
	s.summarize, err = flows.NewSummarizeGraph(flows.SummarizeDeps{
		Invoker:  deps.Invoker,
		OCR:      deps.OCR,
		Registry: deps.Registry,
		Logger:   deps.Logger,
	}).Compile(deps.Store, graph.WithLogger(deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("compiling summarize workflow: %w", err)
	}

	compareDeps := flows.CompareDeps{Invoker: deps.Invoker, Logger: deps.Logger}
	s.compare, err = flows.NewCompareGraph(compareDeps).Compile(deps.Store, graph.WithLogger(deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("compiling compare workflow: %w", err)
	}
	s.quickCompare, err = flows.NewQuickCompareGraph(compareDeps).Compile(deps.Store, graph.WithLogger(deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("compiling quick compare workflow: %w", err)
	}

	s.chat, err = flows.NewChatGraph(flows.ChatDeps{
		Invoker: deps.Invoker,
		Logger:  deps.Logger,
	}).Compile(deps.Store, graph.WithLogger(deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("compiling chat workflow: %w", err)
	}
	return s, nil
}

// NewFromSettings wires the production dependency set: the OpenAI-backed
// invoker and the configured OCR provider.
func NewFromSettings(cfg *config.Settings, checkpoints store.Store) (*Service, error) {
	logger := log.GetDefaultLogger()

	model, err := openai.New(
		openai.WithAPIKey(cfg.LLM.APIKey),
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		}),
	)
	if err != nil {
		return nil, err
	}
	invoker := llm.NewInvoker(model,
		llm.WithProvider(cfg.LLM.Provider),
		llm.WithModelName(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithLogger(logger),
	)

	reader, err := ocr.New(cfg.OCR, cfg.HTTP, logger)
	if err != nil {
		return nil, err
	}

	return New(Deps{
		Invoker: invoker,
		OCR:     reader,
		Store:   checkpoints,
		Logger:  logger,
	})
}

// SummarizeResult is the outcome of a summarize session.
type SummarizeResult struct {
	SessionID       string
	IsValidPage     bool
	ValidationError string
	Analysis        flows.ProductAnalysis
}

// StartSummarize runs the summarize workflow over one captured page and
// returns its analysis. The session id can be used later with GetState.
func (s *Service) StartSummarize(ctx context.Context, url, title, htmlBody string) (*SummarizeResult, error) {
	sessionID := uuid.NewString()

	result, err := s.summarize.Run(ctx, sessionID, graph.State{
		flows.KeyURL:      url,
		flows.KeyTitle:    title,
		flows.KeyHTMLBody: htmlBody,
	})
	if err != nil {
		return nil, err
	}

	analysis, err := flows.AnalysisFromState(result.State)
	if err != nil {
		return nil, fmt.Errorf("decoding analysis for %s: %w", sessionID, err)
	}
	return &SummarizeResult{
		SessionID:       sessionID,
		IsValidPage:     result.State.Bool(flows.KeyIsValidPage),
		ValidationError: result.State.String(flows.KeyValidationError),
		Analysis:        analysis,
	}, nil
}

// CompareStatus is the externally visible state of a compare session.
type CompareStatus struct {
	SessionID string

	// AwaitingInput names the input the session is suspended for:
	// user_criteria, user_priorities, or "" when the session completed.
	AwaitingInput string

	ExtractedCriteria []string
	Done              bool
	Report            flows.ComparisonReport
}

// CompareInput carries the human-in-the-loop answers for a resume. Only the
// populated fields are injected.
type CompareInput struct {
	Criteria   []string
	Priorities map[string]int
}

// StartCompare opens a comparison session over analyzed products. The
// returned status reports which input the session waits for next.
func (s *Service) StartCompare(ctx context.Context, category string, products []flows.ProductAnalysis) (*CompareStatus, error) {
	return s.startCompare(ctx, s.compare, category, products)
}

// StartQuickCompare opens the single-pause variant: one criteria submission,
// priorities derived from its order.
func (s *Service) StartQuickCompare(ctx context.Context, category string, products []flows.ProductAnalysis) (*CompareStatus, error) {
	return s.startCompare(ctx, s.quickCompare, category, products)
}

func (s *Service) startCompare(ctx context.Context, runnable *graph.Runnable, category string, products []flows.ProductAnalysis) (*CompareStatus, error) {
	sessionID := uuid.NewString()

	result, err := runnable.Run(ctx, sessionID, graph.State{
		flows.KeyCategory: category,
		flows.KeyProducts: products,
	})
	if err != nil {
		return nil, err
	}
	return compareStatus(result)
}

// ResumeCompare injects the user's answers into a suspended compare session
// and advances it.
func (s *Service) ResumeCompare(ctx context.Context, sessionID string, input CompareInput) (*CompareStatus, error) {
	return s.resumeCompare(ctx, s.compare, sessionID, input)
}

// ResumeQuickCompare advances a quick compare session.
func (s *Service) ResumeQuickCompare(ctx context.Context, sessionID string, input CompareInput) (*CompareStatus, error) {
	return s.resumeCompare(ctx, s.quickCompare, sessionID, input)
}

func (s *Service) resumeCompare(ctx context.Context, runnable *graph.Runnable, sessionID string, input CompareInput) (*CompareStatus, error) {
	if _, err := s.deps.Store.Get(ctx, sessionID); err != nil {
		return nil, sessionErr(sessionID, err)
	}

	delta := graph.State{}
	if len(input.Criteria) > 0 {
		delta[flows.KeyUserCriteria] = input.Criteria
	}
	if len(input.Priorities) > 0 {
		delta[flows.KeyUserPriorities] = input.Priorities
	}

	result, err := runnable.Run(ctx, sessionID, delta)
	if err != nil {
		return nil, err
	}
	return compareStatus(result)
}

// Report returns the finished comparison report with its rendered markdown
// and HTML forms.
func (s *Service) Report(ctx context.Context, sessionID string) (flows.ComparisonReport, string, string, error) {
	result, err := s.GetState(ctx, sessionID)
	if err != nil {
		return flows.ComparisonReport{}, "", "", err
	}
	report, err := flows.ReportFromState(result.State)
	if err != nil {
		return flows.ComparisonReport{}, "", "", fmt.Errorf("decoding report for %s: %w", sessionID, err)
	}
	md := flows.RenderReportMarkdown(report)
	return report, md, flows.RenderReportHTML(report), nil
}

// GetState returns the checkpoint view of any session.
func (s *Service) GetState(ctx context.Context, sessionID string) (*graph.Result, error) {
	result, err := s.summarize.State(ctx, sessionID)
	if err != nil {
		return nil, sessionErr(sessionID, err)
	}
	return result, nil
}

// DeleteSession removes a session's checkpoint.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.deps.Store.Delete(ctx, sessionID); err != nil {
		return sessionErr(sessionID, err)
	}
	return nil
}

func compareStatus(result *graph.Result) (*CompareStatus, error) {
	status := &CompareStatus{
		SessionID:         result.SessionID,
		AwaitingInput:     awaitedInput(result.PendingNode),
		ExtractedCriteria: result.State.StringSlice(flows.KeyExtractedCriteria),
		Done:              result.Done,
	}
	if result.Done {
		report, err := flows.ReportFromState(result.State)
		if err != nil {
			return nil, fmt.Errorf("decoding report for %s: %w", result.SessionID, err)
		}
		status.Report = report
	}
	return status, nil
}

// awaitedInput maps a pending interrupt node to the state field it waits
// for.
func awaitedInput(pendingNode string) string {
	switch pendingNode {
	case flows.NodeCollectCriteria:
		return flows.KeyUserCriteria
	case flows.NodeCollectPriorities:
		return flows.KeyUserPriorities
	default:
		return ""
	}
}

func sessionErr(sessionID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return err
}

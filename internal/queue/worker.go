package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reyeslabs/lexigrade/internal/database"
	"github.com/reyeslabs/lexigrade/internal/engine"
	"github.com/reyeslabs/lexigrade/internal/metrics"
	"github.com/reyeslabs/lexigrade/internal/models"
	"github.com/reyeslabs/lexigrade/internal/ollama"
)

// GrammarChecker finds grammar issues in a text. Satisfied by
// checker.Client; nil disables grammar checking in the pipeline.
type GrammarChecker interface {
	Check(ctx context.Context, text, language string) ([]models.GrammarIssue, error)
}

// Tagger tokenizes and POS-tags a text. Satisfied by tagger.Client; nil
// falls back to the engine's built-in splitter.
type Tagger interface {
	Tag(ctx context.Context, text, language string) (*models.Tokenization, error)
}

// Enhancer explains and extends grammar issues with an LLM, and grades a
// submission against a reference passage for content accuracy. Satisfied
// by ollama.Client; nil disables the stage-2 enhancement tasks.
type Enhancer interface {
	EnhanceIssues(ctx context.Context, text string, issues []models.GrammarIssue) ([]models.GrammarIssue, error)
	ValidateContent(ctx context.Context, answer, reference string) (*ollama.ContentValidation, error)
}

// Worker wraps the Asynq server for processing scoring tasks.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	db          *database.DB
	engine      *engine.Engine
	checker     GrammarChecker
	tagger      Tagger
	enhancer    Enhancer
	queueClient *Client
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.BusinessMetrics
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a new queue worker. checker, tagger, and enhancer are
// optional; a nil enhancer skips stage 2 entirely.
func NewWorker(
	cfg WorkerConfig,
	db *database.DB,
	eng *engine.Engine,
	checker GrammarChecker,
	tagger Tagger,
	enhancer Enhancer,
	queueClient *Client,
	businessMetrics *metrics.BusinessMetrics,
) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		Concurrency: cfg.Concurrency,

		// Scoring is cheap CPU work and should not starve behind slow
		// Ollama calls, so it carries the higher weight.
		Queues: map[string]int{
			QueueScoring:     6,
			QueueEnhancement: 3,
		},
		StrictPriority: false,

		RetryDelayFunc: retryDelay,

		ShutdownTimeout: 30 * time.Second,

		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			slog.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
	}

	w := &Worker{
		server:      asynq.NewServer(redisOpt, serverCfg),
		mux:         asynq.NewServeMux(),
		db:          db,
		engine:      eng,
		checker:     checker,
		tagger:      tagger,
		enhancer:    enhancer,
		queueClient: queueClient,
		concurrency: cfg.Concurrency,
		logger:      slog.Default(),
		metrics:     businessMetrics,
	}

	w.registerHandlers()

	return w
}

// retryDelay backs off aggressively for Ollama enhancement tasks and keeps
// scoring retries short.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() == TypeEnhanceIssues {
		// 30s, 1m, 2m, 5m, 10m, 20m, 30m, 1h, 2h, 4h
		delays := []time.Duration{
			30 * time.Second,
			1 * time.Minute,
			2 * time.Minute,
			5 * time.Minute,
			10 * time.Minute,
			20 * time.Minute,
			30 * time.Minute,
			1 * time.Hour,
			2 * time.Hour,
			4 * time.Hour,
		}
		if n < len(delays) {
			return delays[n]
		}
		return delays[len(delays)-1]
	}

	// Scoring tasks: 30s, 1m, 5m
	delays := []time.Duration{
		30 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
	}
	if n < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

// registerHandlers registers all task handlers with the worker
func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeAnalyzeText, w.handleAnalyzeText)
	w.mux.HandleFunc(TypeEnhanceIssues, w.handleEnhanceIssues)
}

// Start starts the worker to begin processing tasks. Blocking.
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queues", map[string]int{QueueScoring: 6, QueueEnhancement: 3},
		"enhancement_enabled", w.enhancer != nil,
	)

	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task type constants
const (
	TypeAnalyzeText   = "lexigrade:analyze_text"
	TypeEnhanceIssues = "lexigrade:enhance_issues"
)

// Queue names, highest priority first.
const (
	QueueScoring     = "scoring"
	QueueEnhancement = "ai-enhancement"
)

// AnalyzeTextPayload is the payload for stage-1 offline scoring.
type AnalyzeTextPayload struct {
	AnalysisID string `json:"analysis_id"`
	Kind       string `json:"kind"` // proficiency | complexity
	Text       string `json:"text"`
	Language   string `json:"language,omitempty"`

	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// EnhanceIssuesPayload is the payload for stage-2 AI issue enhancement.
type EnhanceIssuesPayload struct {
	AnalysisID string `json:"analysis_id"`

	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
	}
}

// EnqueueAnalyzeText enqueues a stage-1 scoring task. The analysis record
// must already exist in the database in the queued stage.
func (c *Client) EnqueueAnalyzeText(ctx context.Context, analysisID, kind, text, language string) (string, error) {
	payload := AnalyzeTextPayload{
		AnalysisID: analysisID,
		Kind:       kind,
		Text:       text,
		Language:   language,
		EnqueuedAt: time.Now().UnixNano(), // for queue wait metrics
	}

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeText),
			attribute.String("analysis_id", analysisID),
			attribute.String("analysis_kind", kind),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeAnalyzeText, payloadBytes, asynq.TaskID(analysisID))

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(2 * time.Minute),
		asynq.Queue(QueueScoring),
		asynq.Retention(7 * 24 * time.Hour),
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue analyze task: %w", err)
	}

	return info.ID, nil
}

// EnqueueEnhanceIssues enqueues a stage-2 AI enhancement task for an
// analysis that already has its offline verdict.
func (c *Client) EnqueueEnhanceIssues(ctx context.Context, analysisID string) (string, error) {
	payload := EnhanceIssuesPayload{
		AnalysisID: analysisID,
		EnqueuedAt: time.Now().UnixNano(),
	}

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeEnhanceIssues),
			attribute.String("analysis_id", analysisID),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := analysisID + "-enhance"
	task := asynq.NewTask(TypeEnhanceIssues, payloadBytes, asynq.TaskID(taskID))

	opts := []asynq.Option{
		asynq.MaxRetry(10), // high retry tolerance for Ollama
		asynq.Timeout(10 * time.Minute),
		asynq.Queue(QueueEnhancement),
		asynq.Retention(7 * 24 * time.Hour),
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue enhance task: %w", err)
	}

	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

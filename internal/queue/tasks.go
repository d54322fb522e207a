package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/reyeslabs/lexigrade/internal/engine"
	"github.com/reyeslabs/lexigrade/internal/models"
	"github.com/reyeslabs/lexigrade/internal/tracing"
)

// BuildRequest assembles an engine request from the collaborators that are
// configured and reachable. Collaborator failures degrade the request
// instead of failing it: a dead tagger means built-in tokenization, a dead
// checker means no grammar issues.
func BuildRequest(ctx context.Context, checker GrammarChecker, tagger Tagger, text, language string) engine.AnalysisRequest {
	req := engine.AnalysisRequest{
		Text:     text,
		Language: language,
	}

	resolvedLang := engine.NormalizeLanguage(language)
	if resolvedLang == "" {
		resolvedLang = engine.DetectLanguage(text)
	}

	if tagger != nil {
		if tok, err := tagger.Tag(ctx, text, resolvedLang); err == nil {
			req.Tokenization = tok
		}
	}

	if checker != nil {
		if issues, err := checker.Check(ctx, text, resolvedLang); err == nil {
			req.Issues = issues
		}
	}

	return req
}

// handleAnalyzeText runs stage-1 offline scoring: collaborators, feature
// extraction, classification, verdict composition, persistence. On success
// it enqueues stage-2 enhancement when an enhancer is configured.
func (w *Worker) handleAnalyzeText(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeTextPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	queueWait := queueWaitTime(payload.EnqueuedAt)

	ctx, span := tracing.Resume(ctx, payload.TraceID, payload.SpanID, "asynq.task.analyze",
		attribute.String("task.type", TypeAnalyzeText),
		attribute.String("analysis.id", payload.AnalysisID),
		attribute.String("analysis.kind", payload.Kind),
		attribute.Int("text.length", len(payload.Text)),
		attribute.Float64("queue.wait_time_seconds", queueWait.Seconds()),
	)
	defer span.End()

	w.logger.Info("scoring text",
		"analysis_id", payload.AnalysisID,
		"kind", payload.Kind,
		"text_length", len(payload.Text),
		"queue_wait_seconds", queueWait.Seconds(),
	)

	analysis, err := w.db.GetAnalysis(payload.AnalysisID)
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis: %w", err)
	}

	started := time.Now()
	req := BuildRequest(ctx, w.checker, w.tagger, payload.Text, payload.Language)

	var provenance string
	switch payload.Kind {
	case models.KindProficiency:
		verdict, err := w.engine.AnalyzeProficiency(ctx, req)
		if err != nil {
			return w.failAnalysis(analysis, err)
		}
		analysis.Proficiency = verdict
		provenance = verdict.Classification.Provenance
	case models.KindComplexity:
		verdict, err := w.engine.AnalyzeComplexity(ctx, req)
		if err != nil {
			return w.failAnalysis(analysis, err)
		}
		analysis.Complexity = verdict
		provenance = verdict.Classification.Provenance
	default:
		// Unknown kind is permanent; retrying cannot fix the payload.
		return w.failAnalysis(analysis, fmt.Errorf("unknown analysis kind %q", payload.Kind))
	}

	analysis.Issues = req.Issues
	analysis.Stage = models.StageScored
	analysis.LastError = ""

	if err := w.db.UpdateAnalysis(analysis); err != nil {
		return fmt.Errorf("failed to save scored analysis: %w", err)
	}

	if w.metrics != nil {
		w.metrics.ObserveDuration(ctx, payload.Kind, time.Since(started))
		w.metrics.AnalysesTotal.WithLabelValues(payload.Kind, provenance, "success").Inc()
		if provenance == models.ProvenanceHeuristic {
			w.metrics.ModelFallbacksTotal.WithLabelValues(payload.Kind).Inc()
		}
		for _, issue := range req.Issues {
			w.metrics.GrammarIssuesTotal.WithLabelValues(issue.Type).Inc()
		}
	}

	w.logger.Info("offline scoring saved",
		"analysis_id", payload.AnalysisID,
		"kind", payload.Kind,
		"provenance", provenance,
	)

	// Stage 2 only makes sense for writing samples that have findings to
	// explain or a reference passage to grade against.
	wantsStage2 := len(req.Issues) > 0 || analysis.ReferenceText != ""
	if w.enhancer != nil && w.queueClient != nil && payload.Kind == models.KindProficiency && wantsStage2 {
		if _, err := w.queueClient.EnqueueEnhanceIssues(ctx, payload.AnalysisID); err != nil {
			// Enhancement is best effort; the offline verdict already stands.
			w.logger.Error("failed to enqueue enhancement", "analysis_id", payload.AnalysisID, "error", err)
		}
	}

	return nil
}

// handleEnhanceIssues runs stage-2 AI enhancement: the LLM explains the
// detected issues and may add findings, the grammar score is recomputed
// over the extended list, and when the analysis carries a reference
// passage the submission is graded against it for content accuracy.
func (w *Worker) handleEnhanceIssues(ctx context.Context, t *asynq.Task) error {
	var payload EnhanceIssuesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	queueWait := queueWaitTime(payload.EnqueuedAt)

	ctx, span := tracing.Resume(ctx, payload.TraceID, payload.SpanID, "asynq.task.enhance",
		attribute.String("task.type", TypeEnhanceIssues),
		attribute.String("analysis.id", payload.AnalysisID),
		attribute.Int("retry_count", retryCount),
		attribute.Float64("queue.wait_time_seconds", queueWait.Seconds()),
	)
	defer span.End()

	w.logger.Info("enhancing issues with AI",
		"analysis_id", payload.AnalysisID,
		"retry_count", retryCount,
		"queue_wait_seconds", queueWait.Seconds(),
	)

	analysis, err := w.db.GetAnalysis(payload.AnalysisID)
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis: %w", err)
	}
	if analysis.Proficiency == nil {
		return fmt.Errorf("analysis %s has no proficiency verdict to enhance", payload.AnalysisID)
	}

	enhanced, err := w.enhancer.EnhanceIssues(ctx, analysis.Text, analysis.Issues)
	if err != nil {
		if w.metrics != nil {
			w.metrics.EnhancementsTotal.WithLabelValues("error").Inc()
		}
		if isRetriableError(err) {
			w.logger.Warn("retriable enhancement error, will retry",
				"analysis_id", payload.AnalysisID,
				"error", err,
				"retry_count", retryCount,
			)
			return err // let asynq retry
		}
		w.logger.Error("permanent enhancement error", "analysis_id", payload.AnalysisID, "error", err)
		return fmt.Errorf("failed to enhance issues: %w", err)
	}

	// Re-score grammar over the combined list. Offsets of AI-added issues
	// are zero, which the scorer never reads.
	combined := append(append([]models.GrammarIssue{}, analysis.Issues...), enhanced...)
	analysis.Issues = combined
	analysis.Proficiency.GrammarScore = w.engine.ScoreGrammar(combined, analysis.Proficiency.WordCount)
	analysis.Proficiency.Metrics.GrammarAccuracy = analysis.Proficiency.GrammarScore

	if analysis.ReferenceText != "" {
		validation, err := w.enhancer.ValidateContent(ctx, analysis.Text, analysis.ReferenceText)
		if err != nil {
			if w.metrics != nil {
				w.metrics.EnhancementsTotal.WithLabelValues("error").Inc()
			}
			if isRetriableError(err) {
				w.logger.Warn("retriable content validation error, will retry",
					"analysis_id", payload.AnalysisID,
					"error", err,
					"retry_count", retryCount,
				)
				return err // let asynq retry
			}
			w.logger.Error("permanent content validation error", "analysis_id", payload.AnalysisID, "error", err)
			return fmt.Errorf("failed to validate content: %w", err)
		}
		contentScore := validation.Score
		analysis.Proficiency.ContentScore = &contentScore
		w.logger.Info("content validated",
			"analysis_id", payload.AnalysisID,
			"content_score", contentScore,
			"reason", validation.Reason,
		)
	}

	analysis.Stage = models.StageEnhanced
	analysis.LastError = ""

	if err := w.db.UpdateAnalysis(analysis); err != nil {
		return fmt.Errorf("failed to save enhanced analysis: %w", err)
	}

	if w.metrics != nil {
		w.metrics.EnhancementsTotal.WithLabelValues("success").Inc()
	}

	w.logger.Info("enhancement completed",
		"analysis_id", payload.AnalysisID,
		"added_issues", len(enhanced),
		"retry_count", retryCount,
	)

	return nil
}

// failAnalysis marks the record failed and returns a non-retriable error.
// Scoring is deterministic, so a scoring failure will not heal on retry.
func (w *Worker) failAnalysis(analysis *models.Analysis, cause error) error {
	analysis.Stage = models.StageFailed
	analysis.LastError = cause.Error()
	if err := w.db.UpdateAnalysis(analysis); err != nil {
		w.logger.Error("failed to record analysis failure", "analysis_id", analysis.ID, "error", err)
	}
	if w.metrics != nil {
		w.metrics.AnalysesTotal.WithLabelValues(analysis.Kind, "none", "error").Inc()
	}
	return fmt.Errorf("%v: %w", cause, asynq.SkipRetry)
}

func queueWaitTime(enqueuedAt int64) time.Duration {
	if enqueuedAt <= 0 {
		return 0
	}
	return time.Since(time.Unix(0, enqueuedAt))
}

// isRetriableError reports whether an error looks transient
// (connection/timeout) rather than permanent (invalid input).
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"context deadline exceeded",
		"context canceled",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

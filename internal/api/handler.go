package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/reyeslabs/lexigrade/internal/database"
	"github.com/reyeslabs/lexigrade/internal/engine"
	"github.com/reyeslabs/lexigrade/internal/models"
	"github.com/reyeslabs/lexigrade/internal/queue"
	"github.com/reyeslabs/lexigrade/internal/svm"
)

// Enqueuer is the slice of the queue client the handler needs.
type Enqueuer interface {
	EnqueueAnalyzeText(ctx context.Context, analysisID, kind, text, language string) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	engine      *engine.Engine
	checker     queue.GrammarChecker
	tagger      queue.Tagger
	queueClient Enqueuer
	proficiency *svm.Holder
	complexity  *svm.Holder
	mux         *http.ServeMux
}

// Config collects the handler's collaborators. checker, tagger,
// queueClient, and the model holders are all optional.
type Config struct {
	DB          *database.DB
	Engine      *engine.Engine
	Checker     queue.GrammarChecker
	Tagger      queue.Tagger
	QueueClient Enqueuer
	Proficiency *svm.Holder
	Complexity  *svm.Holder
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(cfg Config) http.Handler {
	h := &Handler{
		db:          cfg.DB,
		engine:      cfg.Engine,
		checker:     cfg.Checker,
		tagger:      cfg.Tagger,
		queueClient: cfg.QueueClient,
		proficiency: cfg.Proficiency,
		complexity:  cfg.Complexity,
		mux:         http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/api/analyze/proficiency", h.handleAnalyzeProficiency)
	h.mux.HandleFunc("/api/analyze/complexity", h.handleAnalyzeComplexity)
	h.mux.HandleFunc("/api/grammar/score", h.handleGrammarScore)
	h.mux.HandleFunc("/api/vocabulary/classify", h.handleClassifyVocabulary)
	h.mux.HandleFunc("/api/analyze", h.handleAnalyzeAsync)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/analyses", h.handleListAnalyses)
	h.mux.HandleFunc("/api/analyses/", h.handleAnalysisOperations)
	h.mux.HandleFunc("/api/evaluation", h.handleEvaluation)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// analyzeRequest is the body of the synchronous scoring endpoints.
type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`

	// ContentScore is an optional externally graded content-accuracy
	// score in [0,100].
	ContentScore *float64 `json:"content_score,omitempty"`
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":            "ok",
		"time":              time.Now().Format(time.RFC3339),
		"proficiency_model": holderAvailable(h.proficiency),
		"complexity_model":  holderAvailable(h.complexity),
	}, http.StatusOK)
}

// decodeAnalyzeRequest validates the common request shape.
func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (analyzeRequest, bool) {
	var req analyzeRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// handleAnalyzeProficiency scores a writing sample synchronously.
func (h *Handler) handleAnalyzeProficiency(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}

	setSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)),
		attribute.String("analysis.kind", models.KindProficiency))

	engineReq := queue.BuildRequest(r.Context(), h.checker, h.tagger, req.Text, req.Language)
	engineReq.ContentScore = req.ContentScore

	result, err := h.engine.AnalyzeProficiency(r.Context(), engineReq)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, map[string]any{
		"result": result,
		"issues": issuesOrEmpty(engineReq.Issues),
	}, http.StatusOK)
}

// handleAnalyzeComplexity scores a reading passage synchronously.
func (h *Handler) handleAnalyzeComplexity(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}

	setSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)),
		attribute.String("analysis.kind", models.KindComplexity))

	engineReq := queue.BuildRequest(r.Context(), h.checker, h.tagger, req.Text, req.Language)
	engineReq.ContentScore = req.ContentScore

	result, err := h.engine.AnalyzeComplexity(r.Context(), engineReq)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, map[string]any{
		"result": result,
		"issues": issuesOrEmpty(engineReq.Issues),
	}, http.StatusOK)
}

// handleGrammarScore scores a caller-supplied issue list without running
// the full pipeline.
func (h *Handler) handleGrammarScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Issues    []models.GrammarIssue `json:"issues"`
		WordCount int                   `json:"word_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.WordCount < 0 {
		respondError(w, "word_count must be non-negative", http.StatusBadRequest)
		return
	}

	respondJSON(w, map[string]any{
		"score":      h.engine.ScoreGrammar(req.Issues, req.WordCount),
		"word_count": req.WordCount,
	}, http.StatusOK)
}

// handleClassifyVocabulary buckets the words of a text into CEFR tiers.
func (h *Handler) handleClassifyVocabulary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text     string `json:"text"`
		Language string `json:"language,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	language := engine.NormalizeLanguage(req.Language)
	if language == "" {
		language = engine.DetectLanguage(req.Text)
	}

	tok := engine.Tokenize(req.Text)
	groups := h.engine.ClassifyVocabulary(tok.Words, language)

	respondJSON(w, map[string]any{
		"language":    language,
		"word_groups": groups,
	}, http.StatusOK)
}

// handleAnalyzeAsync creates an analysis record and queues it for scoring.
func (h *Handler) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.queueClient == nil {
		respondError(w, "Async processing is not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Text     string `json:"text"`
		Kind     string `json:"kind,omitempty"`
		Language string `json:"language,omitempty"`

		// Reference is an optional passage to grade the submission
		// against for content accuracy during AI enhancement.
		Reference string `json:"reference,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = models.KindProficiency
	}
	if req.Kind != models.KindProficiency && req.Kind != models.KindComplexity {
		respondError(w, "kind must be proficiency or complexity", http.StatusBadRequest)
		return
	}

	setSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)),
		attribute.String("analysis.kind", req.Kind))

	analysisID := uuid.NewString()
	now := time.Now().UTC()
	analysis := &models.Analysis{
		ID:            analysisID,
		Kind:          req.Kind,
		Text:          req.Text,
		Language:      engine.NormalizeLanguage(req.Language),
		ReferenceText: strings.TrimSpace(req.Reference),
		Stage:         models.StageQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if analysis.Language == "" {
		analysis.Language = engine.DetectLanguage(req.Text)
	}

	if err := h.db.SaveAnalysis(analysis); err != nil {
		respondError(w, fmt.Sprintf("Failed to create analysis: %v", err), http.StatusInternalServerError)
		return
	}

	taskID, err := h.queueClient.EnqueueAnalyzeText(r.Context(), analysisID, req.Kind, req.Text, analysis.Language)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"job_id":  analysisID,
		"task_id": taskID,
		"status":  models.StageQueued,
	}, http.StatusAccepted)
}

// handleJobStatus handles job status requests
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}
	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	analysis, err := h.db.GetAnalysis(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, "analysis not found", http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"job_id":     jobID,
		"status":     analysis.Stage,
		"created_at": analysis.CreatedAt,
		"updated_at": analysis.UpdatedAt,
	}
	if analysis.Stage == models.StageFailed {
		response["error"] = analysis.LastError
	}
	if analysis.Stage == models.StageScored || analysis.Stage == models.StageEnhanced {
		response["analysis"] = analysis
	}

	respondJSON(w, response, http.StatusOK)
}

// handleListAnalyses handles listing analyses with pagination and an
// optional kind filter.
func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != models.KindProficiency && kind != models.KindComplexity {
		respondError(w, "kind must be proficiency or complexity", http.StatusBadRequest)
		return
	}

	analyses, err := h.db.ListAnalyses(kind, limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	total, err := h.db.CountAnalyses(kind)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"analyses": analyses,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	}, http.StatusOK)
}

// handleAnalysisOperations handles GET and DELETE for specific analyses
func (h *Handler) handleAnalysisOperations(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
	if id == "" {
		respondError(w, "Analysis ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		analysis, err := h.db.GetAnalysis(id)
		if err != nil {
			respondDBError(w, err)
			return
		}
		respondJSON(w, analysis, http.StatusOK)
	case http.MethodDelete:
		if err := h.db.DeleteAnalysis(id); err != nil {
			respondDBError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleEvaluation serves the stored evaluation metadata of the trained
// artifacts. Heuristic-only deployments report both models unavailable.
func (h *Handler) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, map[string]any{
		"proficiency": modelEvaluation(h.proficiency),
		"complexity":  modelEvaluation(h.complexity),
	}, http.StatusOK)
}

func holderAvailable(h *svm.Holder) bool {
	return h != nil && h.Available()
}

func modelEvaluation(holder *svm.Holder) map[string]any {
	if holder == nil {
		return map[string]any{"available": false}
	}
	model, err := holder.Get()
	if err != nil {
		return map[string]any{"available": false}
	}

	eval := map[string]any{
		"available": true,
		"version":   model.Version(),
		"labels":    model.Labels(),
	}
	if m := model.Metrics(); m != nil {
		eval["metrics"] = m
	}
	return eval
}

func respondEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrTextTooShort) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondError(w, err.Error(), http.StatusInternalServerError)
}

func respondDBError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	respondError(w, err.Error(), http.StatusInternalServerError)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}

func issuesOrEmpty(issues []models.GrammarIssue) []models.GrammarIssue {
	if issues == nil {
		return []models.GrammarIssue{}
	}
	return issues
}

// setSpanAttributes decorates the current span when one is recording.
func setSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		span.SetAttributes(attrs...)
	}
}

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/reyeslabs/lexigrade/internal/models"
)

const (
	DefaultModel   = "gpt-oss:20b"
	DefaultTimeout = 360 * time.Second
)

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// New creates a new Ollama client
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(baseURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// GenerateResponse generates a response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	slog.Debug("sending request to ollama", "model", c.model, "timeout", c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})

	if err != nil {
		slog.Warn("ollama generation failed", "error", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	slog.Debug("ollama response received", "chars", len(result))
	return result, nil
}

// enhancedIssue is the shape the enhancement prompt asks the model to emit.
type enhancedIssue struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
}

// EnhanceIssues asks the LLM to explain the detected grammar issues in
// student-friendly language and to surface additional problems the
// rule-based checker missed. The returned issues carry explanations in
// their context field; the original issue list is never mutated.
func (c *Client) EnhanceIssues(ctx context.Context, text string, issues []models.GrammarIssue) ([]models.GrammarIssue, error) {
	summary := make([]string, 0, len(issues))
	for _, issue := range issues {
		summary = append(summary, fmt.Sprintf("- [%s/%s] %s", issue.Type, issue.Severity, issue.Message))
	}

	prompt := fmt.Sprintf(`You are a writing tutor reviewing a student's text. A rule-based grammar checker already found these issues:

%s

Your task:
- For each detected issue, write a one-sentence explanation a student can understand and a concrete suggestion
- Add any significant grammar, word-choice, or clarity problems the checker missed
- Do NOT invent problems in correct text
- Do NOT comment on content, opinions, or facts

Return ONLY a JSON array of objects with fields: type (spelling|grammar|punctuation|style|capitalization), message, explanation, suggestion, severity (error|warning|info). Limit to the 10 most important issues.

Student text:
%s

Issues (JSON array):`, strings.Join(summary, "\n"), text)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var enhanced []enhancedIssue

	// Try to find JSON array in response
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start >= 0 && end > start {
		jsonStr := response[start : end+1]
		if err := json.Unmarshal([]byte(jsonStr), &enhanced); err != nil {
			return nil, fmt.Errorf("failed to parse enhanced issues JSON: %w", err)
		}
	} else {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	if len(enhanced) > 10 {
		enhanced = enhanced[:10]
	}

	result := make([]models.GrammarIssue, 0, len(enhanced))
	for _, e := range enhanced {
		issue := models.GrammarIssue{
			Type:     normalizeIssueType(e.Type),
			Message:  strings.TrimSpace(e.Message),
			Context:  strings.TrimSpace(e.Explanation),
			Severity: normalizeSeverity(e.Severity),
		}
		if s := strings.TrimSpace(e.Suggestion); s != "" {
			issue.Replacements = []string{s}
		}
		if issue.Message == "" {
			continue
		}
		result = append(result, issue)
	}

	return result, nil
}

// ContentValidation is the LLM's judgment of how well a student answer
// covers a reference passage.
type ContentValidation struct {
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	CoveredIdeas []string `json:"covered_ideas"`
	MissingIdeas []string `json:"missing_ideas"`
}

// ValidateContent scores a student answer against a reference passage for
// content accuracy. The score is 0-100.
func (c *Client) ValidateContent(ctx context.Context, answer, reference string) (*ContentValidation, error) {
	prompt := fmt.Sprintf(`You are grading a student's written answer against a reference passage for content accuracy only. Ignore grammar and spelling entirely; a different grader handles those.

Score from 0 to 100 where:
- 90-100 = captures all key ideas of the reference accurately
- 60-89 = captures most key ideas with minor gaps or inaccuracies
- 30-59 = captures some ideas but misses or distorts important ones
- 0-29 = mostly unrelated or contradicts the reference

Provide your assessment in JSON format:
{
  "score": 0-100,
  "reason": "Brief explanation of the score",
  "covered_ideas": ["idea1", "idea2"],
  "missing_ideas": ["idea1", "idea2"]
}

Reference passage:
%s

Student answer:
%s

Return ONLY the JSON object, nothing else:`, reference, answer)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result ContentValidation

	// Try to find JSON object in response
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		jsonStr := response[start : end+1]
		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			return nil, fmt.Errorf("failed to parse content validation JSON: %w", err)
		}
	} else {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Ensure score is within bounds
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}

	// Ensure slices are not nil
	if result.CoveredIdeas == nil {
		result.CoveredIdeas = []string{}
	}
	if result.MissingIdeas == nil {
		result.MissingIdeas = []string{}
	}

	return &result, nil
}

func normalizeIssueType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "spelling", "grammar", "punctuation", "style", "capitalization":
		return strings.ToLower(strings.TrimSpace(t))
	default:
		return "grammar"
	}
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "warning", "info":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return "info"
	}
}

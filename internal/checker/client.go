// Package checker talks to a LanguageTool-compatible grammar checking
// service and maps its matches onto the engine's issue taxonomy.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reyeslabs/lexigrade/internal/models"
)

const (
	DefaultTimeout = 15 * time.Second

	// maxReplacements caps how many suggested replacements we keep per
	// issue; LanguageTool can return dozens for common misspellings.
	maxReplacements = 5
)

// Client is a LanguageTool v2 API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a checker client. baseURL points at the service root, e.g.
// http://localhost:8010.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// checkResponse mirrors the subset of the LanguageTool v2 response we use.
type checkResponse struct {
	Matches []struct {
		Message      string `json:"message"`
		ShortMessage string `json:"shortMessage"`
		Offset       int    `json:"offset"`
		Length       int    `json:"length"`
		Replacements []struct {
			Value string `json:"value"`
		} `json:"replacements"`
		Context struct {
			Text   string `json:"text"`
			Offset int    `json:"offset"`
			Length int    `json:"length"`
		} `json:"context"`
		Rule struct {
			ID          string `json:"id"`
			IssueType   string `json:"issueType"`
			Description string `json:"description"`
			Category    struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"category"`
		} `json:"rule"`
	} `json:"matches"`
}

// languageParam maps the engine's language tags to LanguageTool codes.
func languageParam(language string) string {
	switch language {
	case "tl":
		return "tl-PH"
	case "en", "":
		return "en-US"
	default:
		return language
	}
}

// Check submits text to the service and returns the normalized issue list.
// A text with no findings returns an empty, non-nil slice.
func (c *Client) Check(ctx context.Context, text, language string) ([]models.GrammarIssue, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", languageParam(language))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grammar check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("grammar check returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode check response: %w", err)
	}

	issues := make([]models.GrammarIssue, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		issue := models.GrammarIssue{
			Type:     mapIssueType(m.Rule.IssueType, m.Rule.Category.ID),
			Message:  m.Message,
			Offset:   m.Offset,
			Length:   m.Length,
			Context:  m.Context.Text,
			RuleID:   m.Rule.ID,
			Severity: mapSeverity(m.Rule.IssueType),
		}
		for _, r := range m.Replacements {
			if len(issue.Replacements) >= maxReplacements {
				break
			}
			issue.Replacements = append(issue.Replacements, r.Value)
		}
		issues = append(issues, issue)
	}

	slog.Debug("grammar check complete", "language", language, "issues", len(issues))
	return issues, nil
}

// mapIssueType folds LanguageTool's issue types and rule categories onto
// the engine's five weighted types.
func mapIssueType(issueType, categoryID string) string {
	it := strings.ToLower(issueType)
	cat := strings.ToUpper(categoryID)

	switch {
	case it == "misspelling" || it == "typo" || strings.Contains(it, "spell") || cat == "TYPOS":
		return "spelling"
	case strings.Contains(it, "punctuation") || cat == "PUNCTUATION":
		return "punctuation"
	case it == "style" || cat == "STYLE" || cat == "REDUNDANCY":
		return "style"
	case strings.Contains(cat, "CASING") || strings.Contains(cat, "CAPITAL"):
		return "capitalization"
	default:
		return "grammar"
	}
}

// mapSeverity assigns a severity from the issue type. LanguageTool has no
// native severity, so hard correctness problems rank as errors, stylistic
// findings as warnings, everything else as info.
func mapSeverity(issueType string) string {
	switch strings.ToLower(issueType) {
	case "misspelling", "typo", "grammar":
		return "error"
	case "style", "misc", "redundancy":
		return "warning"
	default:
		return "info"
	}
}

// Available reports whether the service answers its languages listing.
// Used at startup to log whether grammar scoring will see real issues.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/languages", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

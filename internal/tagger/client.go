// Package tagger talks to the external tokenizer/POS-tagger service. When
// it is reachable the engine gets real verb counts for clause density;
// when it is not, callers fall back to the built-in splitter.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/reyeslabs/lexigrade/internal/models"
)

const DefaultTimeout = 10 * time.Second

// Client is an HTTP client for the tagger service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a tagger client. baseURL points at the service root.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

type tagRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type tagResponse struct {
	Tokens []struct {
		Text string `json:"text"`
		POS  string `json:"pos"`
	} `json:"tokens"`
	Sentences []string `json:"sentences"`
}

// Tag tokenizes and POS-tags a text. The returned tokenization carries a
// verb count, which the feature extractor prefers over its conjunction
// proxy for clause density.
func (c *Client) Tag(ctx context.Context, text, language string) (*models.Tokenization, error) {
	body, err := json.Marshal(tagRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tag request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/tag", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tag request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tag request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tagger returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tag response: %w", err)
	}

	tok := &models.Tokenization{
		Words:        make([]string, 0, len(parsed.Tokens)),
		Sentences:    parsed.Sentences,
		HasVerbCount: true,
	}
	for _, t := range parsed.Tokens {
		// Punctuation and numeric tokens are not words for scoring
		// purposes; counting them would skew every per-word ratio.
		if !isAlphaToken(t.Text) {
			continue
		}
		tok.Words = append(tok.Words, t.Text)
		if isVerbTag(t.POS) {
			tok.VerbCount++
		}
	}

	slog.Debug("tagger response", "words", len(tok.Words), "sentences", len(tok.Sentences), "verbs", tok.VerbCount)
	return tok, nil
}

// isVerbTag accepts both Universal Dependencies tags (VERB, AUX) and Penn
// Treebank tags (VB, VBD, VBG, ...).
func isVerbTag(pos string) bool {
	pos = strings.ToUpper(pos)
	return pos == "VERB" || pos == "AUX" || strings.HasPrefix(pos, "VB")
}

// isAlphaToken reports whether every rune in the token is a letter.
func isAlphaToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

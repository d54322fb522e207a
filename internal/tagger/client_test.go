package tagger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagCountsVerbs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tag", r.URL.Path)

		var req tagRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "She runs and he walks.", req.Text)
		assert.Equal(t, "en", req.Language)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tokens": [
				{"text": "She", "pos": "PRON"},
				{"text": "runs", "pos": "VBZ"},
				{"text": "and", "pos": "CCONJ"},
				{"text": "he", "pos": "PRON"},
				{"text": "walks", "pos": "VERB"}
			],
			"sentences": ["She runs and he walks."]
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	tok, err := client.Tag(context.Background(), "She runs and he walks.", "en")
	require.NoError(t, err)

	assert.Equal(t, []string{"She", "runs", "and", "he", "walks"}, tok.Words)
	assert.Equal(t, []string{"She runs and he walks."}, tok.Sentences)
	assert.True(t, tok.HasVerbCount)
	assert.Equal(t, 2, tok.VerbCount)
}

func TestTagFiltersNonAlphabeticTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tokens": [
				{"text": "The", "pos": "DET"},
				{"text": "cat", "pos": "NOUN"},
				{"text": "runs", "pos": "VERB"},
				{"text": ".", "pos": "PUNCT"},
				{"text": "42", "pos": "NUM"},
				{"text": "", "pos": "X"}
			],
			"sentences": ["The cat runs."]
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	tok, err := client.Tag(context.Background(), "The cat runs. 42", "en")
	require.NoError(t, err)

	assert.Equal(t, []string{"The", "cat", "runs"}, tok.Words)
	assert.Equal(t, 1, tok.VerbCount)
}

func TestIsAlphaToken(t *testing.T) {
	assert.True(t, isAlphaToken("cat"))
	assert.True(t, isAlphaToken("Maganda"))
	assert.False(t, isAlphaToken("42"))
	assert.False(t, isAlphaToken("."))
	assert.False(t, isAlphaToken("co-op"))
	assert.False(t, isAlphaToken(""))
}

func TestTagServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Tag(context.Background(), "some text", "en")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestTagUnreachableService(t *testing.T) {
	client := New("http://127.0.0.1:1")
	_, err := client.Tag(context.Background(), "some text", "en")
	assert.Error(t, err)
}

func TestIsVerbTag(t *testing.T) {
	assert.True(t, isVerbTag("VERB"))
	assert.True(t, isVerbTag("AUX"))
	assert.True(t, isVerbTag("VBD"))
	assert.True(t, isVerbTag("vbg"))
	assert.False(t, isVerbTag("NOUN"))
	assert.False(t, isVerbTag("ADJ"))
	assert.False(t, isVerbTag(""))
}

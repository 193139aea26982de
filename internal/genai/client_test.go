package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsFirstCandidate(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello there"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model")
	text, err := c.Generate(context.Background(), []Turn{
		{Role: RoleUser, Text: "earlier"},
		{Role: RoleModel, Text: "reply"},
		{Role: RoleUser, Text: "hi"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello there", text)

	require.Len(t, captured.Contents, 3)
	assert.Equal(t, RoleModel, captured.Contents[1].Role)
	assert.Equal(t, "hi", captured.Contents[2].Parts[0].Text)
}

func TestGenerateSurfacesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m")
	_, err := c.Generate(context.Background(), []Turn{{Role: RoleUser, Text: "hi"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
}

func TestGenerateEmptyCandidatesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m")
	_, err := c.Generate(context.Background(), []Turn{{Role: RoleUser, Text: "hi"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

// Package genai is a thin client for the external reply-generation service.
// The core treats generation as request/response with status-carrying
// errors; model behavior is entirely external.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Role values for conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one entry of the conversation context sent to the service.
type Turn struct {
	Role string
	Text string
}

// Generator produces a reply from an ordered turn sequence.
type Generator interface {
	Generate(ctx context.Context, turns []Turn) (string, error)
}

// StatusError is a generation failure carrying the upstream HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation service returned %d: %s", e.Code, e.Body)
}

// Client calls the generation HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewClient creates a generation client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the turn sequence and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, turns []Turn) (string, error) {
	reqBody := generateRequest{Contents: make([]content, 0, len(turns))}
	for _, t := range turns {
		reqBody.Contents = append(reqBody.Contents, content{
			Role:  t.Role,
			Parts: []part{{Text: t.Text}},
		})
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.BaseURL, c.Model, url.QueryEscape(c.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &StatusError{Code: http.StatusBadGateway, Body: "empty candidate response"}
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}

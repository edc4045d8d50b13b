// Package chatbot answers general will-drafting questions through a hosted
// chat completions model.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"willdraft-go/config"
)

const MaxQueryLength = 500

const (
	InvalidInputReply = "I'm sorry, I couldn't understand that. Please ask a question between 1 and 500 characters."
	UnavailableReply  = "I'm sorry, I'm having trouble answering right now. Please try again in a little while."
)

var systemPrompt = template.Must(template.New("system").Parse(
	`You are the help assistant of {{.Product}}, a service that guides people in {{.Country}} through drafting a last will and testament.
Answer general questions about wills, executors, beneficiaries and asset allocation under Indian succession law in plain language.
Keep answers under {{.MaxWords}} words. You are not a lawyer: for questions about a specific estate or dispute, suggest consulting an advocate.
Today's date is {{.Today}}.`))

type promptData struct {
	Product  string
	Country  string
	MaxWords int
	Today    string
}

// Reply is what the user sees. It is never empty.
type Reply struct {
	Response string `json:"response"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	cfg  config.ChatbotConfig
	http *http.Client
	log  *zap.Logger
	now  func() time.Time
}

func New(cfg config.ChatbotConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log, now: time.Now}
}

// Ask forwards the query to the model. Bad input and backend failures are
// answered with fixed apologies instead of errors.
func (c *Client) Ask(ctx context.Context, query string) Reply {
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n == 0 || n > MaxQueryLength {
		return Reply{Response: InvalidInputReply}
	}

	answer, err := c.complete(ctx, query)
	if err != nil {
		c.log.Warn("chatbot backend failed", zap.Error(err))
		return Reply{Response: UnavailableReply}
	}
	return Reply{Response: answer}
}

func (c *Client) complete(ctx context.Context, query string) (string, error) {
	var prompt bytes.Buffer
	err := systemPrompt.Execute(&prompt, promptData{
		Product:  "WillDraft",
		Country:  "India",
		MaxWords: 200,
		Today:    c.now().Format("2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	payload, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: prompt.String()},
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completions returned %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("empty completion")
	}

	c.log.Debug("chatbot answered", zap.Duration("duration", time.Since(start)))
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

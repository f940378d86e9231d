// Package verify runs the expensive AI step of the pipeline: it asks an
// OpenAI-compatible model to judge previously-collected page markup against a
// batch of WCAG success criteria and parses the strict-JSON reply.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/a11yscan/internal/cache"
)

// DefaultBatchSize is the number of criteria judged per model call.
const DefaultBatchSize = 10

// ChatClient mirrors the subset we need from the OpenAI client for testability.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ErrEmptyResponse indicates the model returned no usable choices.
var ErrEmptyResponse = errors.New("verify: model returned no choices")

// Checker calls the model to verify page markup against success criteria.
type Checker struct {
	Client ChatClient
	Model  string
	// SystemPrompt, when non-empty, overrides the default system message.
	SystemPrompt string
}

// response is the strict JSON contract the model must reply with.
type response struct {
	Results []struct {
		Criterion string `json:"criterion"`
		Status    string `json:"status"`
		Impact    string `json:"impact"`
		Message   string `json:"message"`
		Selector  string `json:"selector"`
	} `json:"results"`
}

// Check judges markup against the given criteria batch. It returns the
// normalized verifications and the total tokens the call consumed. Transport
// and parse failures are returned as errors; the caller decides whether the
// scan counts as failed.
func (c *Checker) Check(ctx context.Context, markup string, criteria []Criterion) ([]cache.Verification, int, error) {
	if c.Client == nil || strings.TrimSpace(c.Model) == "" {
		return nil, 0, errors.New("verify: checker not configured")
	}
	sys := buildSystemMessage()
	if strings.TrimSpace(c.SystemPrompt) != "" {
		sys = c.SystemPrompt
	}
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sys},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(markup, criteria)},
		},
		Temperature: 0.0,
		N:           1,
	}
	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("verify: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, 0, ErrEmptyResponse
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed response
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, 0, fmt.Errorf("verify: decode model reply: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, 0, errors.New("verify: model reply contained no results")
	}
	names := make(map[string]string, len(criteria))
	for _, cr := range criteria {
		names[cr.ID] = cr.Name
	}
	out := make([]cache.Verification, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, cache.Verification{
			Criterion: strings.TrimSpace(r.Criterion),
			Name:      names[strings.TrimSpace(r.Criterion)],
			Status:    normalizeStatus(r.Status),
			Impact:    strings.ToLower(strings.TrimSpace(r.Impact)),
			Message:   strings.TrimSpace(r.Message),
			Selector:  strings.TrimSpace(r.Selector),
		})
	}
	return out, resp.Usage.TotalTokens, nil
}

func buildSystemMessage() string {
	return "You are a WCAG 2.1 accessibility auditor. You receive page markup and a list of success criteria. Respond with strict JSON only: {\"results\":[{\"criterion\":string,\"status\":\"pass|fail|cannot-tell|not-applicable\",\"impact\":\"critical|serious|moderate|minor\",\"message\":string,\"selector\":string}]}. Judge only from the supplied markup; when the markup alone cannot decide, use cannot-tell. Include exactly one result per requested criterion."
}

func buildUserMessage(markup string, criteria []Criterion) string {
	var sb strings.Builder
	sb.WriteString("Verify the following success criteria:\n")
	for _, c := range criteria {
		sb.WriteString(c.ID)
		sb.WriteString(" ")
		sb.WriteString(c.Name)
		sb.WriteString(" (Level ")
		sb.WriteString(string(c.Level))
		sb.WriteString(")\n")
	}
	sb.WriteString("\nPage markup:\n\n")
	sb.WriteString(markup)
	return sb.String()
}

// normalizeStatus maps free-form model statuses onto the four allowed values.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "passed":
		return "pass"
	case "fail", "failed", "violation":
		return "fail"
	case "not-applicable", "n/a", "na", "inapplicable":
		return "not-applicable"
	default:
		return "cannot-tell"
	}
}

// stripCodeFence unwraps a ```json ... ``` fenced reply.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

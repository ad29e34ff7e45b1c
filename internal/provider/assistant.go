package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xonecas/relic-console/internal/constants"
)

// ErrEmptyDraft is returned when the model replies with no source.
var ErrEmptyDraft = errors.New("assistant returned an empty draft")

// Assistant drafts update-rule source. Drafts are only returned to the
// caller; nothing here talks to the gateway.
type Assistant struct {
	provider Provider
	timeout  time.Duration
}

// NewAssistant wraps a provider.
func NewAssistant(p Provider) *Assistant {
	return &Assistant{
		provider: p,
		timeout:  constants.AssistantRequestTimeout,
	}
}

// ProviderName returns the name of the underlying provider.
func (a *Assistant) ProviderName() string {
	return a.provider.Name()
}

// DraftRule asks the model for a new rule. current is the editor's source and
// is sent as context when non-empty.
func (a *Assistant) DraftRule(ctx context.Context, prompt, current string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []Message{{Role: "system", Content: constants.AssistantSystemPrompt}}
	if strings.TrimSpace(current) != "" {
		messages = append(messages, Message{Role: "user", Content: "Current rule:\n" + current})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	reply, err := a.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}

	draft := StripFences(reply)
	if draft == "" {
		return "", ErrEmptyDraft
	}
	return draft, nil
}

// StripFences removes a surrounding markdown code fence, if any, and trims
// blank lines.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	lines = lines[1:] // opening fence, possibly with a language tag
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

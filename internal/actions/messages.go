package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/llmclient"
	"github.com/quickmart/churnguard/internal/logging"
)

const maxMessageLength = 160

// ErrLLMTruncation is the LLMTruncation error kind from §7: the LLM
// returned empty or all-whitespace content. The nudge path (rules.Engine)
// logs and proceeds without a message; the /messages/custom endpoint
// surfaces this as a 500.
var ErrLLMTruncation = errors.New("actions: LLM returned empty or truncated content")

// rotatingTemplates are the fallback templates used when the LLM call
// itself fails. They rotate in one shared sequence whatever the churn
// reasons are. An empty completion is returned as ErrLLMTruncation instead,
// and an over-length one is truncated to 160 characters.
var rotatingTemplates = []string{
	"We noticed you've been away — come back and see what's new!",
	"Your cart is waiting. Finish up before your items sell out!",
	"Still deciding? We saved your favorites and added a little something extra.",
	"It's been a while — here's a reason to come back today.",
}

// MessageGenerator implements rules.MessageGenerator (C6.2): an LLM-backed
// personalized message generator with prompt branching on churn reasons,
// hard truncation at 160 characters, and a rotating-template fallback when
// the LLM call fails (an empty completion is returned as ErrLLMTruncation,
// not replaced by a template). Localization is left as a
// resolved Open Question (see SPEC_FULL.md §9): only English templates and
// prompts are implemented.
type MessageGenerator struct {
	llm    llmclient.Client
	logger logging.Logger
	next   int
}

// NewMessageGenerator builds a MessageGenerator.
func NewMessageGenerator(llm llmclient.Client, logger logging.Logger) *MessageGenerator {
	return &MessageGenerator{llm: llm, logger: logger}
}

// GenerateMessage implements rules.MessageGenerator.
func (g *MessageGenerator) GenerateMessage(ctx context.Context, userID string, churnProbability float64, reasons []string, features map[string]any) (string, error) {
	prompt := g.buildPrompt(userID, churnProbability, reasons, features)

	resp, err := g.llm.Complete(ctx, llmclient.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   60,
	})
	if err != nil {
		// Transport/API failure reaching the LLM at all is DownstreamUnavailable,
		// not LLMTruncation: fall back to a template so callers still get a
		// usable message, per §7's "logged warnings and partial success".
		g.logger.Warn("actions: LLM call failed, using fallback template", "user_id", userID, "error", err.Error())
		return g.fallbackTemplate(), nil
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		// An empty/whitespace completion is the LLMTruncation error kind:
		// surface it upward instead of silently substituting a template.
		return "", ErrLLMTruncation
	}

	text := strings.TrimSpace(resp.Text)
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength]
	}
	return text, nil
}

// buildPrompt branches the prompt wording on the dominant reason family
// (cart abandonment vs. general inactivity) per §4.6.2, and adjusts tone by
// the user's age bracket feature when present.
func (g *MessageGenerator) buildPrompt(userID string, churnProbability float64, reasons []string, features map[string]any) string {
	var sb strings.Builder
	sb.WriteString("Write a short, friendly re-engagement message (max 160 characters) for an online shopper.\n")
	fmt.Fprintf(&sb, "Churn risk: %.2f. Reasons: %s.\n", churnProbability, strings.Join(reasons, ", "))

	if containsAny(reasons, "cart", "abandon") {
		sb.WriteString("Focus on their abandoned cart and encourage them to complete checkout.\n")
	} else {
		sb.WriteString("Focus on re-engagement and highlight something new or relevant to them.\n")
	}

	if tone := ageTone(features); tone != "" {
		sb.WriteString(tone + "\n")
	}

	return sb.String()
}

func ageTone(features map[string]any) string {
	age, ok := features["age"].(float64)
	if !ok {
		return ""
	}
	switch {
	case age < 25:
		return "Use a casual, upbeat tone."
	case age >= 55:
		return "Use a warm, respectful tone."
	default:
		return ""
	}
}

func containsAny(reasons []string, keywords ...string) bool {
	for _, r := range reasons {
		lowered := strings.ToLower(r)
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
	}
	return false
}

// fallbackTemplate rotates through rotatingTemplates so repeated fallbacks
// within a process don't always produce the same message.
func (g *MessageGenerator) fallbackTemplate() string {
	t := rotatingTemplates[g.next%len(rotatingTemplates)]
	g.next++
	return t
}

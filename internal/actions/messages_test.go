package actions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/llmclient"
	"github.com/quickmart/churnguard/internal/logging"
)

type fakeLLM struct {
	text string
	err  error
}

func (f fakeLLM) Complete(context.Context, llmclient.CompletionRequest) (*llmclient.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmclient.CompletionResponse{Text: f.text}, nil
}

func TestGenerateMessageUsesLLMOutput(t *testing.T) {
	g := NewMessageGenerator(fakeLLM{text: "Come back and save!"}, logging.Nop{})
	msg, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Come back and save!", msg)
}

func TestGenerateMessageTruncatesTo160(t *testing.T) {
	long := strings.Repeat("a", 300)
	g := NewMessageGenerator(fakeLLM{text: long}, logging.Nop{})
	msg, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(msg), maxMessageLength)
}

func TestGenerateMessageFallsBackOnLLMError(t *testing.T) {
	g := NewMessageGenerator(fakeLLM{err: errors.New("boom")}, logging.Nop{})
	msg, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
}

func TestGenerateMessageSurfacesErrorOnEmptyContent(t *testing.T) {
	g := NewMessageGenerator(fakeLLM{text: "   "}, logging.Nop{})
	msg, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.ErrorIs(t, err, ErrLLMTruncation)
	assert.Empty(t, msg)
}

func TestGenerateMessageFallbackRotates(t *testing.T) {
	g := NewMessageGenerator(fakeLLM{err: errors.New("boom")}, logging.Nop{})
	first, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.NoError(t, err)
	second, err := g.GenerateMessage(context.Background(), "u1", 0.7, []string{"inactive"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

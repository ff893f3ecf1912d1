package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitora-backend/internal/ai"
	"fitora-backend/internal/model"
	"fitora-backend/internal/tokens"
)

func newAssembler() *ContextAssembler {
	return NewContextAssembler(tokens.NewCounter("gpt-4"), "gpt-4", 8000, 1000)
}

func conversation(n int, words int) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		out = append(out, ai.ChatMessage{Role: role, Content: strings.Repeat("nutrition ", words) + string(rune('a'+i%26))})
	}
	return out
}

func TestFormatForModelMapsAuthors(t *testing.T) {
	a := newAssembler()
	got := a.FormatForModel([]model.Message{
		{Author: model.AuthorUser, Content: "q"},
		{Author: model.AuthorAI, Content: "a"},
		{Author: "assistant", Content: "legacy"},
	})
	assert.Equal(t, []ai.ChatMessage{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a"},
		{Role: RoleAssistant, Content: "legacy"},
	}, got)
}

func TestCountTokensMonotonic(t *testing.T) {
	a := newAssembler()
	msgs := conversation(6, 10)

	assert.Equal(t, primingTokens, a.CountTokens(nil))
	prev := a.CountTokens(nil)
	for i := 1; i <= len(msgs); i++ {
		n := a.CountTokens(msgs[:i])
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestTrimToBudgetUnchangedWhenFits(t *testing.T) {
	a := newAssembler()
	msgs := conversation(4, 5)
	assert.Equal(t, msgs, a.TrimToBudget(msgs, a.CountTokens(msgs)))
}

func TestTrimToBudgetDropsOldestFirst(t *testing.T) {
	a := newAssembler()
	msgs := conversation(20, 400)
	total := a.CountTokens(msgs)
	budget := total * 8000 / 9500

	trimmed := a.TrimToBudget(msgs, budget)

	require.NotEmpty(t, trimmed)
	assert.Less(t, len(trimmed), len(msgs))
	assert.LessOrEqual(t, a.CountTokens(trimmed), budget)
	assert.Equal(t, msgs[len(msgs)-len(trimmed):], trimmed, "suffix of the original, chronological")
	assert.Equal(t, trimmed, a.TrimToBudget(trimmed, budget), "idempotent")
}

func TestTrimToBudgetKeepsSystemMessage(t *testing.T) {
	a := newAssembler()
	system := ai.ChatMessage{Role: RoleSystem, Content: "You are a nutrition assistant."}
	msgs := append([]ai.ChatMessage{system}, conversation(10, 200)...)
	budget := a.CountTokens(msgs) / 3

	trimmed := a.TrimToBudget(msgs, budget)

	require.NotEmpty(t, trimmed)
	assert.Equal(t, system, trimmed[0])
	assert.LessOrEqual(t, a.CountTokens(trimmed), budget)
	assert.Equal(t, msgs[len(msgs)-len(trimmed)+1:], trimmed[1:])
	assert.Equal(t, trimmed, a.TrimToBudget(trimmed, budget))
}

func TestTrimToBudgetAlwaysKeepsNewest(t *testing.T) {
	a := newAssembler()
	msgs := conversation(3, 300)

	trimmed := a.TrimToBudget(msgs, 10)
	require.Len(t, trimmed, 1)
	assert.Equal(t, msgs[2], trimmed[0])
	assert.Equal(t, trimmed, a.TrimToBudget(trimmed, 10))
}

func TestMaxContextTokens(t *testing.T) {
	assert.Equal(t, 7000, NewContextAssembler(tokens.NewCounter("gpt-4"), "gpt-4", 8000, 1000).MaxContextTokens())
	assert.Equal(t, 3096, NewContextAssembler(tokens.NewCounter("gpt-3.5-turbo"), "gpt-3.5-turbo", 8000, 1000).MaxContextTokens())
	assert.Equal(t, 15000, NewContextAssembler(tokens.NewCounter("gpt-4o"), "gpt-4o", 16000, 1000).MaxContextTokens())
}

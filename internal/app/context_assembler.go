package app

import (
	"fitora-backend/internal/ai"
	"fitora-backend/internal/model"
	"fitora-backend/internal/tokens"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	perMessageTokens = 4
	primingTokens    = 2
)

// ContextAssembler turns stored history into a model prompt that fits the
// model's context window.
type ContextAssembler struct {
	counter          *tokens.Counter
	modelName        string
	maxTokens        int
	reservedResponse int
}

func NewContextAssembler(counter *tokens.Counter, modelName string, maxTokens, reservedResponse int) *ContextAssembler {
	return &ContextAssembler{
		counter:          counter,
		modelName:        modelName,
		maxTokens:        maxTokens,
		reservedResponse: reservedResponse,
	}
}

func (a *ContextAssembler) FormatForModel(messages []model.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := RoleAssistant
		if m.Author == model.AuthorUser {
			role = RoleUser
		}
		out = append(out, ai.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

func (a *ContextAssembler) messageCost(m ai.ChatMessage) int {
	return perMessageTokens + a.counter.Count(m.Role) + a.counter.Count(m.Content)
}

func (a *ContextAssembler) CountTokens(messages []ai.ChatMessage) int {
	total := primingTokens
	for _, m := range messages {
		total += a.messageCost(m)
	}
	return total
}

// TrimToBudget drops whole messages from the oldest end until the prompt fits.
// A leading system message is always kept. Without one, the newest message
// survives even when it alone exceeds the budget.
func (a *ContextAssembler) TrimToBudget(messages []ai.ChatMessage, maxTokens int) []ai.ChatMessage {
	if len(messages) == 0 || a.CountTokens(messages) <= maxTokens {
		return messages
	}

	var system *ai.ChatMessage
	rest := messages
	running := primingTokens
	if messages[0].Role == RoleSystem {
		system = &messages[0]
		rest = messages[1:]
		running += a.messageCost(*system)
	}

	kept := 0
	for i := len(rest) - 1; i >= 0; i-- {
		cost := a.messageCost(rest[i])
		if running+cost > maxTokens {
			break
		}
		running += cost
		kept++
	}
	if kept == 0 && system == nil {
		kept = 1
	}

	out := make([]ai.ChatMessage, 0, kept+1)
	if system != nil {
		out = append(out, *system)
	}
	return append(out, rest[len(rest)-kept:]...)
}

// MaxContextTokens is the prompt budget after reserving room for the reply.
func (a *ContextAssembler) MaxContextTokens() int {
	limit := tokens.ContextWindow(a.modelName)
	if a.maxTokens > 0 && a.maxTokens < limit {
		limit = a.maxTokens
	}
	return limit - a.reservedResponse
}

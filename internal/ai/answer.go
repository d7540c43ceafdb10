package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Answerer synthesizes a natural-language answer from retrieved chunk
// texts. Callers must tolerate failure and fall back to a deterministic
// answer of their own.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
}

const answerSystemPrompt = "You are a helpful assistant that provides accurate answers based only on the given context. " +
	"Always be truthful about information limitations and cite your sources when possible."

// defaultContextTokenBudget caps how much retrieved text goes into the
// prompt, measured with the cl100k_base encoding.
const defaultContextTokenBudget = 2000

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func contextTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		// rough fallback: ~4 chars per token
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// Answer builds a grounded prompt from the chunks, trimming sources that
// would blow the token budget, and asks the chat model.
func (c *Client) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return "", fmt.Errorf("no context chunks for answer generation")
	}

	var block strings.Builder
	used := 0
	for i, chunk := range contexts {
		entry := fmt.Sprintf("Source %d: %s\n\n", i+1, chunk)
		cost := contextTokens(entry)
		if used+cost > defaultContextTokenBudget && i > 0 {
			break
		}
		block.WriteString(entry)
		used += cost
	}

	userContent := fmt.Sprintf(`Answer the user's question based ONLY on the context below.

CONTEXT FROM USER'S DOCUMENTS:
%s
USER'S QUESTION: %s

If the context does not contain enough information to fully answer the question, say so clearly. Cite sources as "Source N" when referring to particular information.`,
		block.String(), question)

	messages := []ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: userContent},
	}

	answer, err := c.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Unknown is the deterministic refusal answer. It is returned, never
// an error, whenever the context is empty or synthesis fails.
const Unknown = "I don't know."

const answerSystemPrompt = "You are a helpful study assistant. " +
	"Answer the question using ONLY the provided context. " +
	"Cite sources inline as [1], [2], ... referring to the numbered context items. " +
	"If the answer is not in the context, say you don't know. Be concise."

// Synthesizer produces grounded answers from packed context.
type Synthesizer struct {
	client ChatClient
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer over the given chat client.
func NewSynthesizer(client ChatClient) *Synthesizer {
	return &Synthesizer{
		client: client,
		logger: slog.Default(),
	}
}

// Answer generates an answer to the question from the numbered
// context passages. Failures degrade to the Unknown sentinel so a
// flaky model service never breaks the caller.
func (s *Synthesizer) Answer(ctx context.Context, question string, contexts []string) string {
	if len(contexts) == 0 || s.client == nil {
		return Unknown
	}

	answer, err := s.client.Complete(ctx, answerSystemPrompt, buildUserPrompt(question, contexts))
	if err != nil {
		s.logger.Warn("answer_synthesis_failed", slog.String("error", err.Error()))
		return Unknown
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Unknown
	}
	return answer
}

// buildUserPrompt numbers the context passages so the model can cite
// them by bracket index.
func buildUserPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range contexts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, c)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\nAnswer:", question)
	return b.String()
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragtutor/internal/domain"
	"ragtutor/internal/logger"
	"ragtutor/internal/port"
)

const (
	// insufficientAnswer is returned verbatim when retrieval produces
	// no usable context.
	insufficientAnswer = "I don't have enough information in the textbook to answer this question. " +
		"Please try rephrasing or ask about a different topic."

	// notConfiguredAnswer is shown in place of a generated answer when
	// no generation credential is present.
	notConfiguredAnswer = "⚠️ Answer generation is not configured. Set ANTHROPIC_API_KEY to enable it."

	answerSystemPrompt = `You are a helpful AI tutor for a technical textbook. Answer questions using ONLY the provided textbook context.

Rules:
1. Base your answer strictly on the context below.
2. If the context does not contain the answer, say "I don't have enough information in the textbook to answer this question."
3. Cite the sections you used when it helps the reader find them.
4. Be clear and educational in tone.
5. Do not invent facts that are not in the context.`
)

// Retriever embeds a question and searches the vector index. It is
// the concrete implementation of port.Retriever.
type Retriever struct {
	embedder   port.Embedder
	index      port.VectorIndex
	collection string
}

// NewRetriever creates a new retriever over the given collection.
func NewRetriever(embedder port.Embedder, index port.VectorIndex, collection string) *Retriever {
	return &Retriever{embedder: embedder, index: index, collection: collection}
}

// Retrieve returns the passages most similar to the question, best
// first, filtered by the similarity threshold.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, threshold float64) ([]domain.RetrievalHit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := r.index.Search(ctx, r.collection, vector, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	logger.Debug("retrieved %d passages for question", len(hits))
	return hits, nil
}

// Synthesizer turns retrieved passages into a grounded answer.
type Synthesizer struct {
	generator port.Generator
	maxTokens int
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(generator port.Generator, maxTokens int) *Synthesizer {
	return &Synthesizer{generator: generator, maxTokens: maxTokens}
}

// Synthesize generates an answer from the question and its retrieved
// context. With no usable hits it returns a fixed insufficient-context
// answer without calling the generator. Generator misconfiguration and
// upstream failures degrade to explanatory answers rather than errors,
// so the caller always has something to show.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, hits []domain.RetrievalHit) (domain.Answer, error) {
	if !s.generator.Configured() {
		return domain.Answer{Text: notConfiguredAnswer, Sources: []domain.Source{}}, nil
	}

	if len(hits) == 0 {
		return domain.Answer{Text: insufficientAnswer, Sources: []domain.Source{}}, nil
	}

	user := buildUserMessage(question, hits)
	result, err := s.generator.Generate(ctx, answerSystemPrompt, user, s.maxTokens)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotConfigured):
			return domain.Answer{Text: notConfiguredAnswer, Sources: []domain.Source{}}, nil
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			logger.Warn("generation failed: %v", err)
			return domain.Answer{
				Text:    fmt.Sprintf("Sorry, I encountered an error while generating the answer: %v", err),
				Sources: []domain.Source{},
			}, nil
		default:
			return domain.Answer{}, err
		}
	}

	return domain.Answer{
		Text:       result.Text,
		Sources:    sourcesFromHits(hits),
		TokensUsed: result.InputTokens + result.OutputTokens,
	}, nil
}

// buildUserMessage joins each hit as a labelled context block followed
// by the question.
func buildUserMessage(question string, hits []domain.RetrievalHit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[Source: %s - %s]\n%s", h.DocumentID, h.SectionTitle, h.Text)
	}
	return fmt.Sprintf("Context from the textbook:\n\n%s\n\nQuestion: %s", strings.Join(blocks, "\n\n"), question)
}

// sourcesFromHits builds the citation list structurally from the hits
// that were offered as context, never by parsing generated text.
func sourcesFromHits(hits []domain.RetrievalHit) []domain.Source {
	sources := make([]domain.Source, len(hits))
	for i, h := range hits {
		sources[i] = domain.Source{
			DocumentID:   h.DocumentID,
			SectionTitle: h.SectionTitle,
			Similarity:   h.Similarity,
		}
	}
	return sources
}

// AskUseCase wires retrieval and synthesis into the question-answer
// flow and records each exchange.
type AskUseCase struct {
	retriever   port.Retriever
	synthesizer *Synthesizer
	history     port.ChatHistory
	topK        int
	threshold   float64
}

// NewAskUseCase creates a new ask use case. history may be nil, in
// which case exchanges are not recorded.
func NewAskUseCase(
	retriever port.Retriever,
	synthesizer *Synthesizer,
	history port.ChatHistory,
	topK int,
	threshold float64,
) *AskUseCase {
	return &AskUseCase{
		retriever:   retriever,
		synthesizer: synthesizer,
		history:     history,
		topK:        topK,
		threshold:   threshold,
	}
}

// Ask answers a question from the indexed corpus.
func (u *AskUseCase) Ask(ctx context.Context, question string) (domain.Answer, error) {
	hits, err := u.retriever.Retrieve(ctx, question, u.topK, u.threshold)
	if err != nil {
		return domain.Answer{}, err
	}

	answer, err := u.synthesizer.Synthesize(ctx, question, hits)
	if err != nil {
		return domain.Answer{}, err
	}

	if u.history != nil {
		rec := domain.ChatRecord{Question: question, Answer: answer.Text, Sources: answer.Sources}
		if _, err := u.history.SaveExchange(ctx, rec); err != nil {
			logger.Warn("failed to record exchange: %v", err)
		}
	}
	return answer, nil
}

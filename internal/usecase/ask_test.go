package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragtutor/internal/domain"
)

func sampleHits() []domain.RetrievalHit {
	return []domain.RetrievalHit{
		{PassageID: "p1", DocumentID: "chapter-01", SectionTitle: "Sensors", Text: "Sensors convert physical quantities into signals.", Similarity: 0.92},
		{PassageID: "p2", DocumentID: "chapter-02", SectionTitle: "Actuators", Text: "Actuators turn commands into motion.", Similarity: 0.81},
	}
}

func TestSynthesizeNoHitsShortCircuits(t *testing.T) {
	gen := &fakeGenerator{configured: true, text: "should not be used"}
	s := NewSynthesizer(gen, 1000)

	answer, err := s.Synthesize(context.Background(), "what is a sensor?", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer.Text != insufficientAnswer {
		t.Errorf("answer = %q, want the fixed insufficient-context answer", answer.Text)
	}
	if answer.TokensUsed != 0 {
		t.Errorf("TokensUsed = %d, want 0", answer.TokensUsed)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", answer.Sources)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestSynthesizeNotConfigured(t *testing.T) {
	gen := &fakeGenerator{configured: false}
	s := NewSynthesizer(gen, 1000)

	answer, err := s.Synthesize(context.Background(), "anything", sampleHits())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.HasPrefix(answer.Text, "⚠️") {
		t.Errorf("answer = %q, want warning-prefixed placeholder", answer.Text)
	}
	if answer.TokensUsed != 0 {
		t.Errorf("TokensUsed = %d, want 0", answer.TokensUsed)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestSynthesizeGroundedAnswer(t *testing.T) {
	gen := &fakeGenerator{configured: true, text: "A sensor measures the world.", inTokens: 120, outTokens: 30}
	s := NewSynthesizer(gen, 1000)
	hits := sampleHits()

	answer, err := s.Synthesize(context.Background(), "what is a sensor?", hits)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer.Text != "A sensor measures the world." {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.TokensUsed != 150 {
		t.Errorf("TokensUsed = %d, want 150", answer.TokensUsed)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want exactly 1", gen.calls)
	}

	// Sources mirror the hits offered as context, in order.
	if len(answer.Sources) != len(hits) {
		t.Fatalf("len(Sources) = %d, want %d", len(answer.Sources), len(hits))
	}
	for i, src := range answer.Sources {
		if src.DocumentID != hits[i].DocumentID || src.SectionTitle != hits[i].SectionTitle || src.Similarity != hits[i].Similarity {
			t.Errorf("Sources[%d] = %+v, want %+v", i, src, hits[i])
		}
	}

	// Every hit appears as a labelled context block in the prompt.
	user := gen.users[0]
	for _, h := range hits {
		block := "[Source: " + h.DocumentID + " - " + h.SectionTitle + "]\n" + h.Text
		if !strings.Contains(user, block) {
			t.Errorf("user message missing context block for %s", h.PassageID)
		}
	}
	if !strings.Contains(user, "what is a sensor?") {
		t.Errorf("user message missing the question")
	}
}

func TestSynthesizeUpstreamFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{configured: true, err: domain.ErrUpstreamUnavailable}
	s := NewSynthesizer(gen, 1000)

	answer, err := s.Synthesize(context.Background(), "q", sampleHits())
	if err != nil {
		t.Fatalf("Synthesize() error = %v, want degraded answer instead", err)
	}
	if !strings.Contains(answer.Text, "Sorry, I encountered an error") {
		t.Errorf("answer = %q, want apologetic placeholder", answer.Text)
	}
	if answer.TokensUsed != 0 {
		t.Errorf("TokensUsed = %d, want 0", answer.TokensUsed)
	}
}

func TestSynthesizeUnexpectedErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{configured: true, err: boom}
	s := NewSynthesizer(gen, 1000)

	_, err := s.Synthesize(context.Background(), "q", sampleHits())
	if !errors.Is(err, boom) {
		t.Fatalf("Synthesize() error = %v, want %v", err, boom)
	}
}

func TestRetrieverRejectsEmptyQuestion(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{dim: 4}, newFakeIndex(), "textbook_chunks")
	_, err := r.Retrieve(context.Background(), "   ", 5, 0.7)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Retrieve() error = %v, want ErrValidation", err)
	}
}

func TestRetrieverReturnsIndexHits(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = sampleHits()
	r := NewRetriever(&fakeEmbedder{dim: 4}, idx, "textbook_chunks")

	hits, err := r.Retrieve(context.Background(), "sensors?", 5, 0.7)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if idx.searches != 1 {
		t.Errorf("index searched %d times, want 1", idx.searches)
	}
}

func TestRetrieverEmbedFailurePropagates(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, err: domain.ErrModelUnavailable}
	r := NewRetriever(emb, newFakeIndex(), "textbook_chunks")

	_, err := r.Retrieve(context.Background(), "q", 5, 0.7)
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("Retrieve() error = %v, want ErrModelUnavailable", err)
	}
}

func TestAskRecordsExchange(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = sampleHits()
	gen := &fakeGenerator{configured: true, text: "an answer", inTokens: 10, outTokens: 5}
	hist := &fakeHistory{}

	ask := NewAskUseCase(
		NewRetriever(&fakeEmbedder{dim: 4}, idx, "textbook_chunks"),
		NewSynthesizer(gen, 1000),
		hist,
		5, 0.7,
	)

	answer, err := ask.Ask(context.Background(), "what is a sensor?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "an answer" {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(hist.records) != 1 {
		t.Fatalf("history has %d records, want 1", len(hist.records))
	}
	rec := hist.records[0]
	if rec.Question != "what is a sensor?" || rec.Answer != "an answer" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Sources) != 2 {
		t.Errorf("record sources = %d, want 2", len(rec.Sources))
	}
}

func TestAskHistoryFailureDoesNotFailAnswer(t *testing.T) {
	idx := newFakeIndex()
	idx.hits = sampleHits()
	gen := &fakeGenerator{configured: true, text: "ok"}
	hist := &fakeHistory{err: errors.New("disk full")}

	ask := NewAskUseCase(
		NewRetriever(&fakeEmbedder{dim: 4}, idx, "textbook_chunks"),
		NewSynthesizer(gen, 1000),
		hist,
		5, 0.7,
	)

	answer, err := ask.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "ok" {
		t.Errorf("answer = %q", answer.Text)
	}
}

func TestAskWithoutHistory(t *testing.T) {
	idx := newFakeIndex()
	gen := &fakeGenerator{configured: true, text: "unused"}

	ask := NewAskUseCase(
		NewRetriever(&fakeEmbedder{dim: 4}, idx, "textbook_chunks"),
		NewSynthesizer(gen, 1000),
		nil,
		5, 0.7,
	)

	answer, err := ask.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != insufficientAnswer {
		t.Errorf("answer = %q, want insufficient-context answer for empty index", answer.Text)
	}
}

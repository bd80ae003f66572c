package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medkitlab/medirag/src/index"
	"github.com/medkitlab/medirag/src/memory"
	"github.com/medkitlab/medirag/src/models"
	"github.com/medkitlab/medirag/src/severity"
)

type stubRetriever struct {
	docs  []index.ScoredDocument
	calls int
}

func (r *stubRetriever) Search(_ context.Context, _ string, _ int) []index.ScoredDocument {
	r.calls++
	return r.docs
}

var _ Retriever = (*stubRetriever)(nil)

type scriptedAgent struct {
	reply   string
	err     error
	prompts []string
}

func (a *scriptedAgent) Generate(_ context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

var _ models.Agent = (*scriptedAgent)(nil)

func newTestChain(t *testing.T, retriever Retriever, agent models.Agent) (*Chain, *memory.Store) {
	t.Helper()
	store, err := memory.NewStore(t.TempDir(), 10)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewChain(severity.NewClassifier(), retriever, store, agent, 5), store
}

func TestSevereQuerySkipsRetrievalAndGeneration(t *testing.T) {
	retriever := &stubRetriever{}
	agent := &scriptedAgent{reply: "should never be used"}
	chain, store := newTestChain(t, retriever, agent)

	resp, err := chain.Ask(context.Background(), "alice", "I have chest pain and trouble breathing")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !resp.SeverityDetected {
		t.Error("severity should be detected")
	}
	if !strings.Contains(resp.Answer, "SEEK MEDICAL ATTENTION") {
		t.Errorf("answer should carry the emergency warning, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "IMPORTANT DISCLAIMER") {
		t.Error("warning should include the disclaimer")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("severe path should return no sources, got %d", len(resp.Sources))
	}
	if retriever.calls != 0 {
		t.Error("severe path must not retrieve")
	}
	if len(agent.prompts) != 0 {
		t.Error("severe path must not generate")
	}

	// The warning turn still lands in memory.
	turns := store.History("alice")
	if len(turns) != 1 || turns[0].BotResponse != resp.Answer {
		t.Errorf("expected the warning persisted as one turn, got %d turns", len(turns))
	}
}

func TestAskRetrievesAndGenerates(t *testing.T) {
	retriever := &stubRetriever{docs: []index.ScoredDocument{
		{Document: index.Document{ID: "d1", Content: "Tension headaches respond to rest.", Metadata: map[string]string{"source": "headache.pdf"}}, Score: 0.9},
		{Document: index.Document{ID: "d2", Content: "Hydration helps with most headaches.", Metadata: map[string]string{"source": "hydration.csv"}}, Score: 0.7},
	}}
	agent := &scriptedAgent{reply: "Rest and drink water. How long has the headache lasted?"}
	chain, store := newTestChain(t, retriever, agent)

	resp, err := chain.Ask(context.Background(), "alice", "I have a mild headache")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.SeverityDetected {
		t.Error("mild query should not trip the severity gate")
	}
	if resp.Answer != agent.reply {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(resp.Sources))
	}
	if resp.Sources[0].Metadata["source"] != "headache.pdf" {
		t.Errorf("source metadata = %+v", resp.Sources[0].Metadata)
	}

	if len(agent.prompts) != 1 {
		t.Fatalf("agent called %d times, want 1", len(agent.prompts))
	}
	prompt := agent.prompts[0]
	for _, want := range []string{
		"Tension headaches respond to rest.\n\nHydration helps with most headaches.",
		"I have a mild headache",
		"professional doctor",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	turns := store.History("alice")
	if len(turns) != 1 || turns[0].UserMessage != "I have a mild headache" {
		t.Fatalf("turn not persisted: %+v", turns)
	}

	// A second turn sees the first in its history.
	if _, err := chain.Ask(context.Background(), "alice", "It is getting a bit better"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	if !strings.Contains(agent.prompts[1], "User: I have a mild headache") {
		t.Error("second prompt should include prior conversation history")
	}
}

func TestGenerationFailureFallsBackToApology(t *testing.T) {
	agent := &scriptedAgent{err: errors.New("model unavailable")}
	chain, store := newTestChain(t, &stubRetriever{}, agent)

	resp, err := chain.Ask(context.Background(), "bob", "what helps a sore throat")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(resp.Answer, "I apologize") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "IMPORTANT DISCLAIMER") {
		t.Error("apology should include the disclaimer")
	}

	turns := store.History("bob")
	if len(turns) != 1 || turns[0].BotResponse != resp.Answer {
		t.Error("apology turn should be persisted")
	}
}

func TestRunRendersSources(t *testing.T) {
	long := strings.Repeat("a", 150)
	retriever := &stubRetriever{docs: []index.ScoredDocument{
		{Document: index.Document{ID: "d1", Content: "Short source."}},
		{Document: index.Document{ID: "d2", Content: long}},
	}}
	agent := &scriptedAgent{reply: "An answer."}
	chain, _ := newTestChain(t, retriever, agent)

	out, err := chain.Run(context.Background(), "alice", "question", true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "**Sources:**") {
		t.Error("output should list sources")
	}
	if !strings.Contains(out, "1. Short source....") {
		t.Errorf("first citation missing: %q", out)
	}
	if !strings.Contains(out, "2. "+long[:100]+"...") {
		t.Error("long citation should be cut to 100 characters")
	}

	plain, err := chain.Run(context.Background(), "alice", "question", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(plain, "**Sources:**") {
		t.Error("sources should be off by default")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 3); got != "hél" {
		t.Errorf("truncate = %q, want rune-safe cut", got)
	}
	if got := truncate("ok", 10); got != "ok" {
		t.Errorf("truncate = %q", got)
	}
}

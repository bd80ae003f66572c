package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/medkitlab/medirag/src/index"
	"github.com/medkitlab/medirag/src/memory"
	"github.com/medkitlab/medirag/src/models"
	"github.com/medkitlab/medirag/src/severity"
)

const (
	sourcePreviewLength   = 200
	citationPreviewLength = 100
	maxHistoryTurns       = 10
)

// Retriever is the slice of the index the chain needs.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []index.ScoredDocument
}

// Source is a citation attached to an answer: a content preview plus
// the origin metadata of the retrieved document.
type Source struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Response is the full result of one consultation turn.
type Response struct {
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	SeverityDetected bool     `json:"severity_detected"`
}

// genResult carries a generated answer or the fact that generation
// failed. Both shapes are persisted and shown to the user; only the
// answer text differs.
type genResult struct {
	answer string
	failed bool
}

// Chain wires severity gating, retrieval, generation and conversation
// memory into one Ask operation.
type Chain struct {
	classifier   *severity.Classifier
	retriever    Retriever
	store        *memory.Store
	agent        models.Agent
	retrieverK   int
	historyTurns int
}

func NewChain(classifier *severity.Classifier, retriever Retriever, store *memory.Store, agent models.Agent, retrieverK int) *Chain {
	turns := maxHistoryTurns
	if store != nil && store.MaxHistory() < turns {
		turns = store.MaxHistory()
	}
	return &Chain{
		classifier:   classifier,
		retriever:    retriever,
		store:        store,
		agent:        agent,
		retrieverK:   retrieverK,
		historyTurns: turns,
	}
}

// Ask runs one consultation turn: severity gate, retrieval, generation
// and persistence, in that order. Severe queries skip retrieval and
// generation entirely and get the emergency warning. Whatever answer
// is produced, warning, generated text or apology, is persisted as the
// turn's bot response; a persistence failure is the only error Ask
// returns.
func (c *Chain) Ask(ctx context.Context, userID, query string) (*Response, error) {
	if c.classifier.IsSevere(query) {
		answer := severityWarning()
		if err := c.store.Append(userID, query, answer, nil); err != nil {
			return nil, fmt.Errorf("persist conversation turn: %w", err)
		}
		return &Response{Answer: answer, Sources: []Source{}, SeverityDetected: true}, nil
	}

	docs := c.retriever.Search(ctx, query, c.retrieverK)

	contents := make([]string, len(docs))
	sources := make([]Source, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
		sources[i] = Source{Content: truncate(doc.Content, sourcePreviewLength), Metadata: doc.Metadata}
	}
	docContext := strings.Join(contents, "\n\n")
	history := c.store.FormattedHistory(userID, c.historyTurns)

	result := c.generate(ctx, docContext, query, history)
	if err := c.store.Append(userID, query, result.answer, nil); err != nil {
		return nil, fmt.Errorf("persist conversation turn: %w", err)
	}
	return &Response{Answer: result.answer, Sources: sources, SeverityDetected: false}, nil
}

func (c *Chain) generate(ctx context.Context, docContext, query, history string) genResult {
	answer, err := c.agent.Generate(ctx, buildPrompt(docContext, query, history))
	if err != nil {
		log.Printf("rag: generation failed, returning fallback: %v", err)
		return genResult{answer: apologyResponse(err), failed: true}
	}
	return genResult{answer: answer}
}

// Run is the text-only surface over Ask, optionally appending a
// numbered citation list.
func (c *Chain) Run(ctx context.Context, userID, query string, withSources bool) (string, error) {
	resp, err := c.Ask(ctx, userID, query)
	if err != nil {
		return "", err
	}
	if !withSources || len(resp.Sources) == 0 {
		return resp.Answer, nil
	}

	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n\n📚 **Sources:**\n")
	for i, src := range resp.Sources {
		fmt.Fprintf(&b, "%d. %s...\n", i+1, truncate(src.Content, citationPreviewLength))
	}
	return b.String(), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package service

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/liliang-cn/ragchat/internal/domain"
	"github.com/liliang-cn/ragchat/internal/memory"
)

// Prompt templates for the map and combine phases.
const (
	MapSystemTemplate = "Use the following portion of a long document to see if any of the text is relevant to answer the question.\n" +
		"Return any relevant text verbatim.\n" +
		"______________________\n" +
		"{context}"

	CombineSystemTemplate = "Given the following extracted parts of a long document and a question, create a final answer.\n" +
		"If you don't know the answer, politely decline to answer the question. Don't try to make up an answer.\n" +
		"----------------\n" +
		"{summaries}"
)

// GenerationState is the lifecycle of one answer generation
type GenerationState int32

const (
	StateNotStarted GenerationState = iota
	StateMapPhaseRunning
	StateReducePhaseRunning
	StateCompleted
	StateFailed
)

func (s GenerationState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateMapPhaseRunning:
		return "map_phase_running"
	case StateReducePhaseRunning:
		return "reduce_phase_running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IntermediateSummary is the map-phase output for one retrieved document
type IntermediateSummary struct {
	Index      int
	DocumentID string
	Text       string
}

// AnswerToken is one piece of the final answer as produced by the reduce phase
type AnswerToken struct {
	Text string
}

// Generation is a running map-reduce answer generation.
// Answer must be drained by the caller; Intermediate may be ignored.
type Generation struct {
	state        atomic.Int32
	intermediate chan IntermediateSummary
	answer       chan AnswerToken
	done         chan struct{}

	text string
	err  error
}

// Intermediate returns the map-phase summaries. It is closed when the map phase ends.
func (g *Generation) Intermediate() <-chan IntermediateSummary {
	return g.intermediate
}

// Answer returns the reduce-phase tokens. It is closed when the generation ends.
func (g *Generation) Answer() <-chan AnswerToken {
	return g.answer
}

// Wait blocks until the generation ends and returns the full answer text,
// which is the exact concatenation of every AnswerToken.
func (g *Generation) Wait() (string, error) {
	<-g.done
	return g.text, g.err
}

// State returns the current lifecycle state
func (g *Generation) State() GenerationState {
	return GenerationState(g.state.Load())
}

func (g *Generation) setState(s GenerationState) {
	g.state.Store(int32(s))
}

// Generator answers a question from retrieved documents with a map-reduce
// completion: one completion per document, then a streamed combine step.
type Generator struct {
	completer Completer
	logger    *zap.Logger
}

// NewGenerator creates a new generator
func NewGenerator(completer Completer, logger *zap.Logger) *Generator {
	return &Generator{completer: completer, logger: logger}
}

// Generate starts generating an answer and returns immediately.
func (g *Generator) Generate(ctx context.Context, docs []domain.RetrievedDocument, question string, mem *memory.Buffer) *Generation {
	gen := &Generation{
		intermediate: make(chan IntermediateSummary, len(docs)),
		answer:       make(chan AnswerToken),
		done:         make(chan struct{}),
	}
	go g.run(ctx, gen, docs, question, mem)
	return gen
}

func (g *Generator) run(ctx context.Context, gen *Generation, docs []domain.RetrievedDocument, question string, mem *memory.Buffer) {
	defer close(gen.done)
	defer close(gen.answer)

	gen.setState(StateMapPhaseRunning)
	summaries := make([]string, 0, len(docs))
	for i, doc := range docs {
		text, err := g.completer.Complete(ctx, mapPrompt(doc, question))
		if err != nil {
			g.logger.Error("Map phase failed",
				zap.Int("document", i),
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
			close(gen.intermediate)
			gen.err = err
			gen.setState(StateFailed)
			return
		}
		summaries = append(summaries, text)
		gen.intermediate <- IntermediateSummary{Index: i, DocumentID: doc.ID, Text: text}
	}
	close(gen.intermediate)

	gen.setState(StateReducePhaseRunning)
	text, err := g.completer.Stream(ctx, combinePrompt(summaries, question, mem), func(token string) {
		gen.answer <- AnswerToken{Text: token}
	})
	if err != nil {
		g.logger.Error("Reduce phase failed", zap.Error(err))
		gen.err = err
		gen.setState(StateFailed)
		return
	}

	gen.text = text
	gen.setState(StateCompleted)
	g.logger.Debug("Generation completed",
		zap.Int("documents", len(docs)),
		zap.Int("answer_length", len(text)),
	)
}

func mapPrompt(doc domain.RetrievedDocument, question string) []domain.PromptMessage {
	return []domain.PromptMessage{
		{Role: domain.RoleSystem, Content: strings.Replace(MapSystemTemplate, "{context}", doc.PageContent, 1)},
		{Role: domain.RoleUser, Content: question},
	}
}

func combinePrompt(summaries []string, question string, mem *memory.Buffer) []domain.PromptMessage {
	system := strings.Replace(CombineSystemTemplate, "{summaries}", strings.Join(summaries, "\n\n"), 1)

	msgs := make([]domain.PromptMessage, 0, mem.Len()+2)
	msgs = append(msgs, domain.PromptMessage{Role: domain.RoleSystem, Content: system})
	msgs = append(msgs, mem.PromptMessages()...)
	msgs = append(msgs, domain.PromptMessage{Role: domain.RoleUser, Content: question})
	return msgs
}

package service

import (
	"context"
	"strings"
	"sync"

	"github.com/liliang-cn/ragchat/internal/domain"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	dims  int
	calls [][]string
	err   error
	// vectorLen overrides the length of returned vectors when set
	vectorLen int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	n := f.dims
	if f.vectorLen > 0 {
		n = f.vectorLen
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, n)
		for j := range vec {
			vec[j] = float32(i+1) / float32(j+1)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

type searchCall struct {
	vector []float32
	k      int
	field  string
}

type fakeIndex struct {
	mu       sync.Mutex
	docs     []domain.RetrievedDocument
	upserts  [][]domain.IndexRecord
	searches []searchCall
	err      error

	ensuredDim int
}

func (f *fakeIndex) Upsert(ctx context.Context, records []domain.IndexRecord) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, records)
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.ID
	}
	return keys, nil
}

func (f *fakeIndex) SimilaritySearch(ctx context.Context, vector []float32, k int, field string) ([]domain.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{vector: vector, k: k, field: field})
	if f.err != nil {
		return nil, f.err
	}
	docs := f.docs
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

func (f *fakeIndex) records() []domain.IndexRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.IndexRecord
	for _, batch := range f.upserts {
		all = append(all, batch...)
	}
	return all
}

type initIndex struct {
	*fakeIndex
}

func (i initIndex) EnsureCollection(ctx context.Context, dim int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ensuredDim = dim
	return nil
}

// echoCompleter answers map calls with "extract: <document>" and streams the
// combine prompt's system message back word by word.
type echoCompleter struct {
	mu          sync.Mutex
	mapCalls    [][]domain.PromptMessage
	streamCalls [][]domain.PromptMessage

	mapErr    error
	streamErr error
	// failAfter emits this many tokens before streamErr
	failAfter int
	// onMap runs at the start of every map call
	onMap func()
}

func (c *echoCompleter) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	c.mu.Lock()
	c.mapCalls = append(c.mapCalls, messages)
	c.mu.Unlock()
	if c.onMap != nil {
		c.onMap()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.mapErr != nil {
		return "", c.mapErr
	}
	system := messages[0].Content
	doc := system[strings.LastIndex(system, "\n")+1:]
	return "extract: " + doc, nil
}

func (c *echoCompleter) Stream(ctx context.Context, messages []domain.PromptMessage, onToken func(string)) (string, error) {
	c.mu.Lock()
	c.streamCalls = append(c.streamCalls, messages)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tokens := strings.SplitAfter(messages[0].Content, " ")
	if c.streamErr != nil {
		for i := 0; i < c.failAfter && i < len(tokens); i++ {
			onToken(tokens[i])
		}
		return "", c.streamErr
	}

	var sb strings.Builder
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		sb.WriteString(tok)
		onToken(tok)
	}
	return sb.String(), nil
}

type memHistory struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	messages map[string][]*domain.Message
	appends  int
	err      error
	panicOn  bool
}

func newMemHistory() *memHistory {
	return &memHistory{
		sessions: map[string]*domain.Session{},
		messages: map[string][]*domain.Message{},
	}
}

func (h *memHistory) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (h *memHistory) GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*domain.Message(nil), h.messages[sessionID]...), nil
}

func (h *memHistory) AppendMessages(ctx context.Context, sessionID string, messages ...*domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appends++
	if h.panicOn {
		panic("store exploded")
	}
	if h.err != nil {
		return h.err
	}
	if _, ok := h.sessions[sessionID]; !ok {
		h.sessions[sessionID] = &domain.Session{ID: sessionID}
	}
	for _, m := range messages {
		m.SessionID = sessionID
		h.messages[sessionID] = append(h.messages[sessionID], m)
	}
	return nil
}

func (h *memHistory) appendCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.appends
}

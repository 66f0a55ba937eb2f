// Package vectorstore keeps a per-session semantic memory of user messages,
// used to derive generation context when the caller supplies none.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Snippet is a single semantic-recall hit from a session's history.
type Snippet struct {
	MessageID string
	Content   string
	Score     float32
}

// Store wraps chromem-go with per-session collections and disk persistence.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	dataDir string
	embedFn chromem.EmbeddingFunc
}

// New creates (or opens) the persistent vector store at dataDir/vectorstore/.
// embedFunc is the embedding function — pass chromem.NewEmbeddingFuncOpenAICompat
// pointed at the configured embeddings endpoint.
func New(dataDir string, embedFunc chromem.EmbeddingFunc) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &Store{db: db, dataDir: dir, embedFn: embedFunc}, nil
}

func collectionName(sessionID int32) string {
	return fmt.Sprintf("session_%d_messages", sessionID)
}

func (s *Store) getOrCreateCollection(sessionID int32) *chromem.Collection {
	name := collectionName(sessionID)
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(name, nil, s.embedFn)
		if err != nil {
			slog.Error("failed to create vector collection", "session", sessionID, "err", err)
			return nil
		}
	}
	return col
}

// IndexMessage adds a persisted user message to its session's collection.
func (s *Store) IndexMessage(ctx context.Context, sessionID, messageID int32, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.getOrCreateCollection(sessionID)
	if col == nil {
		return fmt.Errorf("vectorstore: nil collection for session %d", sessionID)
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:      strconv.Itoa(int(messageID)),
		Content: content,
	})
}

// SearchSimilar returns the top-k earlier messages most similar to the query.
func (s *Store) SearchSimilar(ctx context.Context, sessionID int32, query string, k int) ([]Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.getOrCreateCollection(sessionID)
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	var err error
	// chromem-go sometimes rejects nResults despite the Count check; step down
	// k until it succeeds.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]Snippet, 0, len(results))
	for _, r := range results {
		out = append(out, Snippet{
			MessageID: r.ID,
			Content:   r.Content,
			Score:     r.Similarity,
		})
	}
	return out, nil
}

// ContextFor joins the top-k recalled snippets into a context block for the
// assistant prompt. Returns "" when nothing is recalled or recall fails; the
// caller proceeds without context either way.
func (s *Store) ContextFor(ctx context.Context, sessionID int32, query string, k int) string {
	snippets, err := s.SearchSimilar(ctx, sessionID, query, k)
	if err != nil {
		slog.Warn("semantic recall failed", "session", sessionID, "err", err)
		return ""
	}
	if len(snippets) == 0 {
		return ""
	}
	lines := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		lines = append(lines, "- "+sn.Content)
	}
	return strings.Join(lines, "\n")
}

// DropSession removes a deleted session's collection. Missing collections are
// not an error.
func (s *Store) DropSession(_ context.Context, sessionID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(sessionID)
	if s.db.GetCollection(name, s.embedFn) == nil {
		return nil
	}
	return s.db.DeleteCollection(name)
}

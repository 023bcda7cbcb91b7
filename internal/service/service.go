// Package service orchestrates the ingestion and retrieval pipelines over
// the splitter, the embedder and the snapshot store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookrag/internal/domain"
	"bookrag/internal/embedding"
	"bookrag/internal/logger"
	"bookrag/internal/store"
)

// EmptyStoreMessage is the sole result returned by Retrieve when the
// knowledge base holds no passages.
const EmptyStoreMessage = "Knowledge base is empty. Please upload a book."

// DefaultTopK is the number of passages retrieved when the caller passes a
// non-positive k.
const DefaultTopK = 5

// ErrNoChunks reports that splitting produced no passages; the snapshot is
// left untouched.
var ErrNoChunks = errors.New("service: document produced no passages")

const lockTimeout = 30 * time.Second

// Splitter is the chunking surface the pipelines need.
type Splitter interface {
	Split(text string) []string
}

// Service wires the components into the two pipelines. It exclusively owns
// the index and passage sequence for the duration of one call; callers
// observe only complete snapshots.
type Service struct {
	splitter  Splitter
	embedder  embedding.Embedder
	store     *store.Store
	batchSize int
	topK      int
}

// New creates a service. Non-positive batchSize and topK fall back to the
// package defaults.
func New(splitter Splitter, embedder embedding.Embedder, st *store.Store, batchSize, topK int) *Service {
	if batchSize <= 0 {
		batchSize = embedding.DefaultBatchSize
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{splitter: splitter, embedder: embedder, store: st, batchSize: batchSize, topK: topK}
}

// Ingest splits rawText into passages, embeds them in bounded batches and
// appends vectors and passages to the snapshot in lock-step. The on-disk
// snapshot is replaced exactly once, after all batches succeeded; any
// earlier failure aborts with the persisted state untouched. The whole
// read-modify-write span holds the single-writer ingestion lock.
func (s *Service) Ingest(ctx context.Context, rawText, sourceID string) error {
	release, err := s.store.LockIngest(lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	idx, passages, err := s.store.Load(s.embedder.Dimension())
	if err != nil {
		return err
	}

	chunks := s.splitter.Split(rawText)
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	logger.Debug("split source %q into %d passages", sourceID, len(chunks))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		vectors, err := s.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed passages %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(batch))
		}
		if err := idx.Add(vectors); err != nil {
			return err
		}
		for _, text := range batch {
			passages = append(passages, domain.Passage{SourceID: sourceID, Text: text})
		}
		logger.Debug("embedded %d/%d passages of %q", end, len(chunks), sourceID)
	}

	if err := s.store.Save(idx, passages); err != nil {
		return err
	}
	logger.Info("stored %d passages from %q (total %d)", len(chunks), sourceID, idx.Count())
	return nil
}

// Retrieve returns the texts of the k stored passages nearest to query,
// closest first. Duplicates across sources are kept. On an empty store it
// returns the fixed sentinel message instead, regardless of k. A
// non-positive k uses the configured default.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	idx, passages, err := s.store.Load(s.embedder.Dimension())
	if err != nil {
		return nil, err
	}
	if idx.Count() == 0 {
		return []string{EmptyStoreMessage}, nil
	}
	if k <= 0 {
		k = s.topK
	}
	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for the query", len(vectors))
	}
	hits, err := idx.Search(vectors[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, passages[h.Position].Text)
	}
	logger.Debug("query matched %d passages", len(out))
	return out, nil
}

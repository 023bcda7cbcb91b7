package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/chunker"
	"bookrag/internal/domain"
	"bookrag/internal/embedding"
	"bookrag/internal/embedding/wordhash"
	"bookrag/internal/service"
	"bookrag/internal/store"
)

// recordingEmbedder wraps a real embedder, tracking batch sizes and
// optionally failing from the nth call on.
type recordingEmbedder struct {
	inner   embedding.Embedder
	batches []int
	failAt  int
	calls   int
}

func (r *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.calls++
	if r.failAt > 0 && r.calls >= r.failAt {
		return nil, errors.New("embedding backend unavailable")
	}
	r.batches = append(r.batches, len(texts))
	return r.inner.EmbedBatch(ctx, texts)
}

func (r *recordingEmbedder) Dimension() int  { return r.inner.Dimension() }
func (r *recordingEmbedder) ModelID() string { return r.inner.ModelID() }

func newSplitter(t *testing.T, size, overlap int) *chunker.Splitter {
	t.Helper()
	s, err := chunker.New(size, overlap)
	require.NoError(t, err)
	return s
}

func TestIngestAndRetrieve(t *testing.T) {
	dir := t.TempDir()
	emb := wordhash.New(0)
	svc := service.New(newSplitter(t, 60, 10), emb, store.New(dir), 4, 5)
	ctx := context.Background()

	text := "Dragons guard the northern keep. Merchants trade silk in the harbor. " +
		"The harbor master counts every ship. Winter closes the mountain passes."
	require.NoError(t, svc.Ingest(ctx, text, "chronicle.txt"))

	results, err := svc.Retrieve(ctx, "dragons", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, strings.ToLower(results[0]), "dragons")

	t.Run("idempotent query", func(t *testing.T) {
		again, err := svc.Retrieve(ctx, "dragons", 3)
		require.NoError(t, err)
		assert.Equal(t, results, again)
	})
}

func TestRetrieve_EmptyStoreSentinel(t *testing.T) {
	svc := service.New(newSplitter(t, 100, 10), wordhash.New(0), store.New(t.TempDir()), 0, 0)
	ctx := context.Background()

	for _, k := range []int{0, 1, 50} {
		results, err := svc.Retrieve(ctx, "anything", k)
		require.NoError(t, err)
		assert.Equal(t, []string{service.EmptyStoreMessage}, results)
	}
}

func TestIngest_NoChunksFailsWithoutMutation(t *testing.T) {
	dir := t.TempDir()
	emb := wordhash.New(0)
	svc := service.New(newSplitter(t, 100, 10), emb, store.New(dir), 0, 0)

	err := svc.Ingest(context.Background(), "   \n\n  ", "empty.txt")
	assert.ErrorIs(t, err, service.ErrNoChunks)

	idx, passages, err := store.New(dir).Load(emb.Dimension())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Count())
	assert.Empty(t, passages)
}

func TestIngest_AppendOnlyMonotonicity(t *testing.T) {
	dir := t.TempDir()
	emb := wordhash.New(0)
	splitter := newSplitter(t, 60, 10)
	svc := service.New(splitter, emb, store.New(dir), 4, 5)
	ctx := context.Background()

	first := "The tower stands on the cliff. Gulls circle the tower at dawn. Fishermen watch from below."
	require.NoError(t, svc.Ingest(ctx, first, "one.txt"))

	idx, passages, err := store.New(dir).Load(emb.Dimension())
	require.NoError(t, err)
	firstCount := idx.Count()
	assert.Equal(t, len(splitter.Split(first)), firstCount)
	assert.Len(t, passages, firstCount)
	firstPassages := append([]string(nil), textsOf(passages)...)

	second := "A stranger arrives by night. The stranger carries sealed letters. Nobody knows the seal."
	require.NoError(t, svc.Ingest(ctx, second, "two.txt"))

	idx, passages, err = store.New(dir).Load(emb.Dimension())
	require.NoError(t, err)
	assert.Equal(t, firstCount+len(splitter.Split(second)), idx.Count())
	require.Len(t, passages, idx.Count())
	// Prior positions are untouched.
	assert.Equal(t, firstPassages, textsOf(passages[:firstCount]))
	for _, p := range passages[:firstCount] {
		assert.Equal(t, "one.txt", p.SourceID)
	}
	for _, p := range passages[firstCount:] {
		assert.Equal(t, "two.txt", p.SourceID)
	}
}

func TestIngest_BatchesAreBounded(t *testing.T) {
	rec := &recordingEmbedder{inner: wordhash.New(0)}
	svc := service.New(newSplitter(t, 30, 5), rec, store.New(t.TempDir()), 2, 5)

	text := "One short line here. Two short lines here. Three short lines here. " +
		"Four short lines here. Five short lines here. Six short lines here."
	require.NoError(t, svc.Ingest(context.Background(), text, "batched.txt"))

	require.NotEmpty(t, rec.batches)
	total := 0
	for _, n := range rec.batches {
		assert.LessOrEqual(t, n, 2)
		total += n
	}
	assert.Greater(t, len(rec.batches), 1, "the document must span multiple batches")
	assert.Equal(t, totalChunks(t, text), total)
}

func TestIngest_UpstreamFailureLeavesSnapshotUntouched(t *testing.T) {
	dir := t.TempDir()
	good := wordhash.New(0)
	svc := service.New(newSplitter(t, 60, 10), good, store.New(dir), 4, 5)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, "A stable base document. It has a few sentences. They persist.", "base.txt"))
	idx, _, err := store.New(dir).Load(good.Dimension())
	require.NoError(t, err)
	countBefore := idx.Count()

	failing := &recordingEmbedder{inner: wordhash.New(0), failAt: 2}
	svc = service.New(newSplitter(t, 30, 5), failing, store.New(dir), 2, 5)
	err = svc.Ingest(ctx, "First new sentence here. Second new sentence here. Third new sentence here. Fourth new sentence here.", "broken.txt")
	require.Error(t, err)

	idx, passages, err := store.New(dir).Load(good.Dimension())
	require.NoError(t, err)
	assert.Equal(t, countBefore, idx.Count())
	assert.Len(t, passages, countBefore)
}

func TestReferenceScenario(t *testing.T) {
	dir := t.TempDir()
	emb := wordhash.New(0)
	svc := service.New(newSplitter(t, 20, 5), emb, store.New(dir), 32, 5)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, "Alpha beta gamma delta epsilon zeta eta theta.", "greek.txt"))

	idx, _, err := store.New(dir).Load(emb.Dimension())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	results, err := svc.Retrieve(ctx, "alpha", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0], "Alpha")
}

func textsOf(passages []domain.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}

func totalChunks(t *testing.T, text string) int {
	t.Helper()
	s, err := chunker.New(30, 5)
	require.NoError(t, err)
	return len(s.Split(text))
}

package embedding

import "context"

// DefaultBatchSize bounds how many texts callers should embed per call.
const DefaultBatchSize = 32

// Embedder maps batches of text to fixed-dimension vectors. Implementations
// are stateless per call; callers partition large passage lists into bounded
// batches. For a given model, identical input text yields the same vector.
type Embedder interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed vector length produced by the model.
	Dimension() int
	// ModelID identifies the underlying model.
	ModelID() string
}

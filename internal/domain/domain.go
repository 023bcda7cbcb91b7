package domain

// Passage is a contiguous span of source text produced by splitting, short
// enough to embed meaningfully. Passages are immutable once created; their
// order within a source is the order the splitter emitted them.
type Passage struct {
	SourceID string
	Text     string
}

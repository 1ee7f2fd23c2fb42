package models

// MaxExcerptLength bounds citation excerpts; longer chunk content is
// truncated with a trailing ellipsis.
const MaxExcerptLength = 200

// Citation links a claim in a generated answer back to a retrieved
// passage. Excerpt and ChunkID are nil when the cited marker could not
// be resolved against any retrieved chunk; such citations carry
// ValidationWarning and never survive the citation gate.
type Citation struct {
	DocumentName      string  `json:"document_name"`
	Excerpt           *string `json:"excerpt,omitempty"`
	Page              *int    `json:"page,omitempty"`
	Section           *string `json:"section,omitempty"`
	ChunkID           *string `json:"chunk_id,omitempty"`
	ValidationWarning bool    `json:"validation_warning,omitempty"`
}

// Resolved reports whether the citation was matched to a retrieved chunk.
func (c *Citation) Resolved() bool {
	return c.Excerpt != nil
}

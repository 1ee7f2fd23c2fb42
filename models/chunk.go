package models

import "sort"

// DefaultSectionLabel stands in for passages whose metadata has no
// section, both in the grounding prompt and in citation matching.
const DefaultSectionLabel = "General"

// ChunkMetadata carries positional and structural information about a
// stored passage. DocumentName and ChunkIndex are always present
// (defaulted when the store returns malformed metadata); the rest are
// optional and omitted when absent.
type ChunkMetadata struct {
	DocumentName   string  `json:"document_name"`
	ChunkIndex     int     `json:"chunk_index"`
	Page           *int    `json:"page,omitempty"`
	Section        *string `json:"section,omitempty"`
	SourceType     *string `json:"source_type,omitempty"`
	EmbeddingModel *string `json:"embedding_model,omitempty"`
}

// RetrievedChunk is one passage returned by the vector store for a query.
// SimilarityScore is 1 - distance, in [0,1] for normalized embeddings.
type RetrievedChunk struct {
	ChunkID         string        `json:"chunk_id"`
	Content         string        `json:"content"`
	Metadata        ChunkMetadata `json:"metadata"`
	SimilarityScore float64       `json:"similarity_score"`
}

// SortChunksBySimilarity orders chunks descending by similarity score.
// The sort is stable so ties keep the store's original order.
func SortChunksBySimilarity(chunks []RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].SimilarityScore > chunks[j].SimilarityScore
	})
}

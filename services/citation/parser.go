// Package citation extracts, deduplicates and validates citation markers
// in generated text against the passages that were actually retrieved.
//
// The marker grammar is a prompt convention, not a designed wire format:
// "[", document, ",", section, "]" with surrounding whitespace ignored.
// Known, accepted limitations: a section label containing a comma, or a
// marker split across a line break, will not parse as one citation.
package citation

import (
	"regexp"
	"strings"

	"github.com/upb/docqa/backend/models"
	"go.uber.org/zap"
)

// markerPattern matches one bracketed [document, section] marker. Fields
// may not contain brackets, commas or newlines.
var markerPattern = regexp.MustCompile(`\[([^,\[\]\n]+),([^,\[\]\n]+)\]`)

// Parser extracts citations from generated text
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new citation parser
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// lookupKey identifies a passage by case-insensitive document and section.
type lookupKey struct {
	document string
	section  string
}

// Extract parses all citation markers in text and cross-references them
// against chunks. Every marker becomes a Citation: matched markers carry
// the chunk's excerpt, page and chunk id; unmatched markers carry a
// validation warning and a nil excerpt. The returned bool is true only
// when at least one marker was found and all markers resolved.
// Duplicates are collapsed case-insensitively, first occurrence's casing
// winning. Re-parsing the same inputs yields the same citations in the
// same order.
func (p *Parser) Extract(text string, chunks []models.RetrievedChunk, requestID string) ([]models.Citation, bool) {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		p.logger.Warn("generated text contains no citation markers",
			zap.String("request_id", requestID))
		return []models.Citation{}, false
	}

	lookup := buildChunkLookup(chunks)

	citations := make([]models.Citation, 0, len(matches))
	seen := make(map[lookupKey]bool)
	allValid := true

	for _, match := range matches {
		document := strings.TrimSpace(match[1])
		section := strings.TrimSpace(match[2])

		key := lookupKey{
			document: strings.ToLower(document),
			section:  strings.ToLower(section),
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		chunk, ok := lookup[key]
		if !ok {
			p.logger.Warn("citation marker does not match any retrieved passage",
				zap.String("request_id", requestID),
				zap.String("document", document),
				zap.String("section", section))
			citations = append(citations, models.Citation{
				DocumentName:      document,
				Section:           &section,
				ValidationWarning: true,
			})
			allValid = false
			continue
		}

		excerpt := truncateExcerpt(chunk.Content)
		citations = append(citations, models.Citation{
			DocumentName: document,
			Excerpt:      &excerpt,
			Page:         chunk.Metadata.Page,
			Section:      &section,
			ChunkID:      &chunk.ChunkID,
		})
	}

	return citations, allValid
}

// buildChunkLookup indexes chunks by lowercased (document, section).
// Chunks arrive sorted by similarity, so on key collision the most
// similar passage provides the excerpt.
func buildChunkLookup(chunks []models.RetrievedChunk) map[lookupKey]*models.RetrievedChunk {
	lookup := make(map[lookupKey]*models.RetrievedChunk, len(chunks))
	for i := range chunks {
		chunk := &chunks[i]
		section := models.DefaultSectionLabel
		if chunk.Metadata.Section != nil {
			section = *chunk.Metadata.Section
		}
		key := lookupKey{
			document: strings.ToLower(chunk.Metadata.DocumentName),
			section:  strings.ToLower(section),
		}
		if _, exists := lookup[key]; !exists {
			lookup[key] = chunk
		}
	}
	return lookup
}

// truncateExcerpt bounds excerpt length, appending an ellipsis when the
// chunk content was cut.
func truncateExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= models.MaxExcerptLength {
		return content
	}
	return string(runes[:models.MaxExcerptLength]) + "..."
}

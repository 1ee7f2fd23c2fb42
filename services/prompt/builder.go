// Package prompt validates question text and assembles the grounding
// prompt sent to the generation service.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
)

// RefusalSentence is the fixed sentence the model is instructed to emit
// verbatim when the supplied passages are insufficient.
const RefusalSentence = "I cannot answer this question based on the available documents."

// ValidateQuestion trims the question and enforces the length bounds.
// It returns the trimmed text, or a validation error rejected before any
// network call.
func ValidateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	// Bounds are in characters, not bytes; multibyte questions must not
	// be over-counted.
	length := utf8.RuneCountInString(trimmed)
	if length < models.MinQuestionLength {
		return "", services.ErrQuestionTooShort
	}
	if length > models.MaxQuestionLength {
		return "", services.ErrQuestionTooLong
	}
	return trimmed, nil
}

// ValidateFilters enforces the filter bounds of a query.
func ValidateFilters(filters *models.QueryFilters) error {
	if filters == nil || filters.MaxResults == nil {
		return nil
	}
	if *filters.MaxResults < models.MinMaxResults || *filters.MaxResults > models.MaxMaxResults {
		return services.NewDomainError(services.ErrorTypeValidation,
			"max_results must be between 1 and 10", nil).
			WithDetail("max_results", *filters.MaxResults)
	}
	return nil
}

// BuildGroundingPrompt assembles the instruction and context block for
// one question. The instructions force the model to answer only from the
// supplied passages, cite every claim as [document, section], and emit
// the fixed refusal sentence when the passages are insufficient.
func BuildGroundingPrompt(question string, chunks []models.RetrievedChunk) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant answering questions about internal documents.\n")
	sb.WriteString("Follow these rules strictly:\n")
	sb.WriteString("1. Answer ONLY using the passages provided below. Do not use outside knowledge.\n")
	sb.WriteString("2. Cite every claim with a marker of the form [document, section].\n")
	sb.WriteString("3. If the passages do not contain enough information to answer, reply exactly: ")
	sb.WriteString(RefusalSentence)
	sb.WriteString("\n\nPassages:\n")

	for _, chunk := range chunks {
		sb.WriteString(formatPassageHeader(chunk))
		sb.WriteString(chunk.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}

// formatPassageHeader prefixes a passage with its document, section and
// page so the model can cite it.
func formatPassageHeader(chunk models.RetrievedChunk) string {
	section := models.DefaultSectionLabel
	if chunk.Metadata.Section != nil {
		section = *chunk.Metadata.Section
	}
	if chunk.Metadata.Page != nil {
		return fmt.Sprintf("[Document: %s | Section: %s | Page: %d]\n",
			chunk.Metadata.DocumentName, section, *chunk.Metadata.Page)
	}
	return fmt.Sprintf("[Document: %s | Section: %s]\n",
		chunk.Metadata.DocumentName, section)
}

package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected string
		wantErr  error
	}{
		{"valid question", "What is the retention period?", "What is the retention period?", nil},
		{"trims surrounding whitespace", "  what now?  \n", "what now?", nil},
		{"minimum length after trimming", " ab ", "", services.ErrQuestionTooShort},
		{"exactly minimum length", "abc", "abc", nil},
		{"whitespace only", "   \t  ", "", services.ErrQuestionTooShort},
		{"too long", strings.Repeat("q", models.MaxQuestionLength+1), "", services.ErrQuestionTooLong},
		{"exactly maximum length", strings.Repeat("q", models.MaxQuestionLength), strings.Repeat("q", models.MaxQuestionLength), nil},
		// Bounds count characters, not bytes.
		{"two multibyte characters", "日本", "", services.ErrQuestionTooShort},
		{"three multibyte characters", "日本語", "日本語", nil},
		{"multibyte question within bounds", strings.Repeat("日", 500), strings.Repeat("日", 500), nil},
		{"multibyte question over bounds", strings.Repeat("日", models.MaxQuestionLength+1), "", services.ErrQuestionTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateQuestion(tt.question)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, services.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidateFilters(t *testing.T) {
	valid := 5
	low := 0
	high := 11

	tests := []struct {
		name    string
		filters *models.QueryFilters
		wantErr bool
	}{
		{"nil filters", nil, false},
		{"no max results", &models.QueryFilters{}, false},
		{"valid max results", &models.QueryFilters{MaxResults: &valid}, false},
		{"below minimum", &models.QueryFilters{MaxResults: &low}, true},
		{"above maximum", &models.QueryFilters{MaxResults: &high}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilters(tt.filters)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, services.IsValidationError(err))
				assert.Contains(t, err.Error(), "max_results")
				assert.Equal(t, *tt.filters.MaxResults, services.GetErrorDetails(err)["max_results"])
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBuildGroundingPrompt(t *testing.T) {
	page := 3
	section := "Setup"
	chunks := []models.RetrievedChunk{
		{
			Content: "Run the installer as administrator.",
			Metadata: models.ChunkMetadata{
				DocumentName: "guide.pdf",
				Page:         &page,
				Section:      &section,
			},
		},
		{
			Content:  "General operating procedures.",
			Metadata: models.ChunkMetadata{DocumentName: "ops.pdf"},
		},
	}

	prompt := BuildGroundingPrompt("How do I install the tool?", chunks)

	assert.Contains(t, prompt, "Answer ONLY using the passages provided below")
	assert.Contains(t, prompt, "[document, section]")
	assert.Contains(t, prompt, RefusalSentence)

	assert.Contains(t, prompt, "[Document: guide.pdf | Section: Setup | Page: 3]")
	assert.Contains(t, prompt, "Run the installer as administrator.")

	// A sectionless, pageless chunk gets the default section label and no
	// page component.
	assert.Contains(t, prompt, "[Document: ops.pdf | Section: "+models.DefaultSectionLabel+"]")

	assert.Contains(t, prompt, "Question: How do I install the tool?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildGroundingPrompt_PassageOrderPreserved(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Content: "FIRST", Metadata: models.ChunkMetadata{DocumentName: "a.pdf"}},
		{Content: "SECOND", Metadata: models.ChunkMetadata{DocumentName: "b.pdf"}},
	}

	prompt := BuildGroundingPrompt("why?", chunks)

	assert.Less(t, strings.Index(prompt, "FIRST"), strings.Index(prompt, "SECOND"))
}

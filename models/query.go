package models

// Question length bounds in characters, applied after trimming
// whitespace.
const (
	MinQuestionLength = 3
	MaxQuestionLength = 1000
)

// Bounds for the per-query source count filter.
const (
	MinMaxResults = 1
	MaxMaxResults = 10
)

// QueryFilters narrows retrieval to a subset of the corpus
type QueryFilters struct {
	// Source restricts retrieval to a single document name
	Source *string `json:"source,omitempty"`

	// MaxResults caps how many passages are retrieved (1-10)
	MaxResults *int `json:"max_results,omitempty"`
}

// Query represents one natural-language question over the corpus.
// A Query is immutable once constructed.
type Query struct {
	Question  string        `json:"question"`
	Filters   *QueryFilters `json:"filters,omitempty"`
	RequestID string        `json:"request_id"` // Caller-supplied or assigned at pipeline entry
}

// MaxResultsOrDefault returns the requested source count, falling back
// to the given default when no filter is set.
func (q *Query) MaxResultsOrDefault(def int) int {
	if q.Filters != nil && q.Filters.MaxResults != nil {
		return *q.Filters.MaxResults
	}
	return def
}

// SourceFilter returns the document-name filter, or "" when unset.
func (q *Query) SourceFilter() string {
	if q.Filters != nil && q.Filters.Source != nil {
		return *q.Filters.Source
	}
	return ""
}

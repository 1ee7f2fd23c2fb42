package models

// Answer is the single terminal outcome of the query pipeline. A null
// Answer field is a refusal: Citations is empty and Message explains
// which gate refused (or which dependency failed). When Answer is
// non-null the pipeline guarantees at least one resolved citation.
type Answer struct {
	Answer           *string    `json:"answer"`
	Citations        []Citation `json:"citations"`
	Confidence       float64    `json:"confidence"`
	Message          *string    `json:"message,omitempty"`
	RequestID        string     `json:"request_id"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
}

// IsRefusal reports whether the pipeline declined to answer.
func (a *Answer) IsRefusal() bool {
	return a.Answer == nil
}

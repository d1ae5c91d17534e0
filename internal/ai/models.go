package ai

const (
	IntentEstimate      = "estimate"
	IntentClarification = "clarification"
)

// TripQuery captures the structured output from the AI model.
type TripQuery struct {
	// Intent is "estimate" when both places are known, otherwise "clarification".
	Intent string `json:"intent"`

	// Origin and Destination are address strings suitable for geocoding.
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`

	// Reply is a short message for the rider, usually a follow-up question.
	Reply string `json:"reply"`
}

// Complete reports whether both ends of the trip were extracted.
func (q *TripQuery) Complete() bool {
	return q != nil && q.Intent == IntentEstimate &&
		q.Origin != nil && *q.Origin != "" &&
		q.Destination != nil && *q.Destination != ""
}

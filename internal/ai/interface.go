package ai

import "context"

// TripQueryParser turns a free-text request such as "how much from Indiranagar to the
// airport" into a structured trip query.
type TripQueryParser interface {
	// ParseTripQuery extracts origin and destination. currentContext carries values such as
	// "current_time" and "city" that help the model resolve relative phrases.
	ParseTripQuery(ctx context.Context, userMessage string, currentContext map[string]string) (*TripQuery, error)
}

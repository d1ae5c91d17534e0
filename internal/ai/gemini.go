package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements TripQueryParser using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash")
	model.ResponseMIMEType = "application/json"
	// Extraction, not prose.
	model.SetTemperature(0.1)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) ParseTripQuery(ctx context.Context, userMessage string, currentContext map[string]string) (*TripQuery, error) {
	fullPrompt := fmt.Sprintf("%s\n\nUser Message: %s", buildSystemPrompt(currentContext), userMessage)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	return decodeTripQuery(responseText.String())
}

func decodeTripQuery(raw string) (*TripQuery, error) {
	cleanJSON := cleanJSONString(raw)

	var q TripQuery
	if err := json.Unmarshal([]byte(cleanJSON), &q); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	if q.Origin != nil {
		trimmed := strings.TrimSpace(*q.Origin)
		q.Origin = &trimmed
	}
	if q.Destination != nil {
		trimmed := strings.TrimSpace(*q.Destination)
		q.Destination = &trimmed
	}
	if q.Intent == "" {
		q.Intent = IntentClarification
	}
	return &q, nil
}

func buildSystemPrompt(ctxMap map[string]string) string {
	currentTime := ctxMap["current_time"]
	city := ctxMap["city"]
	if currentTime == "" {
		currentTime = "UNKNOWN_TIME"
	}
	if city == "" {
		city = "UNKNOWN_CITY"
	}

	return fmt.Sprintf(`Role: You extract trip endpoints for an auto-rickshaw fare estimator in India.
Context:
- Current System Time: %s
- City: %s

RULES:
1. Find the pickup place ("origin") and the drop place ("destination") in the user's message.
   Keywords "from", "se" mark the origin. Keywords "to", "till", "tak" mark the destination.
2. Rewrite each place as a geocodable address, appending the city when the user did not name one.
3. If either place is missing or ambiguous, set "intent": "clarification", leave it null and ask for
   it in "reply". Otherwise set "intent": "estimate".
4. Never invent places. Never compute a fare.

Respond with JSON only:
{"intent": "estimate" | "clarification", "origin": string | null, "destination": string | null, "reply": string}`,
		currentTime, city)
}

func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

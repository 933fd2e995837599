package explain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrRateLimited   = errors.New("ai service rate limited")
	ErrEmptyResponse = errors.New("ai service returned no text")
)

const defaultGeminiModel = "gemini-2.5-flash"

// Explainer produces a plain-language explanation of a price.
type Explainer interface {
	Explain(ctx context.Context, observed, median, areaAverage float64) (string, error)
}

// GeminiExplainer asks Gemini to explain a price against the market.
type GeminiExplainer struct {
	client   *genai.Client
	model    string
	currency string
}

func NewGeminiExplainer(ctx context.Context, apiKey, model, currency string) (*GeminiExplainer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiExplainer{client: client, model: model, currency: currency}, nil
}

func (g *GeminiExplainer) Explain(ctx context.Context, observed, median, areaAverage float64) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(g.currency, observed, median, areaAverage)), nil)
	if err != nil {
		if isRateLimit(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Prompt builds the request text. Shops are never to be accused.
func Prompt(currency string, observed, median, areaAverage float64) string {
	return fmt.Sprintf(`Explain this pricing pattern in simple terms:
User paid: %s%.2f
Market median: %s%.2f
Area average: %s%.2f

Provide a brief, neutral explanation without accusing any shops. Focus on market factors and give actionable advice for the consumer.`,
		currency, observed, currency, median, currency, areaAverage)
}

func isRateLimit(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

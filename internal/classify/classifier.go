package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Praneeth-A/onebox/internal/models"
)

// FallbackCategory is assigned when the classification service fails.
// Classification failure must never abort indexing.
const FallbackCategory = models.CategoryNotInterested

// maxBodyChars caps how much of the message body is sent for classification.
const maxBodyChars = 4000

// Classifier assigns a category label to a message.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) (models.Category, float64, error)
}

// HTTPClassifier calls an external classification service over HTTP.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier that POSTs to the given endpoint.
func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type classifyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Classify sends the subject and a bounded prefix of the body to the service
// and returns the label it assigns.
func (c *HTTPClassifier) Classify(ctx context.Context, subject, body string) (models.Category, float64, error) {
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	payload, err := json.Marshal(classifyRequest{Subject: subject, Body: body})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	category, ok := parseCategory(result.Category)
	if !ok {
		return "", 0, fmt.Errorf("classifier returned unknown category %q", result.Category)
	}

	return category, result.Confidence, nil
}

func parseCategory(raw string) (models.Category, bool) {
	switch models.Category(raw) {
	case models.CategoryInterested,
		models.CategoryMeetingBooked,
		models.CategoryNotInterested,
		models.CategorySpam,
		models.CategoryOutOfOffice:
		return models.Category(raw), true
	}
	return "", false
}

// Ensure HTTPClassifier implements Classifier.
var _ Classifier = (*HTTPClassifier)(nil)

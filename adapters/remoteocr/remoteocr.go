// Package remoteocr is an HTTP client for an out-of-process recognition
// server, for deployments where OCR runs in a separate inference process.
package remoteocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/overlaykit/specocr"
	"github.com/overlaykit/specocr/grouping"
	"github.com/overlaykit/specocr/internal/retry"
)

const recognizePath = "/v1/recognize"

// Client is a minimal client for a remote recognition server.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	RetryConfig retry.Config
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		RetryConfig: retry.DefaultConfig(),
	}
}

type recognizeRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type regionPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type recognizeResponse struct {
	Text    string          `json:"text"`
	Regions []regionPayload `json:"regions"`
}

// isRetryableError retries network errors, server errors and rate limiting,
// but never a cancelled context: cancellation must surface to the
// coordinator as cancellation.
func isRetryableError(err error, statusCode int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if err != nil {
		return true
	}
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// Recognize sends the image to the remote server and maps its regions onto
// detection boxes.
func (c *Client) Recognize(ctx context.Context, image []byte) (*specocr.RecognitionOutput, error) {
	body, err := json.Marshal(recognizeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode recognize request: %w", err)
	}

	var parsed recognizeResponse
	err = retry.Execute(ctx, c.RetryConfig, "recognition", isRetryableError, func(attempt int) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+recognizePath, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to build recognize request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read recognize response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}

		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse recognize response: %w", err)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}

	detections := make([]grouping.DetectionBox, 0, len(parsed.Regions))
	for _, r := range parsed.Regions {
		detections = append(detections, grouping.DetectionBox{
			X:          r.X,
			Y:          r.Y,
			Width:      r.Width,
			Height:     r.Height,
			Text:       r.Text,
			Confidence: r.Confidence,
		})
	}

	return &specocr.RecognitionOutput{
		Text:       parsed.Text,
		Detections: detections,
	}, nil
}

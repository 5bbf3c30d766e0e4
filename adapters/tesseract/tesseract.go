// Package tesseract adapts a local Tesseract OCR client to the
// specocr.RecognitionEngine interface.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/overlaykit/specocr"
	"github.com/overlaykit/specocr/grouping"
)

// Engine performs recognition through a shared gosseract client. Tesseract
// clients are not safe for concurrent use, so calls serialize on a mutex;
// the coordinator's single-flight dispatch means that in practice the lock
// is uncontended.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates an engine recognizing the given languages ("eng" when
// none are named).
func NewEngine(languages ...string) (*Engine, error) {
	client := gosseract.NewClient()

	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Sparse segmentation: screen content is scattered labels and short
	// runs of text, not a uniform page.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases the underlying Tesseract resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// Recognize runs OCR over the encoded image and returns word-level
// detections. The Tesseract call itself cannot be interrupted, so ctx is
// honored at the call boundaries only.
func (e *Engine) Recognize(ctx context.Context, image []byte) (*specocr.RecognitionOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil, fmt.Errorf("recognition engine is closed")
	}

	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var detections []grouping.DetectionBox
	var words []string
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}

		detections = append(detections, grouping.DetectionBox{
			X:          float64(box.Box.Min.X),
			Y:          float64(box.Box.Min.Y),
			Width:      float64(box.Box.Dx()),
			Height:     float64(box.Box.Dy()),
			Text:       text,
			Confidence: box.Confidence,
		})
		words = append(words, text)
	}

	return &specocr.RecognitionOutput{
		Text:       strings.Join(words, " "),
		Detections: detections,
	}, nil
}

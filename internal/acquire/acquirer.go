// Package acquire turns raw scanned or printed documents into text lines.
// Documents with machine-encoded text are read directly; everything else
// falls back to rasterization plus optical character recognition.
package acquire

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
)

// docReader abstracts the document library so the fallback logic is testable
// without real PDF fixtures.
type docReader interface {
	PageCount() int
	PageText(n int) (string, error)
	PageImage(n int) (image.Image, error)
	Close() error
}

type openFunc func(data []byte) (docReader, error)

// Acquirer produces ExtractedText from a RawDocument.
type Acquirer struct {
	recognizer service.Recognizer
	open       openFunc

	// OnProgress, when set, receives monotonically increasing values in
	// [0,1] while acquisition runs. Observability only; not part of the
	// correctness contract.
	OnProgress func(float64)

	lastProgress float64
}

// New creates an Acquirer. The recognizer may be nil, in which case documents
// without machine-encoded text fail with ErrRecognitionFailed.
func New(recognizer service.Recognizer) *Acquirer {
	return &Acquirer{
		recognizer: recognizer,
		open:       openFitz,
	}
}

func (a *Acquirer) progress(v float64) {
	if v < a.lastProgress {
		v = a.lastProgress
	}
	if v > 1 {
		v = 1
	}
	a.lastProgress = v
	if a.OnProgress != nil {
		a.OnProgress(v)
	}
}

// Acquire extracts text from the document. It either completes with the full
// line sequence or fails; it never partially delivers results.
func (a *Acquirer) Acquire(ctx context.Context, doc model.RawDocument) (model.ExtractedText, error) {
	a.lastProgress = 0
	a.progress(0)

	if len(doc.Data) == 0 {
		return model.ExtractedText{}, fmt.Errorf("%w: empty payload", common.ErrInvalidDocument)
	}

	if !doc.IsPDF() {
		// Image-only document: no direct text path exists.
		pngData, err := imageToPNG(doc.Data, doc.ContentType)
		if err != nil {
			return model.ExtractedText{}, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
		}
		a.progress(0.4)
		return a.recognize(ctx, pngData)
	}

	reader, err := a.open(doc.Data)
	if err != nil {
		return model.ExtractedText{}, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}
	defer func() { _ = reader.Close() }()
	a.progress(0.2)

	var pages []string
	for n := 0; n < reader.PageCount(); n++ {
		text, textErr := reader.PageText(n)
		if textErr != nil {
			continue
		}
		pages = append(pages, text)
	}
	direct := strings.TrimSpace(strings.Join(pages, "\n"))
	a.progress(0.5)

	if direct != "" {
		a.progress(1)
		return model.TextToLines(direct), nil
	}

	// No machine-encoded text: rasterize the first page at its intrinsic
	// resolution and hand it to the recognizer.
	img, err := reader.PageImage(0)
	if err != nil {
		return model.ExtractedText{}, fmt.Errorf("%w: rasterizing page: %v", common.ErrRecognitionFailed, err)
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return model.ExtractedText{}, fmt.Errorf("%w: encoding page: %v", common.ErrRecognitionFailed, err)
	}
	a.progress(0.7)

	return a.recognize(ctx, pngData)
}

func (a *Acquirer) recognize(ctx context.Context, pngData []byte) (model.ExtractedText, error) {
	if a.recognizer == nil {
		return model.ExtractedText{}, fmt.Errorf("%w: no recognizer configured", common.ErrRecognitionFailed)
	}

	blocks, err := a.recognizer.Recognize(ctx, pngData)
	if err != nil {
		return model.ExtractedText{}, fmt.Errorf("%w: %v", common.ErrRecognitionFailed, err)
	}

	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return model.ExtractedText{}, fmt.Errorf("%w: recognizer returned no text", common.ErrRecognitionFailed)
	}

	a.progress(1)
	return model.ExtractedText{Lines: lines}, nil
}

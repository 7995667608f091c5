package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/semaphore"
)

var (
	ErrCorruptDocument = errors.New("document is not a readable PDF")
	ErrPageOutOfRange  = errors.New("page range out of bounds")
)

const defaultMaxConcurrent = 4

// Slicer extracts 1-indexed inclusive page ranges from PDF documents.
// pdfcpu keeps whole documents in memory while working, so concurrent
// operations are bounded by a weighted semaphore.
type Slicer struct {
	conf *model.Configuration
	sem  *semaphore.Weighted
}

func NewSlicer() *Slicer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Slicer{
		conf: conf,
		sem:  semaphore.NewWeighted(defaultMaxConcurrent),
	}
}

// PageCount returns the number of pages, or ErrCorruptDocument when the
// bytes do not parse as a PDF.
func (s *Slicer) PageCount(data []byte) (int, error) {
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		return 0, err
	}
	defer s.sem.Release(1)

	count, err := api.PageCount(bytes.NewReader(data), s.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return count, nil
}

// Slice returns a new document holding pages pageFrom..pageTo inclusive.
// Out-of-range requests are rejected, never clamped: silent clamping has a
// history of producing surprising prints.
func (s *Slicer) Slice(data []byte, pageFrom, pageTo int) ([]byte, error) {
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	total, err := api.PageCount(bytes.NewReader(data), s.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	if pageFrom < 1 || pageFrom > pageTo || pageTo > total {
		return nil, fmt.Errorf("%w: %d-%d of %d pages", ErrPageOutOfRange, pageFrom, pageTo, total)
	}

	var buf bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", pageFrom, pageTo)}
	if err := api.Trim(bytes.NewReader(data), &buf, selection, s.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return buf.Bytes(), nil
}

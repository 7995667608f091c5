package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/printgate/printgate/internal/pdf"
)

type fakeGateway struct {
	mu        sync.Mutex
	orders    int
	createErr error
	verifyErr error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.orders++
	return fmt.Sprintf("order_%d", g.orders), nil
}

func (g *fakeGateway) VerifyPayment(orderID, paymentID, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyErr
}

type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	nextRef int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string][]byte)}
}

func (b *fakeBlobs) Save(_ context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextRef++
	ref := fmt.Sprintf("blob_%d", b.nextRef)
	b.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (b *fakeBlobs) Read(_ context.Context, ref string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", ref)
	}
	return data, nil
}

func (b *fakeBlobs) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, ref)
	return nil
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

type fakeSlicer struct {
	pages   int
	corrupt bool
}

func (s *fakeSlicer) PageCount(data []byte) (int, error) {
	if s.corrupt {
		return 0, fmt.Errorf("%w: bad header", pdf.ErrCorruptDocument)
	}
	return s.pages, nil
}

func (s *fakeSlicer) Slice(data []byte, pageFrom, pageTo int) ([]byte, error) {
	if s.corrupt {
		return nil, fmt.Errorf("%w: bad header", pdf.ErrCorruptDocument)
	}
	return []byte(fmt.Sprintf("sliced[%d-%d]", pageFrom, pageTo)), nil
}

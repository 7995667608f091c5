package core

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

type fakeGateway struct {
	mu          sync.Mutex
	orders      int
	createErr   error
	verifyErr   error
	lastAmount  int64
	verifyCalls int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.orders++
	g.lastAmount = amount
	return fmt.Sprintf("order_%d", g.orders), nil
}

func (g *fakeGateway) VerifyPayment(orderID, paymentID, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	return g.verifyErr
}

type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	nextRef int
	deletes int
	readErr error
	saveErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string][]byte)}
}

func (b *fakeBlobs) Save(_ context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return "", b.saveErr
	}
	b.nextRef++
	ref := fmt.Sprintf("blob_%d", b.nextRef)
	b.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (b *fakeBlobs) Read(_ context.Context, ref string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
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
	b.deletes++
	return nil
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

type fakeSlicer struct {
	pages    int
	sliceErr error
}

func (s *fakeSlicer) PageCount(data []byte) (int, error) {
	return s.pages, nil
}

func (s *fakeSlicer) Slice(data []byte, pageFrom, pageTo int) ([]byte, error) {
	if s.sliceErr != nil {
		return nil, s.sliceErr
	}
	return bytes.Join([][]byte{data, []byte(fmt.Sprintf("[%d-%d]", pageFrom, pageTo))}, nil), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) JobEvent(event string, job Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+job.ID)
}

func (n *recordingNotifier) PrinterEvent(oldState, newState PrinterState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "printer:"+string(newState.Availability))
}

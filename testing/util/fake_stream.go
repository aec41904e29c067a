package util

import (
	"context"
	"io"
	"sync"

	"github.com/prysmaticlabs/voteperf/stream"
)

// FakeSubscription replays updates pushed with Push. Recv returns io.EOF
// once End was called and the queue is empty, or the context error once the
// subscription context is done.
type FakeSubscription struct {
	ctx     context.Context
	updates chan stream.Update
	errs    chan error

	mu     sync.Mutex
	events []string
	sent   []*stream.SubscribeRequest
	recvs  int
	closed bool
}

// Recv blocks until an update is pushed.
func (s *FakeSubscription) Recv() (stream.Update, error) {
	s.mu.Lock()
	s.recvs++
	s.events = append(s.events, "recv")
	s.mu.Unlock()
	select {
	case err := <-s.errs:
		return nil, err
	case u, ok := <-s.updates:
		if !ok {
			return nil, io.EOF
		}
		return u, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

// Send records req.
func (s *FakeSubscription) Send(req *stream.SubscribeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	s.events = append(s.events, "send")
	return nil
}

// CloseSend marks the subscription closed.
func (s *FakeSubscription) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Push queues updates for Recv.
func (s *FakeSubscription) Push(updates ...stream.Update) {
	for _, u := range updates {
		s.updates <- u
	}
}

// Fail makes the next Recv return err.
func (s *FakeSubscription) Fail(err error) {
	s.errs <- err
}

// End makes Recv return io.EOF after the pushed updates.
func (s *FakeSubscription) End() {
	close(s.updates)
}

// Sent returns the requests sent after the initial subscribe request.
func (s *FakeSubscription) Sent() []*stream.SubscribeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*stream.SubscribeRequest(nil), s.sent...)
}

// Events returns the order of Recv and Send calls.
func (s *FakeSubscription) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Recvs returns the number of Recv calls so far.
func (s *FakeSubscription) Recvs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvs
}

// Closed reports whether CloseSend was called.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeClient hands out one FakeSubscription, or SubscribeErr.
type FakeClient struct {
	SubscribeErr error

	mu      sync.Mutex
	sub     *FakeSubscription
	request *stream.SubscribeRequest
	ready   chan struct{}
	closed  bool
}

// NewFakeClient returns a client whose subscription buffers up to size updates.
func NewFakeClient(size int) *FakeClient {
	return &FakeClient{
		sub: &FakeSubscription{
			updates: make(chan stream.Update, size),
			errs:    make(chan error, 1),
		},
		ready: make(chan struct{}),
	}
}

// Subscribe binds the subscription to ctx and records req.
func (c *FakeClient) Subscribe(ctx context.Context, req *stream.SubscribeRequest) (stream.Subscription, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.request = req
	c.sub.ctx = ctx
	close(c.ready)
	return c.sub, nil
}

// Close marks the client closed.
func (c *FakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Subscription returns the subscription, usable before Subscribe for Push.
func (c *FakeClient) Subscription() *FakeSubscription {
	return c.sub
}

// Subscribed is closed once Subscribe succeeded.
func (c *FakeClient) Subscribed() <-chan struct{} {
	return c.ready
}

// Request returns the request passed to Subscribe.
func (c *FakeClient) Request() *stream.SubscribeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

// IsClosed reports whether Close was called.
func (c *FakeClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

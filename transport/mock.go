package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// ErrNoResponse is returned by Mock when its queue is empty.
var ErrNoResponse = errors.New("transport: mock has no queued response")

// Mock replays queued responses in order and records every requested URL.
// It is meant for tests of code built on this module.
type Mock struct {
	mu       sync.Mutex
	queue    []mockReply
	requests []string
}

type mockReply struct {
	resp *Response
	err  error
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{}
}

// AddResponse queues a response with the given status, content type and body.
func (m *Mock) AddResponse(status int, contentType string, body []byte) *Mock {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return m.add(mockReply{resp: &Response{StatusCode: status, Header: h, Body: body}})
}

// AddError queues a transport-level failure.
func (m *Mock) AddError(err error) *Mock {
	return m.add(mockReply{err: err})
}

func (m *Mock) add(r mockReply) *Mock {
	m.mu.Lock()
	m.queue = append(m.queue, r)
	m.mu.Unlock()
	return m
}

// Requests returns the URLs fetched so far.
func (m *Mock) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Pending returns the number of queued replies not yet consumed.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Close() error { return nil }

func (m *Mock) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, url)
	if len(m.queue) == 0 {
		return nil, ErrNoResponse
	}
	r := m.queue[0]
	m.queue = m.queue[1:]
	return r.resp, r.err
}

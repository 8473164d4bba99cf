package engine

import (
	"context"
	"sync"

	"brein.evalgo.org/document"
	"brein.evalgo.org/request"
	"brein.evalgo.org/result"
)

// Callback receives the outcome of a dispatched request. It is invoked
// exactly once per accepted call, on a worker goroutine:
//
//   - success: (result, nil)
//   - non-2xx status: (result carrying status and message, http error)
//   - transport failure or cancellation: (nil, network error)
type Callback func(res *result.Result, err error)

// Call tracks one accepted request.
type Call struct {
	id       string
	kind     request.Kind
	url      string
	document document.Document

	ctx    context.Context
	cancel context.CancelFunc

	callback Callback
	once     sync.Once
	done     chan struct{}
	res      *result.Result
	err      error
}

func newCall(parent context.Context, id string, kind request.Kind, url string, doc document.Document, cb Callback) *Call {
	ctx, cancel := context.WithCancel(parent)
	return &Call{
		id:       id,
		kind:     kind,
		url:      url,
		document: doc,
		ctx:      ctx,
		cancel:   cancel,
		callback: cb,
		done:     make(chan struct{}),
	}
}

// ID returns the identifier used in logs.
func (c *Call) ID() string { return c.id }

// Kind returns the request kind.
func (c *Call) Kind() request.Kind { return c.kind }

// URL returns the target URL.
func (c *Call) URL() string { return c.url }

// Document returns a copy of the document that is sent.
func (c *Call) Document() document.Document {
	return document.CopyDocument(c.document)
}

// Cancel aborts the request. If it has not completed yet the callback
// receives a network error wrapping context.Canceled.
func (c *Call) Cancel() {
	c.cancel()
}

// Done is closed once the callback has returned.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call completes or ctx is done and returns what the
// callback received.
func (c *Call) Wait(ctx context.Context) (*result.Result, error) {
	select {
	case <-c.done:
		return c.res, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete records the outcome and runs the callback, once.
func (c *Call) complete(res *result.Result, err error) {
	c.once.Do(func() {
		c.res, c.err = res, err
		defer close(c.done)
		defer c.cancel()
		if c.callback != nil {
			c.callback(res, err)
		}
	})
}

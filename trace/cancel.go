package trace

import (
	"context"
	"io"
)

type readResult struct {
	data []byte
	err  error
}

// cancelableReader returns from Read as soon as its context is done, even
// when the underlying read is still blocked, for example on a terminal.
type cancelableReader struct {
	ctx     context.Context
	r       io.Reader
	results chan readResult
	pending bool
}

// NewCancelableReader wraps r so that a blocked Read returns the error of
// ctx once ctx is done. A read that is abandoned this way keeps running in
// the background and its data is dropped.
func NewCancelableReader(ctx context.Context, r io.Reader) io.Reader {
	return &cancelableReader{
		ctx:     ctx,
		r:       r,
		results: make(chan readResult, 1),
	}
}

func (c *cancelableReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	if !c.pending {
		c.pending = true

		buf := make([]byte, len(p))
		go func() {
			n, err := c.r.Read(buf)
			c.results <- readResult{data: buf[:n], err: err}
		}()
	}

	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	case res := <-c.results:
		c.pending = false
		n := copy(p, res.data)

		return n, res.err
	}
}

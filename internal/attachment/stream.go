package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	streamChunkSize = 32 << 10
	// streamDepth bounds how many chunks the reader may run ahead of the writer.
	streamDepth = 4
)

// Stream forwards src to dst in order, chunk by chunk, without holding the
// whole object in memory. It takes ownership of src and always closes it.
//
// Cancelling ctx (the client went away) closes src, which unblocks a pending
// read and releases the upstream connection. A read failure is returned
// wrapped in ErrStream; a write failure means the consumer is gone and is
// returned as is. written counts bytes accepted by dst.
func Stream(ctx context.Context, dst io.Writer, src io.ReadCloser) (written int64, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	context.AfterFunc(ctx, func() { _ = src.Close() })

	flush := func() {}
	if rw, ok := dst.(http.ResponseWriter); ok {
		rc := http.NewResponseController(rw)
		flush = func() { _ = rc.Flush() }
	}

	chunks := make(chan []byte, streamDepth)
	readErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, streamChunkSize)
			n, err := src.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-readErr:
					return written, fmt.Errorf("%w: read: %w", ErrStream, err)
				default:
					return written, ctx.Err()
				}
			}
			n, err := dst.Write(chunk)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("write response: %w", err)
			}
			flush()
		}
	}
}

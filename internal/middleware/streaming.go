package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout guards long transfer routes without buffering them the
// way http.TimeoutHandler does. maxDuration caps the whole exchange;
// idleTimeout cancels it when neither the request body nor the response
// has moved for that long, so a stalled upload frees the single upload slot.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			watch := &idleWatch{rc: rc, timeout: idleTimeout, cancel: cancel}
			watch.reset()
			defer watch.stop()

			if r.Body != nil {
				r.Body = &idleReader{ReadCloser: r.Body, watch: watch}
			}
			sw := &streamingWriter{ResponseWriter: w, watch: watch}

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

// idleWatch cancels the request once activity stops for timeout.
type idleWatch struct {
	rc      *http.ResponseController
	timeout time.Duration
	cancel  context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (iw *idleWatch) reset() {
	if iw.timeout <= 0 {
		return
	}

	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.timer = time.AfterFunc(iw.timeout, func() {
		// Blocked reads and writes fail right away instead of at the deadline.
		now := time.Now()
		_ = iw.rc.SetReadDeadline(now)
		_ = iw.rc.SetWriteDeadline(now)
		iw.cancel()
	})
}

func (iw *idleWatch) stop() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
}

type idleReader struct {
	io.ReadCloser
	watch *idleWatch
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.ReadCloser.Read(p)
	if n > 0 {
		ir.watch.reset()
	}
	return n, err
}

type streamingWriter struct {
	http.ResponseWriter
	watch *idleWatch
}

func (sw *streamingWriter) Write(b []byte) (int, error) {
	sw.watch.reset()
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the real writer.
func (sw *streamingWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *streamingWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

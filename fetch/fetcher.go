package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/semaphore"
)

// NoLimit, passed as size, means "no Range header at all" (spec.md
// section 4.3: "size = infinity means no Range header").
const NoLimit int64 = -1

// userAgent is sent on every request (spec.md section 4.3 and 6).
const userAgent = "Kinetoscope/1.0"

// Fetcher issues single-flight, range-capable GET requests and streams
// the body to a caller-supplied callback. The pack has no third-party
// HTTP client anywhere (helixml-helix's own callers reach for plain
// net/http too), so this wraps http.Client directly -- the corpus
// default, not a fallback. Concurrency -- "exactly one fetch in
// flight" -- is enforced with a weighted semaphore of size 1, the same
// primitive five82/reel pulls in golang.org/x/sync for.
type Fetcher struct {
	client *http.Client
	sem    *semaphore.Weighted

	mu         sync.Mutex
	lastTarget string // host:port of the most recent fetch's target
}

// New returns a Fetcher with its own persistent-connection pool.
func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			// Redirects are out of scope; report them as errors instead
			// of following them (spec.md section 4.3).
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sem: semaphore.NewWeighted(1),
	}
}

// ResetConnections drops all pooled idle connections. Exposed so tests
// can start each case from a clean connection-pool state (spec.md
// design notes: "the HTTP client's persistent-connection pool ... must
// be resettable for tests").
func (f *Fetcher) ResetConnections() {
	if t, ok := f.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// Fetch issues GET rawURL with an optional Range header covering
// [firstByte, firstByte+size), streaming the response body to onBytes.
// onDone is invoked exactly once, after the transfer completes,
// fails, or is cancelled. Fetch runs the request on its own goroutine,
// so it returns immediately; this is the "async on emulation,
// worker-thread on firmware" split spec.md section 4.3 describes,
// unified here because a goroutine already behaves like a worker
// thread from the caller's point of view.
//
// Calling Fetch again before onDone has fired for a prior call is a
// programming error (spec.md section 4.3): it panics rather than
// silently queuing or clobbering the in-flight request.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, firstByte, size int64, onBytes func([]byte) bool, onDone func(ok bool, err error)) {
	if !f.sem.TryAcquire(1) {
		panic(ErrBusy)
	}

	go func() {
		ok, err := f.do(ctx, rawURL, firstByte, size, onBytes)
		f.sem.Release(1)
		onDone(ok, err)
	}()
}

func (f *Fetcher) do(ctx context.Context, rawURL string, firstByte, size int64, onBytes func([]byte) bool) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	f.mu.Lock()
	if f.lastTarget != u.Host {
		if f.lastTarget != "" {
			f.ResetConnections()
		}
		f.lastTarget = u.Host
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Connection", "keep-alive")
	if size != NoLimit {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", firstByte, firstByte+size-1))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return false, ErrRedirectUnsupported
	case size != NoLimit && resp.StatusCode == http.StatusOK:
		return false, ErrRangeUnsupported
	case size != NoLimit && resp.StatusCode != http.StatusPartialContent:
		return false, &HTTPStatusError{StatusCode: resp.StatusCode}
	case size == NoLimit && resp.StatusCode != http.StatusOK:
		return false, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if !onBytes(buf[:n]) {
				return false, ErrCancelled
			}
		}
		if readErr == io.EOF {
			return true, nil
		}
		if readErr != nil {
			return false, fmt.Errorf("%w: %v", ErrTransport, readErr)
		}
	}
}

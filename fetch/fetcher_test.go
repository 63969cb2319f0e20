package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func collectBytes(f *Fetcher, url string, first, size int64) ([]byte, bool, error) {
	var mu sync.Mutex
	var buf []byte
	done := make(chan struct{})
	var ok bool
	var retErr error

	f.Fetch(context.Background(), url, first, size,
		func(p []byte) bool {
			mu.Lock()
			buf = append(buf, p...)
			mu.Unlock()
			return true
		},
		func(o bool, e error) {
			ok, retErr = o, e
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		panic("fetch did not complete in time")
	}
	return buf, ok, retErr
}

func TestFetchRangedRequest(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "body.bin", time.Unix(0, 0), bytes.NewReader(body))
	}))
	defer server.Close()

	f := New()
	got, ok, err := collectBytes(f, server.URL, 4, 5)
	if err != nil || !ok {
		t.Fatalf("Fetch failed: ok=%v err=%v", ok, err)
	}
	if string(got) != "quick" {
		t.Errorf("got %q, want %q", got, "quick")
	}
}

func TestFetchNoLimitSendsNoRangeHeader(t *testing.T) {
	body := []byte("whole body, no range")
	var sawRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRange = r.Header.Get("Range")
		w.Write(body)
	}))
	defer server.Close()

	f := New()
	got, ok, err := collectBytes(f, server.URL, 0, NoLimit)
	if err != nil || !ok {
		t.Fatalf("Fetch failed: ok=%v err=%v", ok, err)
	}
	if string(got) != string(body) {
		t.Errorf("got %q, want %q", got, body)
	}
	if sawRange != "" {
		t.Errorf("expected no Range header, got %q", sawRange)
	}
}

func TestFetchRangeUnsupportedWhenServerIgnoresRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // should have been 206
		w.Write([]byte("ignoring your range header"))
	}))
	defer server.Close()

	f := New()
	_, ok, err := collectBytes(f, server.URL, 0, 5)
	if ok || !errors.Is(err, ErrRangeUnsupported) {
		t.Errorf("got ok=%v err=%v, want ok=false err=ErrRangeUnsupported", ok, err)
	}
}

func TestFetchHTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := New()
	_, ok, err := collectBytes(f, server.URL, 0, NoLimit)
	if ok {
		t.Fatal("expected ok=false for a 404 response")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("got %v, want *HTTPStatusError{404}", err)
	}
}

func TestFetchRedirectUnsupported(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should never get here"))
	}))
	defer target.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirector.Close()

	f := New()
	_, ok, err := collectBytes(f, redirector.URL, 0, NoLimit)
	if ok || !errors.Is(err, ErrRedirectUnsupported) {
		t.Errorf("got ok=%v err=%v, want ok=false err=ErrRedirectUnsupported", ok, err)
	}
}

func TestFetchCancellationViaOnBytes(t *testing.T) {
	body := make([]byte, 1<<20) // large enough to span multiple reads
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	f := New()
	done := make(chan struct{})
	var ok bool
	var retErr error
	seen := 0

	f.Fetch(context.Background(), server.URL, 0, NoLimit,
		func(p []byte) bool {
			seen += len(p)
			return false // cancel after the first chunk
		},
		func(o bool, e error) {
			ok, retErr = o, e
			close(done)
		},
	)

	<-done
	if ok || !errors.Is(retErr, ErrCancelled) {
		t.Errorf("got ok=%v err=%v, want ok=false err=ErrCancelled", ok, retErr)
	}
	if seen == 0 {
		t.Error("onBytes was never called")
	}
}

func TestFetchSecondCallBeforeDonePanics(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	f := New()
	f.Fetch(context.Background(), server.URL, 0, NoLimit, func(p []byte) bool { return true }, func(bool, error) {})

	defer func() {
		if recover() == nil {
			t.Error("expected a panic from a second concurrent Fetch call")
		}
	}()
	f.Fetch(context.Background(), server.URL, 0, NoLimit, func(p []byte) bool { return true }, func(bool, error) {})
}

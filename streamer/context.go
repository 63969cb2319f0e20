package streamer

import (
	"fmt"
	"sync"
	"time"

	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/fetch"
	"github.com/kinetoscope/streamer/internal/klog"
	"github.com/kinetoscope/streamer/sram"
	"github.com/kinetoscope/streamer/transport"
)

// State is the streamer's own state, spec.md section 3: "Streamer
// state ∈ {Idle, Busy, EmittingError}".
type State int

const (
	StateIdle State = iota
	StateBusy
	StateEmittingError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBusy:
		return "Busy"
	case StateEmittingError:
		return "EmittingError"
	default:
		return "Unknown"
	}
}

// options holds the streamer's configuration, set via functional
// options the way device/device_config.go's config struct is (teacher
// pattern).
type options struct {
	processingDelay time.Duration
	echoTimeout     time.Duration
	connectTimeout  time.Duration
	otherTimeout    time.Duration
	serverHost      string
	serverPort      int
	catalogPath     string
	logger          *klog.Logger
}

func defaultOptions() options {
	return options{
		// spec.md section 9: "the source uses 100 ms in emulation".
		processingDelay: 100 * time.Millisecond,
		echoTimeout:     5 * time.Second,
		connectTimeout:  40 * time.Second,
		otherTimeout:    30 * time.Second,
		serverHost:      "storage.googleapis.com",
		serverPort:      80,
		catalogPath:     "catalog.bin",
	}
}

// Option configures a Context. See WithProcessingDelay, WithTimeouts,
// and WithOrigin.
type Option func(*options)

// WithProcessingDelay overrides the simulated per-command processing
// delay (spec.md section 4.4 and section 9's Open Question 2: "treat
// as a config knob").
func WithProcessingDelay(d time.Duration) Option {
	return func(o *options) { o.processingDelay = d }
}

// WithTimeouts overrides the three command timeout classes (spec.md
// section 5: "ECHO 5s, CONNECT_NET 40s, others 30s"). Only otherTimeout
// bounds anything on the streamer side: it is threaded as a
// context.WithTimeout into every origin fetch LIST_VIDEOS,
// START_VIDEO, and FLIP_REGION issue, and an expiry raises
// errCommandTimeout (see fetchTimedOut). cmdEcho and cmdConnectNet do
// no I/O of their own in this emulation -- there is nothing for
// echoTimeout/connectTimeout to bound here -- so those two classes are
// carried only for parity with player.Machine's identical option
// struct, where sendCommand's own poll-with-deadline is what actually
// enforces them.
func WithTimeouts(echo, connect, other time.Duration) Option {
	return func(o *options) {
		o.echoTimeout = echo
		o.connectTimeout = connect
		o.otherTimeout = other
	}
}

// WithOrigin overrides the compile-time (server_host, server_port,
// catalog_path) configuration (spec.md section 6).
func WithOrigin(host string, port int, catalogPath string) Option {
	return func(o *options) {
		o.serverHost = host
		o.serverPort = port
		o.catalogPath = catalogPath
	}
}

// WithLogger attaches a logger. Unset, a Context logs nothing: klog's
// nil-receiver no-op means the zero value of Context.log already
// behaves this way, so this option is purely opt-in.
func WithLogger(l *klog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// videoState holds the volatile per-playback metadata spec.md section 6
// calls out as the streamer's only stored state besides the current
// error string: "current error string, video URL, chunk index".
type videoState struct {
	active      bool
	videoURL    string
	compressed  bool
	chunkSize   int64
	totalChunks int
	index       container.VideoIndex
	// rawBodyOffset is the byte offset, within the video file, where
	// chunk data begins: sizeof(header) and, if compressed, also
	// sizeof(VideoIndex).
	rawBodyOffset int64

	// chunksRequested counts how many chunks START_VIDEO/FLIP_REGION
	// have started a fetch for so far.
	chunksRequested int
}

// Context is the streamer's single mutable record (spec.md section 9:
// "All streamer state lives in one record ... tests construct fresh
// contexts"). It is the spec's StreamerContext.
type Context struct {
	bank    sram.BankWriter
	win     *transport.ControlWindow
	fetcher *fetch.Fetcher
	opts    options
	log     *klog.Logger

	mu              sync.Mutex
	state           State
	currentError    string
	errSet          bool
	fetchBusy       bool
	cancelRequested bool
	video           videoState

	// onFetchDone is invoked by the currently in-flight fetch's
	// completion callback. Only ever one non-nil at a time, because
	// only one fetch is ever in flight (spec.md section 4.3).
	onFetchDone func(ok bool, err error)
}

// NewContext constructs a Context. bank and win are required; fetcher
// defaults to a fresh fetch.New() if nil.
func NewContext(bank sram.BankWriter, win *transport.ControlWindow, fetcher *fetch.Fetcher, opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Context{
		bank:    bank,
		win:     win,
		fetcher: fetcher,
		opts:    o,
		log:     o.logger,
		state:   StateIdle,
	}
}

// State returns the streamer's current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// originURL builds an absolute URL for a path on the configured origin
// (spec.md section 6).
func (c *Context) originURL(path string) string {
	return fmt.Sprintf("http://%s:%d/%s", c.opts.serverHost, c.opts.serverPort, path)
}

// catalogURL returns the catalog's well-known URL.
func (c *Context) catalogURL() string {
	return c.originURL(c.opts.catalogPath)
}

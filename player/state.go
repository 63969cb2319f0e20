package player

import (
	"time"

	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/internal/klog"
	"github.com/kinetoscope/streamer/sram"
	"github.com/kinetoscope/streamer/streamer"
	"github.com/kinetoscope/streamer/transport"
)

// State is the player's state, spec.md section 3: "Player state ∈
// {Idle, Setup, Menu, Player, Error}".
type State int

const (
	StateIdle State = iota
	StateSetup
	StateMenu
	StatePlayer
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSetup:
		return "Setup"
	case StateMenu:
		return "Menu"
	case StatePlayer:
		return "Player"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// SRAMReader is the console's read-side view of SRAM, satisfied by
// both sram.Emulated and sram.Hardware.
type SRAMReader interface {
	ReadAt(b sram.Bank, offset int64, n int) []byte
}

// options holds the player's timing configuration, following the same
// functional-options shape as streamer.Option.
type options struct {
	echoTimeout    time.Duration
	connectTimeout time.Duration
	otherTimeout   time.Duration
	pollInterval   time.Duration
	logger         *klog.Logger
}

func defaultOptions() options {
	return options{
		// spec.md section 5: "Per-command: ECHO 5s, CONNECT_NET 40s,
		// others 30s."
		echoTimeout:    5 * time.Second,
		connectTimeout: 40 * time.Second,
		otherTimeout:   30 * time.Second,
		pollInterval:   time.Millisecond,
	}
}

// Option configures a Machine.
type Option func(*options)

// WithTimeouts overrides the three command timeout classes.
func WithTimeouts(echo, connect, other time.Duration) Option {
	return func(o *options) {
		o.echoTimeout = echo
		o.connectTimeout = connect
		o.otherTimeout = other
	}
}

// WithPollInterval overrides how often the player polls CMD_TOKEN while
// awaiting a reply. The default is 1 ms, the firmware's polling
// granularity.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithLogger attaches a logger; unset, a Machine logs nothing.
func WithLogger(l *klog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// playback holds the state only meaningful while StatePlayer is active.
type playback struct {
	header          container.VideoHeader
	totalChunks     int
	currentChunk    int
	chunkBaseOffset int64 // offset of the current chunk's ChunkHeader within its bank
	bank            sram.Bank
	info            container.ChunkInfo
	nextFrameNum    uint32
}

// Machine is the console-side player state machine. It owns no
// goroutines: Tick (vertical blank) and the menu-input methods are all
// called synchronously by the embedding harness.
type Machine struct {
	win   *transport.ControlWindow
	sramR SRAMReader
	audio AudioDriver
	sink  FrameSink
	opts  options
	log   *klog.Logger

	state         State
	catalog       []Entry
	selectedIndex int
	lastError     string
	play          playback
}

// NewMachine constructs a Machine in StateIdle.
func NewMachine(win *transport.ControlWindow, sramR SRAMReader, audio AudioDriver, sink FrameSink, opts ...Option) *Machine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Machine{win: win, sramR: sramR, audio: audio, sink: sink, opts: o, log: o.logger, state: StateIdle}
}

// State returns the player's current state.
func (m *Machine) State() State { return m.state }

// LastError returns the most recently fetched streamer error string.
func (m *Machine) LastError() string { return m.lastError }

// Catalog returns the most recently parsed catalog, valid once State()
// is StateMenu or StatePlayer.
func (m *Machine) Catalog() []Entry { return m.catalog }

// Selected returns the currently highlighted catalog index.
func (m *Machine) Selected() int { return m.selectedIndex }

// sendCommand issues cmd/arg over the transport and blocks (polling)
// until CMD_TOKEN clears or timeout elapses (spec.md section 5: the
// player's busy-wait suspension point). Returns ErrCommandTimeout on
// timeout and ErrStreamerError if ERR_TOKEN was raised.
func (m *Machine) sendCommand(cmd uint8, arg uint16, timeout time.Duration) error {
	m.win.WriteCommand(cmd)
	m.win.WriteArg(arg)
	m.win.SetCmdToken()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(m.opts.pollInterval)
	defer ticker.Stop()
	for m.win.ReadCmdToken() {
		if time.Now().After(deadline) {
			return ErrCommandTimeout
		}
		<-ticker.C
	}
	if m.win.ReadErrToken() {
		return ErrStreamerError
	}
	return nil
}

// Boot drives Idle -> Setup -> Menu (or Error), spec.md section 4.5.
func (m *Machine) Boot() {
	m.log.Info("boot: entering setup")
	m.state = StateSetup
	m.runSetup()
}

func (m *Machine) runSetup() {
	for _, probe := range [2]uint16{0x55, 0xAA} {
		if err := m.sendCommand(streamer.CmdEcho, probe, m.opts.echoTimeout); err != nil {
			m.enterError()
			return
		}
		if got := m.sramR.ReadAt(sram.Bank0, 0, 1); got[0] != byte(probe) {
			m.lastError = ErrHandshakeMismatch.Error()
			m.enterError()
			return
		}
	}

	if err := m.sendCommand(streamer.CmdConnectNet, 0, m.opts.connectTimeout); err != nil {
		m.enterError()
		return
	}

	m.enterMenu()
}

// enterMenu fetches and parses the catalog, then transitions to
// StateMenu (or StateError on failure).
func (m *Machine) enterMenu() {
	if err := m.sendCommand(streamer.CmdListVideos, 0, m.opts.otherTimeout); err != nil {
		m.enterError()
		return
	}

	buf := m.sramR.ReadAt(sram.Bank0, 0, sram.BankSize)
	entries, err := parseCatalog(buf)
	if err != nil {
		m.enterError()
		return
	}

	m.catalog = entries
	m.selectedIndex = 0
	m.state = StateMenu
	m.log.Info("entered menu: %d catalog entries", len(entries))
}

// SelectNext/SelectPrev move the menu cursor (spec.md section 4.5:
// "Menu: input navigates selected_index").
func (m *Machine) SelectNext() {
	if len(m.catalog) == 0 {
		return
	}
	m.selectedIndex = (m.selectedIndex + 1) % len(m.catalog)
}

func (m *Machine) SelectPrev() {
	if len(m.catalog) == 0 {
		return
	}
	m.selectedIndex = (m.selectedIndex - 1 + len(m.catalog)) % len(m.catalog)
}

// Confirm starts playback of the selected catalog entry (Menu -> Player).
func (m *Machine) Confirm() error {
	if m.state != StateMenu {
		return nil
	}
	if len(m.catalog) == 0 {
		return ErrNoCatalog
	}
	index := m.catalog[m.selectedIndex].Index

	if err := m.sendCommand(streamer.CmdStartVideo, uint16(index), m.opts.otherTimeout); err != nil {
		m.enterError()
		return err
	}

	headerBuf := m.sramR.ReadAt(sram.Bank0, 0, container.HeaderSize)
	header, err := container.ParseHeader(headerBuf)
	if err != nil {
		m.enterError()
		return err
	}

	m.play = playback{
		header:          header,
		totalChunks:     int(header.TotalChunks),
		currentChunk:    0,
		chunkBaseOffset: int64(container.HeaderSize),
		bank:            sram.Bank0,
	}
	if err := m.loadCurrentChunk(); err != nil {
		m.enterError()
		return err
	}
	m.startAudioForCurrentChunk()
	m.state = StatePlayer
	m.log.Info("playing index=%d title=%q chunks=%d", index, header.Title, header.TotalChunks)
	return nil
}

// Stop ends playback (Player -> Menu), spec.md section 4.4's STOP_VIDEO.
func (m *Machine) Stop() {
	if m.state != StatePlayer {
		return
	}
	_ = m.sendCommand(streamer.CmdStopVideo, 0, m.opts.otherTimeout)
	m.audio.ClearLoop()
	m.state = StateMenu
	m.log.Info("stopped playback, back to menu")
}

// DismissError clears ERR and returns to Menu, or back to Setup if no
// catalog has ever been loaded (spec.md section 4.5's Error state).
func (m *Machine) DismissError() {
	if m.state != StateError {
		return
	}
	_ = m.sendCommand(streamer.CmdGetError, 0, m.opts.otherTimeout)
	errBuf := m.sramR.ReadAt(sram.Bank0, 0, 256)
	m.lastError = nulTerminatedString(errBuf)
	m.win.ClearErrToken()
	m.log.Info("dismissed error: %q", m.lastError)

	if len(m.catalog) == 0 {
		m.state = StateSetup
		m.runSetup()
		return
	}
	m.state = StateMenu
}

// enterError transitions to StateError. The error string itself is
// fetched lazily by DismissError's explicit GET_ERROR round-trip,
// matching spec.md section 4.5: "Error: emits GET_ERROR, displays
// string, waits for dismissal".
func (m *Machine) enterError() {
	m.log.Warn("entering error state (was %s)", m.state)
	m.state = StateError
}

// loadCurrentChunk parses the ChunkHeader at the current chunk's base
// offset within its bank (spec.md section 4.1's parse_chunk).
func (m *Machine) loadCurrentChunk() error {
	raw := m.sramR.ReadAt(m.play.bank, m.play.chunkBaseOffset, int(container.ChunkHeaderSize))
	info, err := container.ParseChunk(raw)
	if err != nil {
		return err
	}
	m.play.info = info
	m.play.nextFrameNum = 0
	return nil
}

func nulTerminatedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

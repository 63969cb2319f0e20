package player

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/fetch"
	"github.com/kinetoscope/streamer/sram"
	"github.com/kinetoscope/streamer/streamer"
	"github.com/kinetoscope/streamer/transport"
)

func splitHostPortTest(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host/port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}

// buildPlaybackVideo encodes a raw, multi-chunk video whose chunks each
// carry framesPerChunk frames and samplesPerChunk bytes of 8-bit audio,
// the same shape cmd/kinetoscope-emu's demo origin builds.
func buildPlaybackVideo(frameRate, sampleRate uint16, chunkCount, framesPerChunk, samplesPerChunk int) (video, catalog []byte) {
	chunk := func() []byte {
		buf := container.EncodeChunkHeader(container.ChunkHeader{
			AudioSampleCount: uint32(samplesPerChunk),
			FrameCount:       uint16(framesPerChunk),
		})
		buf = append(buf, make([]byte, samplesPerChunk)...)
		buf = append(buf, make([]byte, framesPerChunk*container.FrameSize)...)
		return buf
	}
	var body []byte
	for i := 0; i < chunkCount; i++ {
		body = append(body, chunk()...)
	}
	chunkSize := len(body) / chunkCount

	header := container.VideoHeader{
		FormatVersion: container.FormatVersion,
		FrameRate:     frameRate,
		SampleRate:    sampleRate,
		TotalFrames:   uint32(framesPerChunk * chunkCount),
		TotalSamples:  uint32(samplesPerChunk * chunkCount),
		ChunkSize:     uint32(chunkSize),
		TotalChunks:   uint32(chunkCount),
		Title:         "Test Reel",
		RelativeURL:   "videos/test.bin",
	}
	video = append(container.EncodeHeader(header), body...)
	catalog = container.BuildCatalog([]container.VideoHeader{header}, true)
	return video, catalog
}

// newHarness wires a real streamer.Context (driven by its own Run
// goroutine, stopped at test cleanup) to a fresh Machine, both sharing
// the same control window and SRAM, against an httptest origin serving
// the given video. This exercises Machine against the genuine streamer
// implementation rather than a hand-rolled stub.
func newHarness(t *testing.T, video, catalog []byte, opts ...Option) (*Machine, *FakeAudioDriver, *NullFrameSink) {
	t.Helper()

	mux := http.NewServeMux()
	modTime := time.Unix(0, 0)
	mux.HandleFunc("/catalog.bin", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "catalog.bin", modTime, bytes.NewReader(catalog))
	})
	mux.HandleFunc("/videos/test.bin", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "test.bin", modTime, bytes.NewReader(video))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	host, port := splitHostPortTest(t, server.URL)

	bank := sram.NewEmulated()
	win := transport.NewControlWindow()
	streamCtx := streamer.NewContext(bank, win, fetch.New(),
		streamer.WithOrigin(host, port, "catalog.bin"),
		streamer.WithProcessingDelay(0),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go streamCtx.Run(runCtx)

	audio := NewFakeAudioDriver()
	sink := &NullFrameSink{}
	allOpts := append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	m := NewMachine(win, bank, audio, sink, allOpts...)
	return m, audio, sink
}

func TestBootSucceedsAndEntersMenu(t *testing.T) {
	video, catalog := buildPlaybackVideo(10, 20, 2, 2, 4)
	m, _, _ := newHarness(t, video, catalog)

	m.Boot()
	if m.State() != StateMenu {
		t.Fatalf("state = %s, want Menu (lastError=%q)", m.State(), m.LastError())
	}
	if len(m.Catalog()) != 1 || m.Catalog()[0].Title != "Test Reel" {
		t.Fatalf("catalog = %+v, want one entry titled Test Reel", m.Catalog())
	}
}

// startStubResponder runs a minimal, test-only command responder that
// answers whatever the harness's handle function decides, instead of
// a full streamer.Context -- used for the handshake-failure paths,
// where the point is to inject a specific misbehaving reply rather
// than exercise the real streamer end to end.
func startStubResponder(t *testing.T, win *transport.ControlWindow, handle func(cmd uint8, arg uint16) bool) {
	t.Helper()
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if win.ReadCmdToken() {
					cmd, arg := win.ReadCommandAndArg()
					if handle(cmd, arg) {
						win.ClearCmdToken()
					}
				}
			}
		}
	}()
}

func TestBootHandshakeMismatch(t *testing.T) {
	bank := sram.NewEmulated()
	win := transport.NewControlWindow()
	startStubResponder(t, win, func(cmd uint8, arg uint16) bool {
		if cmd != streamer.CmdEcho {
			return false
		}
		bank.StartBank(sram.Bank0)
		bank.Write([]byte{byte(arg) ^ 0xFF, byte(arg >> 8)}) // deliberately wrong
		bank.FlushAndRelease()
		return true
	})

	m := NewMachine(win, bank, NewFakeAudioDriver(), &NullFrameSink{}, WithPollInterval(time.Millisecond))
	m.Boot()

	if m.State() != StateError {
		t.Fatalf("state = %s, want Error", m.State())
	}
	if m.LastError() != ErrHandshakeMismatch.Error() {
		t.Errorf("LastError() = %q, want %q", m.LastError(), ErrHandshakeMismatch.Error())
	}
}

func TestBootConnectNetTimeout(t *testing.T) {
	bank := sram.NewEmulated()
	win := transport.NewControlWindow()
	startStubResponder(t, win, func(cmd uint8, arg uint16) bool {
		if cmd != streamer.CmdEcho {
			return false // never answer CONNECT_NET: forces a timeout
		}
		bank.StartBank(sram.Bank0)
		bank.Write([]byte{byte(arg), byte(arg >> 8)})
		bank.FlushAndRelease()
		return true
	})

	m := NewMachine(win, bank, NewFakeAudioDriver(), &NullFrameSink{},
		WithPollInterval(time.Millisecond),
		WithTimeouts(50*time.Millisecond, 50*time.Millisecond, 50*time.Millisecond),
	)
	m.Boot()

	if m.State() != StateError {
		t.Fatalf("state = %s, want Error", m.State())
	}
}

func TestSelectNextPrevWraparound(t *testing.T) {
	m := &Machine{
		catalog: []Entry{{Title: "A", Index: 0}, {Title: "B", Index: 1}, {Title: "C", Index: 2}},
		state:   StateMenu,
	}
	if m.Selected() != 0 {
		t.Fatalf("Selected() = %d, want 0", m.Selected())
	}
	m.SelectNext()
	m.SelectNext()
	m.SelectNext() // wraps back to 0
	if m.Selected() != 0 {
		t.Errorf("after three SelectNext, Selected() = %d, want 0", m.Selected())
	}
	m.SelectPrev() // wraps to the last entry
	if m.Selected() != 2 {
		t.Errorf("after SelectPrev from 0, Selected() = %d, want 2", m.Selected())
	}
}

func TestSelectNextPrevEmptyCatalogIsNoOp(t *testing.T) {
	m := &Machine{state: StateMenu}
	m.SelectNext()
	m.SelectPrev()
	if m.Selected() != 0 {
		t.Errorf("Selected() = %d, want 0 on an empty catalog", m.Selected())
	}
}

func TestConfirmWithoutCatalogReturnsError(t *testing.T) {
	m := &Machine{state: StateMenu}
	if err := m.Confirm(); err != ErrNoCatalog {
		t.Errorf("Confirm() = %v, want ErrNoCatalog", err)
	}
	if m.State() != StateMenu {
		t.Errorf("state = %s, want unchanged Menu", m.State())
	}
}

func TestConfirmOutsideMenuIsNoOp(t *testing.T) {
	m := &Machine{state: StateIdle}
	if err := m.Confirm(); err != nil {
		t.Errorf("Confirm() outside Menu = %v, want nil", err)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %s, want unchanged Idle", m.State())
	}
}

// TestFullPlaybackCycle drives Confirm through both chunks of a
// two-chunk video, advancing the fake audio clock one sample at a time
// exactly as a real VBlank-driven console would, and checks that every
// frame of both chunks was uploaded in order before the machine falls
// back to Menu.
func TestFullPlaybackCycle(t *testing.T) {
	const (
		frameRate      = 10
		sampleRate     = 20
		chunkCount     = 2
		framesPerChunk = 2
		samplesPerChunk = 4
	)
	video, catalog := buildPlaybackVideo(frameRate, sampleRate, chunkCount, framesPerChunk, samplesPerChunk)
	m, audio, sink := newHarness(t, video, catalog)

	m.Boot()
	if m.State() != StateMenu {
		t.Fatalf("Boot failed: state=%s lastError=%q", m.State(), m.LastError())
	}
	if err := m.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if m.State() != StatePlayer {
		t.Fatalf("state = %s, want Player", m.State())
	}

	for ticks := 0; m.State() == StatePlayer && ticks < 1000; ticks++ {
		audio.Advance(1)
		m.Tick()
	}

	if m.State() != StateMenu {
		t.Fatalf("state after playback = %s, want Menu", m.State())
	}
	wantFrames := framesPerChunk * chunkCount
	if sink.TilesUploaded != wantFrames || sink.PalettesUploaded != wantFrames || sink.Committed != wantFrames {
		t.Errorf("sink = %+v, want %d uploads of each kind", sink, wantFrames)
	}
}

func TestStopEndsPlaybackAndClearsLoop(t *testing.T) {
	video, catalog := buildPlaybackVideo(10, 20, 2, 2, 4)
	m, audio, _ := newHarness(t, video, catalog)

	m.Boot()
	if err := m.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if m.State() != StatePlayer {
		t.Fatalf("state = %s, want Player", m.State())
	}

	// Frame 0 of a two-frame chunk is the step-8 frame: it points the
	// loop target at chunk 1's audio.
	audio.Advance(1)
	m.Tick()
	if !audio.hasNext {
		t.Fatal("loop target not set after frame 0")
	}

	m.Stop()
	if m.State() != StateMenu {
		t.Errorf("state after Stop = %s, want Menu", m.State())
	}
	if audio.hasNext {
		t.Error("Stop should clear the audio loop target")
	}
}

func TestDismissErrorWithCatalogReturnsToMenu(t *testing.T) {
	bank := sram.NewEmulated()
	win := transport.NewControlWindow()
	startStubResponder(t, win, func(cmd uint8, arg uint16) bool {
		if cmd != streamer.CmdGetError {
			return false
		}
		bank.StartBank(sram.Bank0)
		bank.Write([]byte("boom"))
		bank.Write([]byte{0})
		bank.FlushAndRelease()
		return true
	})

	m := &Machine{
		win: win, sramR: bank, audio: NewFakeAudioDriver(), sink: &NullFrameSink{},
		opts:    options{otherTimeout: time.Second, pollInterval: time.Millisecond},
		state:   StateError,
		catalog: []Entry{{Title: "A", Index: 0}},
	}
	m.DismissError()

	if m.State() != StateMenu {
		t.Fatalf("state = %s, want Menu", m.State())
	}
	if m.LastError() != "boom" {
		t.Errorf("LastError() = %q, want %q", m.LastError(), "boom")
	}
	if win.ReadErrToken() {
		t.Error("ERR_TOKEN should be cleared by DismissError")
	}
}

func TestDismissErrorWithoutCatalogReentersSetup(t *testing.T) {
	video, catalog := buildPlaybackVideo(10, 20, 1, 1, 4)
	m, _, _ := newHarness(t, video, catalog)

	// Force an Error state with no catalog loaded, the way a failed
	// Boot would have left it.
	m.state = StateError

	m.DismissError()

	// With no catalog, DismissError falls back into the full Setup
	// handshake; against a healthy origin that ends in Menu.
	if m.State() != StateMenu {
		t.Fatalf("state = %s, want Menu after re-running setup (lastError=%q)", m.State(), m.LastError())
	}
	if len(m.Catalog()) != 1 {
		t.Errorf("catalog = %+v, want one entry", m.Catalog())
	}
}

// Command kinetoscope-emu wires an in-process HTTP origin, an emulated
// SRAM cartridge, a streamer.Context, and a player.Machine together so
// the whole stack can be exercised without real hardware or a network.
// Grounded on examples/capture/capture.go's flag-parsed, fail-fast
// leaf-package wiring shape.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/fetch"
	"github.com/kinetoscope/streamer/internal/klog"
	"github.com/kinetoscope/streamer/player"
	"github.com/kinetoscope/streamer/sram"
	"github.com/kinetoscope/streamer/streamer"
	"github.com/kinetoscope/streamer/transport"
)

func main() {
	verbose := false
	flag.BoolVar(&verbose, "v", false, "enable debug logging")
	flag.Parse()

	level := klog.LevelInfo
	if verbose {
		level = klog.LevelDebug
	}
	logger := klog.New(os.Stdout, level)

	origin := newSyntheticOrigin()
	server := httptest.NewServer(origin.mux())
	defer server.Close()

	host, port, err := splitHostPort(server.URL)
	if err != nil {
		log.Fatalf("failed to parse origin URL: %s", err)
	}

	bank := sram.NewEmulated()
	win := transport.NewControlWindow()

	ctx := streamer.NewContext(bank, win, fetch.New(),
		streamer.WithOrigin(host, port, "catalog.bin"),
		streamer.WithProcessingDelay(10*time.Millisecond),
		streamer.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctx.Run(runCtx)

	audio := player.NewFakeAudioDriver()
	sink := &player.NullFrameSink{}
	m := player.NewMachine(win, bank, audio, sink,
		player.WithPollInterval(time.Millisecond),
		player.WithLogger(logger),
	)

	m.Boot()
	if m.State() != player.StateMenu {
		log.Fatalf("boot failed, player state: %s (error: %q)", m.State(), m.LastError())
	}

	fmt.Println("catalog:")
	for _, entry := range m.Catalog() {
		fmt.Printf("  [%d] %s\n", entry.Index, entry.Title)
	}

	if err := m.Confirm(); err != nil {
		log.Fatalf("failed to start playback: %s", err)
	}

	// Drive the frame-sync loop by hand, one sample of simulated DMA
	// progress per tick, the way a real VBlank interrupt would observe
	// a free-running audio pointer rather than a fixed per-frame jump.
	for ticks := 0; m.State() == player.StatePlayer && ticks < 10000; ticks++ {
		audio.Advance(1)
		m.Tick()
	}

	fmt.Printf("playback ended in state %s; uploaded %d frames\n", m.State(), sink.TilesUploaded)
}

func splitHostPort(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, err
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// syntheticOrigin serves a tiny one-video catalog entirely from memory,
// standing in for the real storage.googleapis.com origin (spec.md
// section 6).
type syntheticOrigin struct {
	catalogBytes []byte
	videoBytes   []byte
}

func newSyntheticOrigin() *syntheticOrigin {
	const (
		frameRate  = 10
		sampleRate = 20
		chunkCount = 2
		framesPer  = 2
		samplesPer = 4 // 2 frames worth at frameRate=10, sampleRate=20
	)

	chunk := func() []byte {
		var buf bytes.Buffer
		buf.Write(container.EncodeChunkHeader(container.ChunkHeader{
			AudioSampleCount: samplesPer,
			FrameCount:       framesPer,
		}))
		buf.Write(make([]byte, samplesPer)) // silence
		buf.Write(make([]byte, framesPer*container.FrameSize))
		return buf.Bytes()
	}

	var body bytes.Buffer
	for i := 0; i < chunkCount; i++ {
		body.Write(chunk())
	}
	chunkSize := body.Len() / chunkCount

	header := container.VideoHeader{
		FormatVersion: container.FormatVersion,
		FrameRate:     frameRate,
		SampleRate:    sampleRate,
		TotalFrames:   framesPer * chunkCount,
		TotalSamples:  samplesPer * chunkCount,
		ChunkSize:     uint32(chunkSize),
		TotalChunks:   chunkCount,
		Title:         "Sample Reel",
		RelativeURL:   "videos/sample.bin",
		Compression:   0,
	}

	var videoFile bytes.Buffer
	videoFile.Write(container.EncodeHeader(header))
	videoFile.Write(body.Bytes())

	catalogHeader := header
	catalogHeader.Compression = 0
	catalog := container.BuildCatalog([]container.VideoHeader{catalogHeader}, true)

	return &syntheticOrigin{
		catalogBytes: catalog,
		videoBytes:   videoFile.Bytes(),
	}
}

func (o *syntheticOrigin) mux() *http.ServeMux {
	mux := http.NewServeMux()
	modTime := time.Unix(0, 0)
	mux.HandleFunc("/catalog.bin", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "catalog.bin", modTime, bytes.NewReader(o.catalogBytes))
	})
	mux.HandleFunc("/videos/sample.bin", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "sample.bin", modTime, bytes.NewReader(o.videoBytes))
	})
	return mux
}

package player

import (
	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/streamer"
	"github.com/kinetoscope/streamer/transport"
)

// startAudioForCurrentChunk points the audio driver at the current
// chunk's audio range and starts it looping (spec.md section 4.5:
// "Audio is started as a 'looping' buffer pointing at the current
// chunk's audio samples").
func (m *Machine) startAudioForCurrentChunk() {
	start := transport.AddressForBank(m.play.bank, m.play.chunkBaseOffset+m.play.info.AudioRange.Start)
	end := transport.AddressForBank(m.play.bank, m.play.chunkBaseOffset+m.play.info.AudioRange.End)
	m.audio.StartLooping(start, end)
}

// fireCommand writes cmd/arg and sets CMD_TOKEN without waiting for a
// reply. Used only by FLIP_REGION (spec.md section 4.5 step 9: "send
// FLIP_REGION without waiting for acknowledgement — wait would starve
// the next frame").
func (m *Machine) fireCommand(cmd uint8, arg uint16) {
	m.win.WriteCommand(cmd)
	m.win.WriteArg(arg)
	m.win.SetCmdToken()
}

// nextChunkInfo reads the ChunkHeader already sitting in the opposite
// bank (pre-fetched by the previous START_VIDEO/FLIP_REGION cycle), if
// a next chunk exists.
func (m *Machine) nextChunkInfo() (container.ChunkInfo, bool) {
	next := m.play.currentChunk + 1
	if next >= m.play.totalChunks {
		return container.ChunkInfo{}, false
	}
	raw := m.sramR.ReadAt(m.play.bank.Other(), 0, int(container.ChunkHeaderSize))
	info, err := container.ParseChunk(raw)
	if err != nil {
		return container.ChunkInfo{}, false
	}
	return info, true
}

// Tick runs one vertical-blank frame-sync step (spec.md section 4.5).
// It is a no-op outside StatePlayer.
func (m *Machine) Tick() {
	if m.state != StatePlayer {
		return
	}

	// Step 1-2: read the audio pointer; zero means stopped.
	ptr := m.audio.Pointer()
	if ptr == 0 {
		m.state = StateMenu
		return
	}

	// Step 3-4: translate the pointer into a frame number.
	chunkAudioStart := transport.AddressForBank(m.play.bank, m.play.chunkBaseOffset+m.play.info.AudioRange.Start)
	if ptr < chunkAudioStart {
		// Pointer hasn't entered this chunk's audio range yet (can
		// happen for one tick right after a chunk switch).
		return
	}
	samplesPlayed := ptr - chunkAudioStart
	desiredFrame := uint32(uint64(samplesPlayed) * uint64(m.play.header.FrameRate) / uint64(m.play.header.SampleRate))

	frameCount := uint32(m.play.info.Header.FrameCount)
	if frameCount == 0 {
		return
	}
	if desiredFrame >= frameCount {
		desiredFrame = frameCount - 1
	}

	// Step 5: not time for a new frame yet.
	if desiredFrame < m.play.nextFrameNum {
		return
	}
	// Step 6: desiredFrame > nextFrameNum means one or more frames were
	// dropped; the player just catches up to desiredFrame.
	if desiredFrame > m.play.nextFrameNum {
		m.log.Warn("dropped %d frame(s), catching up to frame %d", desiredFrame-m.play.nextFrameNum, desiredFrame)
	}

	// Step 7: upload tiles, then palette, then commit (order matters).
	m.uploadFrame(desiredFrame)
	m.play.nextFrameNum = desiredFrame + 1

	// Step 8: two frames before the chunk's last frame, rewrite the
	// loop target so hardware auto-loop continues into the next chunk.
	if frameCount >= 2 && desiredFrame == frameCount-2 {
		if info, ok := m.nextChunkInfo(); ok {
			nextBank := m.play.bank.Other()
			start := transport.AddressForBank(nextBank, info.AudioRange.Start)
			end := transport.AddressForBank(nextBank, info.AudioRange.End)
			m.audio.SetLoopTarget(start, end)
		} else {
			m.audio.ClearLoop()
		}
	}

	// Step 9: after the last frame, flip to the next chunk.
	if desiredFrame == frameCount-1 {
		m.advanceChunk()
	}
}

// uploadFrame reads frame n out of the current chunk's frame range and
// hands it to the FrameSink in the required order.
func (m *Machine) uploadFrame(n uint32) {
	frameStart := m.play.chunkBaseOffset + m.play.info.FrameRange.Start + int64(n)*container.FrameSize
	raw := m.sramR.ReadAt(m.play.bank, frameStart, container.FrameSize)

	paletteBytes := raw[:container.FramePaletteWords*2]
	tiles := raw[container.FramePaletteWords*2:]

	var palette [16]uint16
	for i := range palette {
		palette[i] = uint16(paletteBytes[i*2])<<8 | uint16(paletteBytes[i*2+1])
	}

	m.sink.UploadTiles(tiles)
	m.sink.UploadPalette(palette)
	m.sink.UploadTileMap()
}

// advanceChunk moves playback to the next chunk, reusing the header
// already fetched into the opposite bank, and fires FLIP_REGION so the
// streamer starts refilling the bank this chunk is about to vacate. If
// there is no next chunk, playback ends naturally (spec.md section 9's
// Open Question on last-chunk underflow policy).
func (m *Machine) advanceChunk() {
	next := m.play.currentChunk + 1
	if next >= m.play.totalChunks {
		m.state = StateMenu
		return
	}

	m.fireCommand(streamer.CmdFlipRegion, 0)

	m.play.currentChunk = next
	m.play.bank = m.play.bank.Other()
	m.play.chunkBaseOffset = 0
	if err := m.loadCurrentChunk(); err != nil {
		m.enterError()
		return
	}
}

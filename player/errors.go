package player

import "errors"

// Sentinel errors surfaced by the player's own control flow, distinct
// from the streamer's ERR-token error strings (which the player reads
// out with GET_ERROR and stores verbatim as LastError).
var (
	// ErrCommandTimeout indicates CMD_TOKEN did not clear within the
	// command class's timeout (spec.md section 5: "ECHO 5s, CONNECT_NET
	// 40s, others 30s").
	ErrCommandTimeout = errors.New("player: command timed out")

	// ErrHandshakeMismatch indicates an ECHO reply did not match the
	// byte that was sent.
	ErrHandshakeMismatch = errors.New("player: echo handshake mismatch")

	// ErrStreamerError indicates the streamer raised ERR_TOKEN in
	// response to a command.
	ErrStreamerError = errors.New("player: streamer reported an error")

	// ErrNoCatalog indicates Menu was entered before a catalog had been
	// fetched successfully.
	ErrNoCatalog = errors.New("player: no catalog loaded")

	// ErrEndOfStream indicates the audio driver stopped (pointer
	// read as zero) during playback (spec.md section 4.5 step 2).
	ErrEndOfStream = errors.New("player: end of stream")
)

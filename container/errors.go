package container

import "errors"

// Error variables represent the fixed vocabulary of ways a container
// byte stream can fail validation or decoding. Use errors.Is() to check
// for a specific condition.
var (
	// ErrMalformedMagic indicates the 16-byte magic literal at the start
	// of a header does not match "what nintendon't".
	ErrMalformedMagic = errors.New("container: malformed magic")

	// ErrUnsupportedFormat indicates the header's format version field
	// is not the one value (3) this package understands.
	ErrUnsupportedFormat = errors.New("container: unsupported format version")

	// ErrCodecCorrupt indicates the RLE decoder encountered a reserved
	// control byte (0x00 or 0x80) or otherwise malformed run.
	ErrCodecCorrupt = errors.New("container: corrupt RLE stream")

	// ErrTruncated indicates a buffer passed to a parse function is
	// shorter than the fixed size it is required to have.
	ErrTruncated = errors.New("container: truncated input")

	// ErrNoURLTerminator indicates a header's relative_url field has no
	// nul terminator, so it cannot be used to build a request path.
	ErrNoURLTerminator = errors.New("container: relative_url has no nul terminator")
)

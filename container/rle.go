package container

// Sink is a byte appender. *bytes.Buffer and *bufio.Writer both satisfy
// it already, and so does sram.BankWriter; the RLE decoder consumes one.
type Sink interface {
	WriteByte(c byte) error
}

// rleState names the streaming RLE decoder's three states (spec.md
// section 4.1).
type rleState int

const (
	rleAwaitingControl rleState = iota
	rleReadingLiteral
	rleAwaitingRepeatByte
)

// Decoder is a stateful RLE decoder. State survives across calls to
// Decode on the same instance, because the encoder may fragment a run
// across HTTP response buffers (spec.md section 4.1). Construct with
// NewDecoder; the zero value is also ready to use.
type Decoder struct {
	state rleState

	// literalLeft is the number of verbatim bytes still to copy while
	// in rleReadingLiteral.
	literalLeft int

	// repeatLength is the number of times to emit the next byte while
	// in rleAwaitingRepeatByte.
	repeatLength int
}

// NewDecoder returns a Decoder ready to decode from the start of a
// chunk.
func NewDecoder() *Decoder {
	return &Decoder{state: rleAwaitingControl}
}

// Reset forces the decoder back to rleAwaitingControl. Callers must
// invoke Reset at chunk boundaries only (spec.md section 4.1's
// streaming contract); calling it mid-run discards partial state.
func (d *Decoder) Reset() {
	d.state = rleAwaitingControl
	d.literalLeft = 0
	d.repeatLength = 0
}

// Decode consumes all of input, writing decoded bytes to sink. It
// returns ErrCodecCorrupt on a reserved control byte, or the first
// error sink returns; nil otherwise. Decode never blocks and
// never looks past the end of input: a run split across two calls
// resumes exactly where the first call left off.
func (d *Decoder) Decode(input []byte, sink Sink) error {
	for i := 0; i < len(input); i++ {
		b := input[i]

		switch d.state {
		case rleAwaitingControl:
			switch {
			case b == 0x00 || b == 0x80:
				return ErrCodecCorrupt
			case b <= 0x7F: // literal run: 0x01..0x7F
				d.literalLeft = int(b)
				d.state = rleReadingLiteral
			default: // repeat run: 0x81..0xFF
				d.repeatLength = int(b & 0x7F)
				d.state = rleAwaitingRepeatByte
			}

		case rleReadingLiteral:
			if err := sink.WriteByte(b); err != nil {
				return err
			}
			d.literalLeft--
			if d.literalLeft == 0 {
				d.state = rleAwaitingControl
			}

		case rleAwaitingRepeatByte:
			for n := 0; n < d.repeatLength; n++ {
				if err := sink.WriteByte(b); err != nil {
					return err
				}
			}
			d.state = rleAwaitingControl
		}
	}
	return nil
}

// Encode RLE-compresses src using a simple greedy scheme: maximal runs
// of an identical byte become repeat runs (bounded to 127), everything
// else becomes literal runs (also bounded to 127). It never emits the
// reserved control bytes 0x00 or 0x80. Used by tests to exercise the
// decode ∘ encode identity (spec.md section 4.1's contract) and to
// build compressed test fixtures.
func Encode(src []byte) []byte {
	var out []byte
	i := 0
	for i < len(src) {
		// Look for a repeat run starting at i.
		runLen := 1
		for i+runLen < len(src) && src[i+runLen] == src[i] && runLen < 0x7F {
			runLen++
		}
		if runLen >= 2 {
			out = append(out, byte(0x80|runLen), src[i])
			i += runLen
			continue
		}

		// Otherwise accumulate a literal run up to the next repeat run
		// (or up to 127 bytes).
		litStart := i
		litLen := 0
		for i < len(src) && litLen < 0x7F {
			// Stop the literal run just before a repeat run of length >= 2.
			if i+1 < len(src) && src[i+1] == src[i] {
				break
			}
			litLen++
			i++
		}
		if litLen == 0 {
			// Single non-repeating byte; emit as a 1-byte literal.
			litLen = 1
			i = litStart + 1
		}
		out = append(out, byte(litLen))
		out = append(out, src[litStart:litStart+litLen]...)
	}
	return out
}

package protocol

// InputBuffer is the read side of a transport: a window of received bytes
// that the frame scanner consumes from the front.
type InputBuffer interface {
	// Data returns the currently buffered bytes.
	Data() []byte

	// Available returns the number of buffered bytes.
	Available() int

	// Pop discards n bytes from the front.
	Pop(n int)
}

// OutputBuffer is the write side of a transport. The cursor operations exist
// so frame encoders can back-patch the length byte once the payload size is
// known.
type OutputBuffer interface {
	// Output appends data.
	Output(data []byte)

	// CurPosition returns the current write position.
	CurPosition() int

	// Update overwrites the byte at pos.
	Update(pos int, val byte)

	// DataSince returns everything written since pos.
	DataSince(pos int) []byte
}

// SliceInput adapts a plain byte slice to InputBuffer.
type SliceInput struct {
	data []byte
}

// NewSliceInput wraps data in a SliceInput.
func NewSliceInput(data []byte) *SliceInput {
	return &SliceInput{data: data}
}

func (s *SliceInput) Data() []byte   { return s.data }
func (s *SliceInput) Available() int { return len(s.data) }

func (s *SliceInput) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is a fixed-capacity OutputBuffer. The firmware side uses one
// preallocated instance for all outgoing frames so the transmit path does not
// allocate.
type ScratchOutput struct {
	buf [ScratchMax]byte
	pos int
}

// NewScratchOutput returns an empty scratch buffer.
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written so far.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

// Reset discards the buffer contents.
func (s *ScratchOutput) Reset() { s.pos = 0 }

// Fifo is a ring buffer for serial input. One writer, one reader.
type Fifo struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifo creates a ring buffer holding up to capacity-1 bytes.
func NewFifo(capacity int) *Fifo {
	return &Fifo{buf: make([]byte, capacity), size: capacity}
}

// Write appends data, returning how many bytes fit.
func (f *Fifo) Write(data []byte) int {
	written := 0
	for _, b := range data {
		next := (f.write + 1) % f.size
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		written++
	}
	return written
}

// Available returns the number of buffered bytes.
func (f *Fifo) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Data returns the buffered bytes as a contiguous slice. A wrapped buffer is
// copied so the frame scanner always sees one run.
func (f *Fifo) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	out := make([]byte, f.Available())
	n := copy(out, f.buf[f.read:])
	copy(out[n:], f.buf[:f.write])
	return out
}

// Pop discards n bytes from the front.
func (f *Fifo) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// Reset empties the buffer.
func (f *Fifo) Reset() {
	f.read = 0
	f.write = 0
}

package protocol

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			// Buffer empty
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Data returns available data as a slice.
// When wrapped, this copies data into a contiguous slice.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	avail := f.Available()
	result := make([]byte, avail)

	firstLen := f.size - f.read
	copy(result, f.buf[f.read:])
	copy(result[firstLen:], f.buf[:f.write])

	return result
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}

// LineBuffer splits a byte stream into newline terminated command lines.
// A '\r' before the newline is dropped. A line longer than LineMax is
// discarded up to and including its terminating newline.
type LineBuffer struct {
	fifo      *FifoBuffer
	overflow  bool
	discarded int
}

// NewLineBuffer creates a LineBuffer backed by an InputFifoSize FIFO
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{fifo: NewFifoBuffer(InputFifoSize)}
}

// Write queues raw input. It returns how many bytes were accepted; when the
// FIFO holds LineMax bytes with no newline, they are dropped to make room.
func (l *LineBuffer) Write(data []byte) int {
	total := 0
	for len(data) > 0 {
		n := l.fifo.Write(data)
		total += n
		data = data[n:]
		if len(data) == 0 {
			break
		}
		if !l.dropOverlong() {
			break
		}
	}
	return total
}

// NextLine returns the next complete line without its terminator.
func (l *LineBuffer) NextLine() (string, bool) {
	for {
		data := l.fifo.Data()
		end := -1
		for i, b := range data {
			if b == '\n' {
				end = i
				break
			}
		}
		if end < 0 {
			l.dropOverlong()
			return "", false
		}

		line := data[:end]
		l.fifo.Pop(end + 1)

		if l.overflow {
			l.overflow = false
			continue
		}
		if len(line) > LineMax {
			l.discarded++
			continue
		}
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		return string(line), true
	}
}

// Discarded returns how many overlong lines have been dropped
func (l *LineBuffer) Discarded() int {
	return l.discarded
}

// Reset drops all buffered input
func (l *LineBuffer) Reset() {
	l.fifo.Reset()
	l.overflow = false
}

// dropOverlong discards a partial line that can no longer fit. Buffered
// complete lines are never dropped.
func (l *LineBuffer) dropOverlong() bool {
	if l.fifo.Available() <= LineMax {
		return false
	}
	for _, b := range l.fifo.Data() {
		if b == '\n' {
			return false
		}
	}
	if !l.overflow {
		l.discarded++
	}
	l.fifo.Reset()
	l.overflow = true
	return true
}

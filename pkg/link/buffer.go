package link

import "time"

// DefaultDebounce is the default receive buffer quiet period.
const DefaultDebounce = 100 * time.Millisecond

// Timer is a restartable one-shot timer. Expiry is routed back to the
// owner, which then calls ReceiveBuffer.Flush.
type Timer interface {
	Reset(d time.Duration)
	Stop()
}

// ReceiveBuffer accumulates inbound chunks until the console has been quiet
// for the debounce period. A wire message split across two flushes is not
// reassembled.
type ReceiveBuffer struct {
	data     []byte
	timer    Timer
	debounce time.Duration
}

// NewReceiveBuffer creates a buffer driving timer. A non-positive debounce
// selects DefaultDebounce.
func NewReceiveBuffer(timer Timer, debounce time.Duration) *ReceiveBuffer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &ReceiveBuffer{timer: timer, debounce: debounce}
}

// Append adds a chunk and restarts the debounce timer.
func (b *ReceiveBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.data = append(b.data, p...)
	b.timer.Reset(b.debounce)
}

// Flush returns the accumulated bytes and empties the buffer.
func (b *ReceiveBuffer) Flush() []byte {
	data := b.data
	b.data = nil
	return data
}

// Discard drops the accumulated bytes and stops the timer.
func (b *ReceiveBuffer) Discard() {
	b.data = nil
	b.timer.Stop()
}

// Len returns the number of buffered bytes.
func (b *ReceiveBuffer) Len() int {
	return len(b.data)
}

package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Channel identifies one of the three notification channels.
type Channel uint8

const (
	// ChannelError carries error text.
	ChannelError Channel = iota

	// ChannelSuccess carries success text.
	ChannelSuccess

	// ChannelMessage carries structured payloads.
	ChannelMessage
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelError:
		return "error"
	case ChannelSuccess:
		return "success"
	case ChannelMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Notification is one queued delivery.
type Notification struct {
	Channel Channel
	Sender  string
	Time    time.Time

	// Text is set for error and success notifications.
	Text string

	// Payload is set for message notifications.
	Payload any
}

// TextFunc receives error and success notifications.
type TextFunc func(sender, text string)

// MessageFunc receives message notifications.
type MessageFunc func(sender string, payload any)

// Dispatcher queues notifications and delivers them in order.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []Notification
	running bool
	closed  bool

	onError   []TextFunc
	onSuccess []TextFunc
	onMessage []MessageFunc

	wake chan struct{}
	done chan struct{}

	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// OnError registers an error callback.
func (d *Dispatcher) OnError(fn TextFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = append(d.onError, fn)
}

// OnSuccess registers a success callback.
func (d *Dispatcher) OnSuccess(fn TextFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSuccess = append(d.onSuccess, fn)
}

// OnMessage registers a message callback.
func (d *Dispatcher) OnMessage(fn MessageFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = append(d.onMessage, fn)
}

// Error queues an error notification.
func (d *Dispatcher) Error(sender, text string) {
	d.enqueue(Notification{Channel: ChannelError, Sender: sender, Text: text})
}

// Success queues a success notification.
func (d *Dispatcher) Success(sender, text string) {
	d.enqueue(Notification{Channel: ChannelSuccess, Sender: sender, Text: text})
}

// Message queues a message notification.
func (d *Dispatcher) Message(sender string, payload any) {
	d.enqueue(Notification{Channel: ChannelMessage, Sender: sender, Payload: payload})
}

// Pending returns the number of queued, undelivered notifications.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Start begins background delivery.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.closed {
		return
	}
	d.running = true
	go d.loop()
}

// Stop delivers what is already queued and stops the delivery goroutine.
// Notifications queued after Stop are dropped. Stop must not be called
// from a callback.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	running := d.running
	d.mu.Unlock()

	if !running {
		close(d.done)
		return
	}
	d.signal()
	<-d.done
}

func (d *Dispatcher) enqueue(n Notification) {
	n.Time = time.Now()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, n)
	d.mu.Unlock()

	d.signal()
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			n := d.queue[0]
			d.queue[0] = Notification{}
			d.queue = d.queue[1:]
			errFns, okFns, msgFns := d.onError, d.onSuccess, d.onMessage
			d.mu.Unlock()

			d.deliver(n, errFns, okFns, msgFns)
		}
	}
}

func (d *Dispatcher) deliver(n Notification, errFns, okFns []TextFunc, msgFns []MessageFunc) {
	switch n.Channel {
	case ChannelError:
		for _, fn := range errFns {
			d.call(n, func() { fn(n.Sender, n.Text) })
		}
	case ChannelSuccess:
		for _, fn := range okFns {
			d.call(n, func() { fn(n.Sender, n.Text) })
		}
	case ChannelMessage:
		for _, fn := range msgFns {
			d.call(n, func() { fn(n.Sender, n.Payload) })
		}
	}
}

func (d *Dispatcher) call(n Notification, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification callback panicked",
				"channel", n.Channel.String(),
				"sender", n.Sender,
				"panic", fmt.Sprint(r))
		}
	}()
	fn()
}

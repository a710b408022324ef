package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize bounds the ingestion queue. The broker callback is
// slower than the worker in practice, so the bound exists to cap
// memory during a storm, not as a working buffer.
const DefaultQueueSize = 1024

// Message is one inbound broker message, queued as received.
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Processor handles one fully-classified message. Implementations must
// tolerate arbitrary payloads; errors are handled internally by
// logging, never by retry.
type Processor interface {
	Process(ctx context.Context, msg Message)
}

// Logger defines the logging interface used by the telemetry package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Ingestor is the single-consumer FIFO queue between the broker
// callback and the message processors.
//
// Enqueue never blocks: the broker callback must stay fast no matter
// how slow the database or rule engine is. When the queue is full new
// messages are rejected and counted; the fleet resends readings every
// cycle, so losing one costs nothing. One worker drains the queue
// strictly in enqueue order, which gives rule cooldowns a well-defined
// happens-before order without locks.
type Ingestor struct {
	queue     chan Message
	processor Processor
	logger    Logger

	dropped atomic.Uint64

	mu     sync.RWMutex // guards closed against concurrent Enqueue/Close
	closed bool
	done   chan struct{}
}

// NewIngestor creates an ingestor with the given queue capacity.
// A non-positive size falls back to DefaultQueueSize.
func NewIngestor(processor Processor, queueSize int) *Ingestor {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Ingestor{
		queue:     make(chan Message, queueSize),
		processor: processor,
		logger:    noopLogger{},
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// Start launches the worker. The context is passed through to the
// processor for store and publish calls.
func (i *Ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

// Enqueue adds a message to the queue without blocking. A full queue
// rejects the message and increments the dropped counter; an ingestor
// that has been closed silently discards it.
func (i *Ingestor) Enqueue(topic string, payload []byte, receivedAt time.Time) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return
	}

	msg := Message{Topic: topic, Payload: payload, ReceivedAt: receivedAt}
	select {
	case i.queue <- msg:
	default:
		dropped := i.dropped.Add(1)
		i.logger.Warn("ingestion queue full, message dropped",
			"topic", topic,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns the number of messages rejected by a full queue.
func (i *Ingestor) Dropped() uint64 {
	return i.dropped.Load()
}

// QueueDepth returns the number of messages waiting in the queue.
func (i *Ingestor) QueueDepth() int {
	return len(i.queue)
}

// Close stops accepting messages, lets the worker drain what is
// already queued, and returns once the worker has exited.
func (i *Ingestor) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		<-i.done
		return
	}
	i.closed = true
	close(i.queue)
	i.mu.Unlock()

	<-i.done
}

// worker drains the queue in strict FIFO order, one message at a time.
// It exits when the queue is closed and empty.
func (i *Ingestor) worker(ctx context.Context) {
	defer close(i.done)

	for msg := range i.queue {
		i.process(ctx, msg)
	}
}

// process runs one message through the processor, isolating panics so
// a single malformed message can never halt the worker loop.
func (i *Ingestor) process(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("message processing panicked",
				"topic", msg.Topic,
				"payload", string(msg.Payload),
				"panic", r,
			)
		}
	}()

	i.processor.Process(ctx, msg)
}

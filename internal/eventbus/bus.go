// Package eventbus multiplexes typed events among in-process handlers.
//
// Delivery runs on a single dispatcher goroutine so that events of the same
// type are always delivered in arrival order and handlers never need to
// guard against concurrent bus-delivered mutation of the same state. An
// independent timer goroutine publishes a TIMER event once per second.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventType identifies the category of an Event.
type EventType string

// Event types published by the core.
const (
	EventOrder              EventType = "ORDER"
	EventTrade              EventType = "TRADE"
	EventPosition           EventType = "POSITION"
	EventAccount            EventType = "ACCOUNT"
	EventContract           EventType = "CONTRACT"
	EventTimer              EventType = "TIMER"
	EventLog                EventType = "LOG"
	EventOptionLog          EventType = "OPTION_LOG"
	EventPortfolioLog       EventType = "PORTFOLIO_LOG"
	EventPortfolioStrategy  EventType = "PORTFOLIO_STRATEGY"
	EventOptionNewPortfolio EventType = "OPTION_NEW_PORTFOLIO"
	EventOptionRiskNotice   EventType = "OPTION_RISK_NOTICE"
)

// Event is the minimal contract every published value must satisfy.
type Event interface {
	Type() EventType
	OccurredAt() time.Time
}

// Base embeds the common Type/OccurredAt accessors into a concrete event.
type Base struct {
	EventType EventType
	Timestamp time.Time
}

func (b Base) Type() EventType      { return b.EventType }
func (b Base) OccurredAt() time.Time { return b.Timestamp }

// NewBase builds a Base stamped with the current time.
func NewBase(t EventType) Base {
	return Base{EventType: t, Timestamp: time.Now()}
}

// Handler processes one event. A panic is recovered and logged; it never
// brings down the dispatcher or blocks delivery to other handlers.
type Handler func(Event)

// Subscription is an opaque handle returned by Register, used to Unregister.
type Subscription struct {
	eventType EventType
	id        int64
}

type registration struct {
	id int64
	h  Handler
}

// Stats is a point-in-time snapshot of bus activity.
type Stats struct {
	Published int64
	Processed int64
	Dropped   int64
	Errors    int64
}

// Bus is the typed publish/subscribe event bus.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[EventType][]registration
	nextID   atomic.Int64

	// unbounded FIFO queue: Put never blocks and never drops while the
	// bus is open.
	qmu     sync.Mutex
	qcond   *sync.Cond
	queue   []Event
	closed  bool

	timerStop chan struct{}
	dispWG    sync.WaitGroup
	timerWG   sync.WaitGroup

	running atomic.Bool

	published atomic.Int64
	processed atomic.Int64
	dropped   atomic.Int64
	errors    atomic.Int64
}

// New constructs a Bus. It does not start the dispatcher or timer; call
// Start for that.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		logger:   logger.Named("eventbus"),
		handlers: make(map[EventType][]registration),
	}
	b.qcond = sync.NewCond(&b.qmu)
	return b
}

// Register attaches handler to eventType. Handlers for a given type are
// invoked in registration order. Safe to call concurrently with Put.
func (b *Bus) Register(eventType EventType, h Handler) *Subscription {
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, h: h})
	b.mu.Unlock()
	return &Subscription{eventType: eventType, id: id}
}

// Unregister removes a handler. Idempotent: unregistering an already-removed
// subscription is a no-op.
func (b *Bus) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[sub.eventType]
	for i, r := range regs {
		if r.id == sub.id {
			b.handlers[sub.eventType] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Put enqueues event for dispatch and returns immediately.
func (b *Bus) Put(event Event) {
	b.qmu.Lock()
	if b.closed {
		b.qmu.Unlock()
		b.dropped.Add(1)
		b.logger.Error("event dropped after bus closed", zap.String("type", string(event.Type())))
		return
	}
	b.queue = append(b.queue, event)
	b.published.Add(1)
	b.qcond.Signal()
	b.qmu.Unlock()
}

// Start launches the single dispatcher goroutine and the 1 Hz timer
// goroutine. Idempotent.
func (b *Bus) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	b.timerStop = make(chan struct{})

	b.dispWG.Add(1)
	go b.dispatch()

	b.timerWG.Add(1)
	go b.runTimer()

	b.logger.Info("event bus started")
}

// Stop joins both workers before returning. Idempotent.
func (b *Bus) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}

	close(b.timerStop)
	b.timerWG.Wait()

	b.qmu.Lock()
	b.closed = true
	b.qcond.Broadcast()
	b.qmu.Unlock()

	b.dispWG.Wait()
	b.logger.Info("event bus stopped",
		zap.Int64("published", b.published.Load()),
		zap.Int64("processed", b.processed.Load()))
}

func (b *Bus) dispatch() {
	defer b.dispWG.Done()
	for {
		event, ok := b.nextEvent()
		if !ok {
			return
		}
		b.deliver(event)
	}
}

// nextEvent blocks until an event is available or the bus is closed and
// drained.
func (b *Bus) nextEvent() (Event, bool) {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	for len(b.queue) == 0 {
		if b.closed {
			return nil, false
		}
		b.qcond.Wait()
	}
	event := b.queue[0]
	b.queue = b.queue[1:]
	return event, true
}

func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.Type()]
	// copy to avoid holding the lock across handler execution, which may
	// itself call Register/Unregister.
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	b.mu.RUnlock()

	for _, r := range snapshot {
		b.invoke(r.h, event)
	}
	b.processed.Add(1)
}

func (b *Bus) invoke(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.errors.Add(1)
			b.logger.Error("event handler panic",
				zap.String("type", string(event.Type())),
				zap.Any("panic", r))
		}
	}()
	h(event)
}

func (b *Bus) runTimer() {
	defer b.timerWG.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-b.timerStop:
			return
		case <-ticker.C:
			b.Put(Base{EventType: EventTimer, Timestamp: time.Now()})
		}
	}
}

// Stats returns a snapshot of bus activity counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Processed: b.processed.Load(),
		Dropped:   b.dropped.Load(),
		Errors:    b.errors.Load(),
	}
}

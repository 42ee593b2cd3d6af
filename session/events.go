package session

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/rs/zerolog"
)

// EventKind discriminates session events.
type EventKind string

const (
	EventLoggedIn       EventKind = "logged_in"
	EventRefreshed      EventKind = "refreshed"
	EventLoggedOut      EventKind = "logged_out"
	EventForceLoggedOut EventKind = "force_logged_out"
)

// Event is published after every completed session mutation. Seq increases
// by one per event. Bundle is nil for the logout kinds.
type Event struct {
	Kind       EventKind
	Seq        uint64
	Bundle     *credentials.Bundle
	ShowNotice bool
}

// EventHandler receives events on the subscriber's own goroutine, one at a
// time and in Seq order.
type EventHandler func(Event)

// bus fans events out to per-subscriber mailboxes. Publishing never blocks on
// a slow subscriber.
type bus struct {
	logger zerolog.Logger

	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]*mailbox
	closed bool
}

func newBus(logger zerolog.Logger) *bus {
	return &bus{
		logger: logger,
		subs:   make(map[uint64]*mailbox),
	}
}

func (b *bus) subscribe(handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	m := newMailbox(handler, b.logger)
	b.subs[id] = m
	go m.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			m.close(false)
		})
	}
}

// publish stamps the event with the next Seq and queues it for every
// subscriber. Holding mu while queueing keeps all mailboxes in Seq order.
func (b *bus) publish(e Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return e
	}
	b.seq++
	e.Seq = b.seq
	for _, m := range b.subs {
		m.push(e)
	}
	return e
}

// close delivers what is already queued and stops every mailbox.
func (b *bus) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, m := range subs {
		m.close(true)
	}
}

type mailbox struct {
	handler EventHandler
	logger  zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	done   chan struct{}
}

func newMailbox(handler EventHandler, logger zerolog.Logger) *mailbox {
	m := &mailbox{
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, e)
	m.cond.Signal()
}

// close stops the mailbox. With drain the queued events are still delivered
// and close waits for them.
func (m *mailbox) close(drain bool) {
	m.mu.Lock()
	m.closed = true
	if !drain {
		m.queue = nil
	}
	m.cond.Signal()
	m.mu.Unlock()

	if drain {
		<-m.done
	}
}

func (m *mailbox) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		e := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.deliver(e)
	}
}

func (m *mailbox) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Str("event", string(e.Kind)).Msg("session event handler panicked")
		}
	}()
	m.handler(e)
}

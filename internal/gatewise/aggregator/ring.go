package aggregator

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

const (
	DefaultCapacity = 100

	// Wildcard matches any door or status in Filter.
	Wildcard = "All"

	subscriberQueue = 64
)

// Ring holds the most recent door events. A single goroutine owns the
// buffer and the subscriber list; every other method hands it a request
// and, for reads, waits for the answer, so readers never see a partially
// updated ring.
type Ring struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	reqs chan func(*ringState)
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

type ringState struct {
	buf   []types.DoorEvent
	head  int // index of the oldest event
	count int

	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	id    int
	queue chan types.DoorEvent
}

func NewRing(capacity int, log *zap.Logger, m *metrics.Metrics) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Ring{
		log:     log,
		metrics: m,
		reqs:    make(chan func(*ringState)),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	st := &ringState{
		buf:  make([]types.DoorEvent, capacity),
		subs: make(map[int]*subscriber),
	}
	go r.run(st)
	return r
}

func (r *Ring) run(st *ringState) {
	defer close(r.done)
	for {
		select {
		case fn := <-r.reqs:
			fn(st)
		case <-r.quit:
			for id, sub := range st.subs {
				close(sub.queue)
				delete(st.subs, id)
			}
			return
		}
	}
}

// Close stops the owner goroutine and ends every subscription. Later calls
// are no-ops and reads return empty results.
func (r *Ring) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.done
}

// send hands fn to the owner. It reports false once the ring is closed.
func (r *Ring) send(fn func(*ringState)) bool {
	select {
	case r.reqs <- fn:
		return true
	case <-r.done:
		return false
	}
}

// query runs fn on the owner and waits for it to finish.
func (r *Ring) query(fn func(*ringState)) bool {
	finished := make(chan struct{})
	if !r.send(func(st *ringState) {
		fn(st)
		close(finished)
	}) {
		return false
	}
	<-finished
	return true
}

// Push appends ev, evicting the oldest event when full, and queues it for
// every subscriber. A subscriber whose queue is full misses the event.
func (r *Ring) Push(ev types.DoorEvent) {
	r.send(func(st *ringState) {
		st.push(ev)
		r.metrics.RingSize(st.count)
		for _, sub := range st.subs {
			select {
			case sub.queue <- ev:
			default:
				r.metrics.DeliveryDropped()
				r.log.Warn("subscriber queue full, dropping event",
					zap.Int("subscriber", sub.id),
					zap.String("event_id", ev.ID),
				)
			}
		}
	})
}

func (st *ringState) push(ev types.DoorEvent) {
	capacity := len(st.buf)
	if st.count < capacity {
		st.buf[(st.head+st.count)%capacity] = ev
		st.count++
		return
	}
	st.buf[st.head] = ev
	st.head = (st.head + 1) % capacity
}

// oldest-first
func (st *ringState) events() []types.DoorEvent {
	out := make([]types.DoorEvent, 0, st.count)
	for i := 0; i < st.count; i++ {
		out = append(out, st.buf[(st.head+i)%len(st.buf)])
	}
	return out
}

// Events returns the ring contents, oldest first.
func (r *Ring) Events() []types.DoorEvent {
	var out []types.DoorEvent
	r.query(func(st *ringState) { out = st.events() })
	return out
}

func (r *Ring) Len() int {
	var n int
	r.query(func(st *ringState) { n = st.count })
	return n
}

// Filter returns events matching both door and status, most recent first.
// Wildcard or an empty string matches anything.
func (r *Ring) Filter(door, status string) []types.DoorEvent {
	var out []types.DoorEvent
	r.query(func(st *ringState) {
		out = make([]types.DoorEvent, 0, st.count)
		for i := st.count - 1; i >= 0; i-- {
			ev := st.buf[(st.head+i)%len(st.buf)]
			if matches(door, ev.Door) && matches(status, ev.Status) {
				out = append(out, ev)
			}
		}
	})
	return out
}

func matches(filter, value string) bool {
	return filter == "" || filter == Wildcard || filter == value
}

// Doors lists the distinct doors currently in the ring, sorted.
func (r *Ring) Doors() []string {
	var out []string
	r.query(func(st *ringState) {
		seen := make(map[string]struct{})
		for _, ev := range st.events() {
			if _, ok := seen[ev.Door]; ok {
				continue
			}
			seen[ev.Door] = struct{}{}
			out = append(out, ev.Door)
		}
	})
	slices.Sort(out)
	return out
}

// Subscribe registers fn to be called, in ring order, for every event
// pushed after it returns. fn runs on its own goroutine and must not block
// for long: events that arrive while its queue is full are dropped.
// The returned cancel func ends the subscription and is safe to call more
// than once.
func (r *Ring) Subscribe(fn func(types.DoorEvent)) (cancel func()) {
	sub := &subscriber{queue: make(chan types.DoorEvent, subscriberQueue)}
	if !r.query(func(st *ringState) {
		st.nextID++
		sub.id = st.nextID
		st.subs[sub.id] = sub
	}) {
		return func() {}
	}

	go func() {
		for ev := range sub.queue {
			r.deliver(sub.id, fn, ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.send(func(st *ringState) {
				if _, ok := st.subs[sub.id]; ok {
					delete(st.subs, sub.id)
					close(sub.queue)
				}
			})
		})
	}
}

func (r *Ring) deliver(id int, fn func(types.DoorEvent), ev types.DoorEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("subscriber panicked", zap.Int("subscriber", id), zap.Any("panic", rec))
		}
	}()
	fn(ev)
}

// Package aggregator collects door events from door nodes over TCP into a
// bounded, filterable ring and fans them out to subscribers. It also sends
// lock and unlock commands back to door nodes.
package aggregator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/service"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

const (
	DefaultMaxPayload  = 4096
	DefaultReadTimeout = 5 * time.Second

	writeTimeout = 2 * time.Second

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Decider makes local access decisions for credential messages.
// *service.AccessService implements it.
type Decider interface {
	Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error)
}

// DoorNoter records that a door reported. *service.DoorRegistry implements it.
type DoorNoter interface {
	NoteSeen(ctx context.Context, door, address string) error
}

type State int

const (
	StateIdle State = iota
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

type Dependencies struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Addr   string
	Access Decider // optional; credential messages are rejected without it
	Audit  store.AuditStore
	Doors  DoorNoter // optional

	Capacity    int
	MaxPayload  int
	ReadTimeout time.Duration

	Clock func() time.Time

	// OnStateChange, if set, is called after every state transition.
	OnStateChange func(State)
}

type Aggregator struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	addr   string
	access Decider
	audit  store.AuditStore
	doors  DoorNoter
	ring   *Ring

	maxPayload  int
	readTimeout time.Duration
	clock       func() time.Time
	onState     func(State)

	// held from audit append through ring push so both see the same order
	seq sync.Mutex

	mu       sync.Mutex
	state    State
	ln       net.Listener
	cancel   context.CancelFunc
	accepted chan struct{} // closed when the accept loop exits
	conns    sync.WaitGroup
}

func New(deps Dependencies) *Aggregator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxPayload <= 0 {
		deps.MaxPayload = DefaultMaxPayload
	}
	if deps.ReadTimeout <= 0 {
		deps.ReadTimeout = DefaultReadTimeout
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	log := deps.Logger.Named("aggregator")
	return &Aggregator{
		log:         log,
		metrics:     deps.Metrics,
		addr:        deps.Addr,
		access:      deps.Access,
		audit:       deps.Audit,
		doors:       deps.Doors,
		ring:        NewRing(deps.Capacity, log, deps.Metrics),
		maxPayload:  deps.MaxPayload,
		readTimeout: deps.ReadTimeout,
		clock:       deps.Clock,
		onState:     deps.OnStateChange,
	}
}

// Start binds the listener and begins accepting connections in the
// background. A bind failure is returned as a *NetworkError and leaves the
// aggregator idle.
func (a *Aggregator) Start(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	a.notifyState(StateServing)
	return nil
}

func (a *Aggregator) start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateIdle {
		return fmt.Errorf("%w (%s)", ErrAlreadyStarted, a.state)
	}

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return &NetworkError{Op: "listen", Addr: a.addr, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	a.ln = ln
	a.cancel = cancel
	a.accepted = make(chan struct{})
	a.state = StateServing

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go a.acceptLoop(ctx, ln)

	a.log.Info("listening for door events", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listener address, or nil before Start.
func (a *Aggregator) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Aggregator) Serving() bool { return a.State() == StateServing }

// Stop closes the listener, waits for in-flight connections and ends all
// subscriptions. It is safe to call more than once.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.state == StateStopped {
		a.mu.Unlock()
		return
	}
	wasServing := a.state == StateServing
	a.state = StateStopped
	cancel, accepted := a.cancel, a.accepted
	a.mu.Unlock()

	a.notifyState(StateStopped)
	if wasServing {
		cancel()
		<-accepted
		a.conns.Wait()
	}
	a.ring.Close()
	a.log.Info("aggregator stopped")
}

func (a *Aggregator) notifyState(s State) {
	if a.onState != nil {
		a.onState(s)
	}
}

// acceptLoop backs off on repeated accept errors (EMFILE and the like),
// doubling from minAcceptDelay up to maxAcceptDelay.
func (a *Aggregator) acceptLoop(ctx context.Context, ln net.Listener) {
	defer close(a.accepted)
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			delay = acceptBackoff(delay)
			a.log.Error("accept failed", zap.Error(err), zap.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		a.conns.Add(1)
		go func() {
			defer a.conns.Done()
			a.handleConn(ctx, conn)
		}()
	}
}

// handleConn reads one message, handles it and writes one reply.
func (a *Aggregator) handleConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	log := a.log.With(zap.String("remote", remote))

	a.metrics.ConnectionOpened()
	defer a.metrics.ConnectionClosed()
	defer conn.Close()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("connection handler panicked", zap.Any("panic", rec))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(a.readTimeout))
	r := bufio.NewReader(io.LimitReader(conn, int64(a.maxPayload)))

	msg, format, err := decodeMessage(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			log.Debug("read timed out")
			return
		}
		a.reject(log, conn, format, err)
		return
	}

	reply, err := a.Ingest(ctx, msg, remote)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			a.reject(log, conn, format, err)
			return
		}
		log.Error("ingest failed", zap.Error(err))
	}
	a.writeReply(log, conn, format, reply)
}

func (a *Aggregator) reject(log *zap.Logger, conn net.Conn, format Format, err error) {
	a.metrics.ParseFailure()
	log.Warn("rejected inbound message", zap.Stringer("format", format), zap.Error(err))
	a.writeReply(log, conn, format, types.IngestReply{OK: false, Error: err.Error()})
}

// writeReply is best effort; the peer may already have gone.
func (a *Aggregator) writeReply(log *zap.Logger, conn net.Conn, format Format, reply types.IngestReply) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := encodeReply(conn, format, reply); err != nil {
		log.Debug("failed to write reply", zap.Error(err))
	}
}

// Ingest handles one decoded message from remote, regardless of transport.
//
// Credential messages are decided locally; door events are stamped with the
// receipt time. Either way the audit record is appended before the event
// enters the ring, so the ring never shows an event the log does not hold.
// A malformed message returns a *ParseError and stores nothing; a failed
// append returns the *store.StorageError.
func (a *Aggregator) Ingest(ctx context.Context, msg types.WireMessage, remote string) (types.IngestReply, error) {
	if msg.IsCredential() {
		return a.ingestCredential(ctx, msg, remote)
	}
	return a.ingestDoorEvent(ctx, msg, remote)
}

func (a *Aggregator) ingestCredential(ctx context.Context, msg types.WireMessage, remote string) (types.IngestReply, error) {
	resp, err := a.Decide(ctx, msg.AccessRequest(), remote)
	var pe *ParseError
	if errors.As(err, &pe) {
		return types.IngestReply{OK: false, Error: err.Error()}, err
	}
	if err != nil {
		return types.IngestReply{OK: false, Status: string(resp.Status), Name: resp.Name, Error: err.Error()}, err
	}
	return types.IngestReply{OK: true, Status: string(resp.Status), Name: resp.Name}, nil
}

// Decide makes a local access decision and, once it is recorded, pushes
// the outcome into the ring. Local scans and credential messages both come
// through here. An unusable credential returns a *ParseError.
func (a *Aggregator) Decide(ctx context.Context, req types.AccessRequest, remote string) (types.AccessResponse, error) {
	if a.access == nil {
		return types.AccessResponse{}, parseErrorf("credential message on a station without a decision engine")
	}

	a.seq.Lock()
	defer a.seq.Unlock()

	resp, err := a.access.Decide(ctx, req)
	if errors.Is(err, service.ErrInvalidCredential) {
		return resp, &ParseError{Err: err}
	}
	if err != nil {
		return resp, err
	}

	a.metrics.EventReceived("credential")
	a.publish(ctx, types.DoorEvent{
		ID:        resp.RecordID,
		Door:      resp.Door,
		UID:       resp.UID,
		Name:      resp.Name,
		Status:    string(resp.Status),
		Timestamp: resp.Timestamp,
	}, remote)
	return resp, nil
}

func (a *Aggregator) ingestDoorEvent(ctx context.Context, msg types.WireMessage, remote string) (types.IngestReply, error) {
	door := strings.TrimSpace(msg.Door)
	uid := strings.TrimSpace(msg.UID)
	status := strings.TrimSpace(msg.Status)

	var missing []string
	if door == "" {
		missing = append(missing, "door")
	}
	if uid == "" {
		missing = append(missing, "uid")
	}
	if status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		err := parseErrorf("missing required field(s): %s", strings.Join(missing, ", "))
		return types.IngestReply{OK: false, Error: err.Error()}, err
	}

	rec := store.Prepare(store.AuditRecord{
		Door:      door,
		UID:       uid,
		Name:      strings.TrimSpace(msg.Name),
		Status:    types.Verdict(status),
		Timestamp: a.clock(),
	})

	a.seq.Lock()
	defer a.seq.Unlock()

	if err := a.audit.Append(ctx, rec); err != nil {
		a.metrics.StorageFailure()
		err = store.Wrap("append", err)
		return types.IngestReply{OK: false, Error: err.Error()}, err
	}

	a.metrics.EventReceived("door_event")
	a.publish(ctx, types.DoorEvent{
		ID:        rec.ID,
		Door:      rec.Door,
		UID:       rec.UID,
		Name:      rec.Name,
		Status:    status,
		Timestamp: rec.Timestamp,
	}, remote)

	return types.IngestReply{OK: true}, nil
}

func (a *Aggregator) publish(ctx context.Context, ev types.DoorEvent, remote string) {
	a.ring.Push(ev)
	if a.doors != nil {
		if err := a.doors.NoteSeen(ctx, ev.Door, remote); err != nil {
			a.log.Warn("door registry update failed", zap.String("door", ev.Door), zap.Error(err))
		}
	}
	a.log.Debug("door event",
		zap.String("id", ev.ID),
		zap.String("door", ev.Door),
		zap.String("uid", ev.UID),
		zap.String("status", ev.Status),
	)
}

func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(prev*2, maxAcceptDelay)
}

func (a *Aggregator) Filter(door, status string) []types.DoorEvent {
	return a.ring.Filter(door, status)
}

func (a *Aggregator) Events() []types.DoorEvent { return a.ring.Events() }

func (a *Aggregator) Doors() []string { return a.ring.Doors() }

func (a *Aggregator) Subscribe(fn func(types.DoorEvent)) (cancel func()) {
	return a.ring.Subscribe(fn)
}

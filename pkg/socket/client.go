package socket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/statemachine"
)

// Lifecycle states.
const (
	StateIdle         statemachine.State = "idle"
	StateConnecting   statemachine.State = "connecting"
	StateConnected    statemachine.State = "connected"
	StateDisconnected statemachine.State = "disconnected"
	StateClosed       statemachine.State = "closed"
)

const (
	evDial        statemachine.Event = "dial"
	evEstablished statemachine.Event = "established"
	evDropped     statemachine.Event = "dropped"
	evClose       statemachine.Event = "close"
)

type subscription struct {
	id uint64
	h  Handler
}

// Client is a single persistent event connection with ordered dispatch.
type Client struct {
	dialer        Dialer
	log           *slog.Logger
	backoffBase   time.Duration
	backoffMax    time.Duration
	jitterPercent uint64
	queueSize     int

	fsm *statemachine.Machine

	mu       sync.RWMutex
	conn     Conn
	handlers map[string][]subscription
	nextID   uint64

	running   atomic.Bool
	closed    atomic.Bool
	inbox     chan Message
	done      chan struct{}
	closeOnce sync.Once
	dispatch  sync.WaitGroup
}

// New creates a client and starts its dispatch goroutine. Call Run to connect.
func New(dialer Dialer, opts ...Option) *Client {
	c := &Client{
		dialer:        dialer,
		log:           slog.Default(),
		backoffBase:   500 * time.Millisecond,
		backoffMax:    30 * time.Second,
		jitterPercent: 20,
		queueSize:     256,
		handlers:      make(map[string][]subscription),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("socket"))
	c.inbox = make(chan Message, c.queueSize)

	live := []statemachine.State{StateIdle, StateConnecting, StateConnected, StateDisconnected}
	c.fsm = statemachine.MustNew(StateIdle,
		statemachine.WithTransitionFrom([]statemachine.State{StateIdle, StateDisconnected}, StateConnecting, evDial),
		statemachine.WithTransition(StateConnecting, StateConnected, evEstablished),
		statemachine.WithTransitionFrom([]statemachine.State{StateConnecting, StateConnected}, StateDisconnected, evDropped),
		statemachine.WithTransitionFrom(live, StateClosed, evClose),
		statemachine.WithListener(c.onTransition),
	)

	c.dispatch.Add(1)
	go c.dispatchLoop()
	return c
}

// IsConnected reports whether the transport is currently established.
func (c *Client) IsConnected() bool {
	return c.fsm.Is(StateConnected)
}

// State returns the current lifecycle state.
func (c *Client) State() statemachine.State {
	return c.fsm.Current()
}

// Emit sends event with payload. It never fails: when disconnected, or when
// the payload cannot be encoded or written, the event is dropped and logged.
func (c *Client) Emit(event string, payload any) {
	c.EmitCorrelated(event, "", payload)
}

// EmitCorrelated is Emit with a correlation id the server echoes back when it
// rejects the event.
func (c *Client) EmitCorrelated(event, cid string, payload any) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !c.IsConnected() {
		c.log.LogAttrs(context.Background(), slog.LevelDebug, "emit skipped, not connected",
			logger.Event(event), logger.CorrelationID(cid))
		return
	}

	frame, err := encode(event, cid, payload)
	if err != nil {
		c.log.LogAttrs(context.Background(), slog.LevelError, "emit encode failed",
			logger.Event(event), logger.Error(err))
		return
	}
	if err := conn.Write(frame); err != nil {
		c.log.LogAttrs(context.Background(), slog.LevelWarn, "emit write failed",
			logger.Event(event), logger.CorrelationID(cid), logger.Error(err))
	}
}

// Subscribe registers h for event. Handlers for the same event run in the
// order they were registered. The returned function removes the handler and
// is safe to call more than once.
func (c *Client) Subscribe(event string, h Handler) func() {
	if h == nil || c.closed.Load() {
		return func() {}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], subscription{id: id, h: h})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(event, id) })
	}
}

func (c *Client) unsubscribe(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[event]
	for i, s := range subs {
		if s.id == id {
			c.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

// Run connects and keeps the connection alive until ctx ends or Close is
// called. It returns nil after Close and ctx.Err() on cancellation.
func (c *Client) Run(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			return c.exitErr(ctx, err)
		}

		err = c.serve(ctx, conn)
		c.setConn(nil)
		_ = c.fsm.Fire(context.Background(), evDropped)

		if ctx.Err() != nil {
			return c.exitErr(ctx, ctx.Err())
		}
		c.log.LogAttrs(ctx, slog.LevelWarn, "connection dropped", logger.Error(err))

		select {
		case <-ctx.Done():
			return c.exitErr(ctx, ctx.Err())
		case <-time.After(c.backoffBase):
		}
	}
}

func (c *Client) exitErr(ctx context.Context, err error) error {
	if c.closed.Load() {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.backoffBase)
	b = retry.WithCappedDuration(c.backoffMax, b)
	if c.jitterPercent > 0 {
		b = retry.WithJitterPercent(c.jitterPercent, b)
	}
	return b
}

func (c *Client) connect(ctx context.Context) (Conn, error) {
	var (
		conn    Conn
		attempt int
	)
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		_ = c.fsm.Fire(ctx, evDial)

		start := time.Now()
		cn, err := c.dialer.Dial(ctx)
		if err != nil {
			_ = c.fsm.Fire(context.Background(), evDropped)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.LogAttrs(ctx, slog.LevelWarn, "dial failed",
				logger.RetryCount(attempt), logger.Error(err))
			return retry.RetryableError(err)
		}

		c.log.LogAttrs(ctx, slog.LevelInfo, "connected",
			logger.RetryCount(attempt-1), logger.Duration(time.Since(start)))
		conn = cn
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.setConn(conn)
	if err := c.fsm.Fire(ctx, evEstablished); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// serve reads frames until the connection fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = conn.Close()
	}()

	for {
		frame, err := conn.Read()
		if err != nil {
			return err
		}

		msg, err := decode(frame)
		if err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "inbound frame skipped", logger.Error(err))
			continue
		}
		if msg.Event == EventConnect || msg.Event == EventDisconnect {
			continue
		}
		if !c.enqueue(msg) {
			return ErrClosed
		}
	}
}

func (c *Client) enqueue(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) onTransition(from, to statemachine.State, ev statemachine.Event) {
	c.log.LogAttrs(context.Background(), slog.LevelDebug, "state changed",
		slog.String("from", string(from)), logger.State(string(to)), logger.Event(string(ev)))

	switch {
	case to == StateConnected:
		c.enqueue(Message{Event: EventConnect})
	case from == StateConnected && to == StateDisconnected:
		c.enqueue(Message{Event: EventDisconnect})
	}
}

func (c *Client) dispatchLoop() {
	defer c.dispatch.Done()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.inbox:
			c.deliver(msg)
		}
	}
}

func (c *Client) deliver(msg Message) {
	c.mu.RLock()
	subs := append([]subscription(nil), c.handlers[msg.Event]...)
	c.mu.RUnlock()

	if len(subs) == 0 {
		c.log.LogAttrs(context.Background(), slog.LevelDebug, "no handlers", logger.Event(msg.Event))
		return
	}
	// The closed check is per handler so Close cuts a fan-out short; it does
	// not stop a handler that has already started.
	for _, s := range subs {
		if c.closed.Load() {
			return
		}
		c.call(s.h, msg)
	}
}

func (c *Client) call(h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.LogAttrs(context.Background(), slog.LevelError, "handler panicked",
				logger.Event(msg.Event), slog.Any("panic", r))
		}
	}()
	h(msg)
}

// Close tears the client down: the transport is closed, dispatch stops and
// every subscription is released. It is idempotent and safe to call from a
// handler. A handler that was already running when Close began may still
// finish after Close returns; call Wait to block until it has, after which
// no handler runs again.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.fsm.Fire(context.Background(), evClose)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.handlers = make(map[string][]subscription)
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// Wait blocks until the dispatch goroutine has exited after Close. It must not
// be called from a handler.
func (c *Client) Wait() {
	c.dispatch.Wait()
}

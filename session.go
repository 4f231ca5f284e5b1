package apnsgate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/takimoto3/apnsgate/wire"
)

// sessionState tracks where a session is in its connection lifecycle.
type sessionState int32

const (
	stateIdle sessionState = iota
	stateConnecting
	stateConnected
	stateBackoff
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateBackoff:
		return "backoff"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Handle tracks one Send call. It resolves when the call's frames have
// been handed to the kernel; the binary protocol has no delivery
// acknowledgment beyond that.
type Handle struct {
	session *Session
	done    chan struct{}

	mu       sync.Mutex
	err      error
	resolved bool
}

func newHandle(s *Session) *Handle {
	return &Handle{session: s, done: make(chan struct{})}
}

// Done returns a channel closed once the handle has resolved.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the handle's outcome. It is nil until Done is closed and
// nil afterwards on success.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the handle resolves and returns its outcome.
func (h *Handle) Wait() error {
	<-h.done
	return h.Err()
}

// Cancel withdraws the send if it is still waiting for a connection.
// Once the bytes have been handed to the kernel, Cancel is a no-op.
func (h *Handle) Cancel() {
	select {
	case h.session.cancels <- h:
	case <-h.done:
	case <-h.session.closed:
	}
}

func (h *Handle) resolve(err error) {
	h.mu.Lock()
	if !h.resolved {
		h.resolved = true
		h.err = err
		close(h.done)
	}
	h.mu.Unlock()
}

// pendingSend is one Send call's framed bytes waiting for a connection.
type pendingSend struct {
	buf      []byte
	count    int
	handle   *Handle
	deadline time.Time
}

// dialResult and readEvent are the dial and reader goroutines' reports
// back to the session loop. readEvent carries the connection it was
// observed on so the loop can discard reports from a connection it has
// already abandoned.
type dialResult struct {
	conn net.Conn
	err  error
}

type readEvent struct {
	conn net.Conn
	resp *wire.ErrorResponse
	err  error
}

// Session is the long-lived send pipeline for one provisioned app: a
// reconnecting TLS connection to the gateway, an outbound submission
// queue, and a reader correlating inbound error frames to remembered
// notifications.
//
// A single goroutine owns the connection and all timers; Send may be
// called from any goroutine.
type Session struct {
	app  *App
	log  logrus.FieldLogger
	dial dialFunc

	submits   chan *pendingSend
	cancels   chan *Handle
	closed    chan struct{}
	closeOnce sync.Once

	state atomic.Int32
}

func newSession(app *App) *Session {
	s := &Session{
		app:     app,
		log:     app.log.WithField("component", "session"),
		dial:    app.gatewayDial,
		submits: make(chan *pendingSend, 16),
		cancels: make(chan *Handle),
		closed:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Send frames the notifications and submits them to the gateway,
// connecting first if needed. It does not block on the network: the
// returned Handle resolves once the bytes reach the kernel, or fails
// with ErrNotificationTimeout when the connection is not ready within
// the app's timeout.
//
// Within one call, notifications are framed and transmitted in
// argument order, and the whole call's frames go out contiguously.
// Caller errors (bad token, oversized payload) are returned
// synchronously and leave no trace in the ring.
func (s *Session) Send(notifications []*Notification) (*Handle, error) {
	handle := newHandle(s)
	if len(notifications) == 0 {
		handle.resolve(nil)
		return handle, nil
	}

	encoded, err := encodeAll(notifications)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	s.app.mu.Lock()
	for i := range encoded {
		s.app.ring.insert(encoded[i].notification)
		if err := encoded[i].frame(&buf); err != nil {
			s.app.mu.Unlock()
			return nil, err
		}
	}
	s.app.mu.Unlock()

	p := &pendingSend{
		buf:      buf.Bytes(),
		count:    len(encoded),
		handle:   handle,
		deadline: time.Now().Add(s.app.Timeout),
	}
	select {
	case s.submits <- p:
	case <-s.closed:
		handle.resolve(ErrShutdown)
	}
	return handle, nil
}

// Close shuts the session down. Outstanding handles fail with
// ErrShutdown.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *Session) currentState() sessionState {
	return sessionState(s.state.Load())
}

func (s *Session) setState(state sessionState) {
	s.state.Store(int32(state))
}

// run owns the connection, the pending queue and every timer. All
// state transitions happen here.
func (s *Session) run() {
	var (
		conn     net.Conn
		pending  []*pendingSend
		dialDone chan dialResult
		reads    chan readEvent
		backoff  = initialBackoff
	)

	backoffTimer := stoppedTimer()
	deadlineTimer := stoppedTimer()

	s.setState(stateIdle)

	connect := func() {
		s.setState(stateConnecting)
		done := make(chan dialResult, 1)
		dialDone = done
		go func() {
			c, err := s.dial()
			done <- dialResult{conn: c, err: err}
		}()
	}

	enterBackoff := func() {
		if conn != nil {
			conn.Close()
			conn = nil
		}
		reads = nil
		s.setState(stateBackoff)
		metricReconnects.Inc()
		delay := withJitter(backoff)
		s.log.WithField("delay", delay.String()).Info("gateway connection lost, backing off")
		backoffTimer.Reset(delay)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	expire := func(now time.Time) {
		kept := pending[:0]
		for _, p := range pending {
			if p.deadline.After(now) {
				kept = append(kept, p)
			} else {
				p.handle.resolve(ErrNotificationTimeout)
			}
		}
		pending = kept
	}

	rearmDeadline := func() {
		deadlineTimer.Stop()
		if len(pending) > 0 {
			// FIFO submission with a uniform timeout: the head carries
			// the earliest deadline.
			deadlineTimer.Reset(time.Until(pending[0].deadline))
		}
	}

	// write hands one pending send to the kernel. It reports false when
	// the connection died underneath it.
	write := func(p *pendingSend) bool {
		n, err := conn.Write(p.buf)
		if err == nil {
			p.handle.resolve(nil)
			metricNotificationsSent.Add(float64(p.count))
			return true
		}
		s.log.WithError(err).Warn("gateway write failed")
		if n == 0 {
			// Nothing reached the kernel; keep the send pending for the
			// next connection, still under its original deadline.
			pending = append([]*pendingSend{p}, pending...)
		} else {
			p.handle.resolve(fmt.Errorf("apnsgate: gateway write failed mid-frame: %w", err))
		}
		enterBackoff()
		return false
	}

	flush := func() {
		expire(time.Now())
		for len(pending) > 0 && conn != nil {
			p := pending[0]
			pending = pending[1:]
			if !write(p) {
				break
			}
		}
		rearmDeadline()
	}

	for {
		select {
		case p := <-s.submits:
			pending = append(pending, p)
			if conn != nil {
				flush()
				break
			}
			rearmDeadline()
			if s.currentState() == stateIdle {
				connect()
			}

		case result := <-dialDone:
			dialDone = nil
			if result.err != nil {
				s.log.WithError(result.err).Warn("gateway connect failed")
				enterBackoff()
				break
			}
			conn = result.conn
			backoff = initialBackoff
			s.setState(stateConnected)
			s.log.Info("gateway connected")
			events := make(chan readEvent, 1)
			reads = events
			go s.readLoop(conn, events)
			flush()

		case event := <-reads:
			if event.conn != conn {
				break // report from a connection already abandoned
			}
			switch {
			case event.resp != nil:
				recorded := s.app.rememberDisconnection(*event.resp)
				entry := s.log.WithFields(logrus.Fields{
					"status":     event.resp.Status.String(),
					"identifier": event.resp.Identifier,
				})
				if recorded.OffendingNotification != nil {
					entry = entry.WithField("notification", recorded.OffendingNotification.Identifier)
				}
				entry.Warn("gateway rejected a notification")
			case errors.Is(event.err, wire.ErrMalformedErrorFrame):
				s.log.WithError(event.err).Error("undecodable bytes from gateway")
			case errors.Is(event.err, io.EOF):
				s.log.Info("gateway closed the connection")
			default:
				s.log.WithError(event.err).Warn("gateway read failed")
			}
			enterBackoff()

		case <-backoffTimer.C:
			if s.currentState() == stateBackoff {
				connect()
			}

		case <-deadlineTimer.C:
			expire(time.Now())
			rearmDeadline()

		case h := <-s.cancels:
			// The canceled send may still be buffered in submits; take
			// queued submits first so the cancel cannot overtake them.
			for len(s.submits) > 0 {
				pending = append(pending, <-s.submits)
			}
			for i, p := range pending {
				if p.handle == h {
					pending = append(pending[:i], pending[i+1:]...)
					h.resolve(ErrCanceled)
					break
				}
			}
			if conn != nil {
				flush()
			} else {
				rearmDeadline()
				if len(pending) > 0 && s.currentState() == stateIdle {
					connect()
				}
			}

		case <-s.closed:
			for len(s.submits) > 0 {
				pending = append(pending, <-s.submits)
			}
			for _, p := range pending {
				p.handle.resolve(ErrShutdown)
			}
			pending = nil
			if conn != nil {
				conn.Close()
			}
			s.setState(stateClosed)
			return
		}
	}
}

// readLoop owns the read side of one connection. The gateway is silent
// until it rejects a notification, at which point it writes a single
// error frame and closes; one full frame or one failure therefore ends
// the loop.
func (s *Session) readLoop(conn net.Conn, events chan<- readEvent) {
	frame := make([]byte, wire.ErrorResponseLength)
	_, err := io.ReadFull(conn, frame)
	switch {
	case err == nil:
		resp, perr := wire.ParseErrorResponse(frame)
		if perr != nil {
			events <- readEvent{conn: conn, err: perr}
			return
		}
		events <- readEvent{conn: conn, resp: &resp}
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Readable bytes that do not form a whole frame.
		events <- readEvent{conn: conn, err: wire.ErrMalformedErrorFrame}
	default:
		events <- readEvent{conn: conn, err: err}
	}
}

// withJitter spreads reconnect attempts over [d/2, d] so a fleet of
// sessions does not stampede the gateway.
func withJitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

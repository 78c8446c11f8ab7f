package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Handler receives every inbound frame. Handlers run on the read goroutine and must not block.
// In particular a handler must not call Send synchronously: the reply cannot be read until the
// handler returns, so the call hangs until its request timeout. Hand such work to another
// goroutine.
type Handler func(*Response)

// Session owns one persistent connection to the trading gateway and multiplexes correlated
// requests over it.
//
// Every outbound request gets a monotonically increasing req_id; the reply carrying the same
// id settles exactly one pending request. All inbound frames, claimed or not, are also
// delivered to subscribers. An unexpected close schedules a reconnect after
// ReconnectBaseDelay × attempt, up to MaxReconnectAttempts; Disconnect suppresses that.
type Session struct {
	cfg     Config
	log     *logger.Entry
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	// afterFunc schedules reconnects; replaced in tests to observe the delays.
	afterFunc func(time.Duration, func()) *time.Timer

	connectMu sync.Mutex

	mu                sync.Mutex
	link              *link
	state             State
	closing           bool
	reconnectAttempts int
	reconnectTimer    *time.Timer

	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]*pendingRequest

	subsMu      sync.RWMutex
	subscribers map[int]Handler
	nextSubID   int
}

func New(cfg Config, log *logger.Entry) *Session {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.WithField("component", "gateway_session")
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Session{
		cfg: cfg,
		log: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
			Proxy:             http.ProxyFromEnvironment,
		},
		limiter:     rate.NewLimiter(limit, cfg.RateBurst),
		afterFunc:   time.AfterFunc,
		state:       StateDisconnected,
		pending:     make(map[int64]*pendingRequest),
		subscribers: make(map[int]Handler),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsConnected() bool {
	return s.State() == StateOpen
}

// ReconnectAttempts returns the number of automatic attempts since the last successful connect.
func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectAttempts
}

// Connect opens a new link and authorizes it with the configured token. Any previous link is
// superseded. It returns once authorization succeeded.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.connect(ctx, true)
}

func (s *Session) ensureConnected(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	if s.IsConnected() {
		return nil
	}
	return s.connect(ctx, true)
}

func (s *Session) connect(ctx context.Context, explicit bool) error {
	if s.cfg.Token == "" {
		return ErrMissingToken
	}

	s.mu.Lock()
	if !explicit && s.closing {
		s.mu.Unlock()
		return ErrConnectionClosed
	}
	if explicit {
		s.closing = false
	}
	// a pending automatic attempt stays armed until this one succeeds
	old := s.link
	s.link = nil
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	if old != nil {
		old.close()
	}

	endpoint, err := s.endpoint()
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}

	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(StateDisconnected)
		s.retryLocked()
		s.mu.Unlock()
		return fmt.Errorf("dial gateway: %w", err)
	}

	l := newLink(conn)
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		l.close()
		return ErrConnectionClosed
	}
	s.link = l
	s.mu.Unlock()

	log := s.log.WithField("conn_id", l.id)
	go s.readLoop(l, log)
	if s.cfg.PingInterval > 0 {
		go s.pingLoop(l, log)
	}

	if _, err := s.roundTrip(ctx, Request{"authorize": s.cfg.Token}); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) {
			// rejected token or abandoned by the caller: retrying cannot help
			s.dropLink(l, StateDisconnected)
			log.WithError(err).Error("gateway authorization failed")
			return fmt.Errorf("authorize: %w", err)
		}

		// unanswered authorize counts as a lost transport
		s.mu.Lock()
		if s.link == l {
			s.link = nil
			s.setStateLocked(StateDisconnected)
			s.retryLocked()
		}
		s.mu.Unlock()
		l.close()
		log.WithError(err).Warn("gateway authorization not answered")
		return fmt.Errorf("authorize: %w", err)
	}

	s.mu.Lock()
	if s.link == l {
		s.reconnectAttempts = 0
		if s.reconnectTimer != nil {
			s.reconnectTimer.Stop()
			s.reconnectTimer = nil
		}
		s.setStateLocked(StateOpen)
	}
	s.mu.Unlock()

	log.Info("gateway session authorized")
	return nil
}

// Disconnect closes the link, rejects in-flight requests with ErrConnectionClosed and stops
// automatic reconnection until the next explicit Connect or operation.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.closing = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	l := s.link
	s.link = nil
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	if l != nil {
		l.close()
	}
	s.rejectAll(ErrConnectionClosed)
	s.log.Info("gateway session disconnected")
}

// Subscribe registers h for every inbound frame and returns the func that removes it.
func (s *Session) Subscribe(h Handler) func() {
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = h
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subscribers, id)
		s.subsMu.Unlock()
	}
}

func (s *Session) publish(resp *Response) {
	s.subsMu.RLock()
	handlers := make([]Handler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.subsMu.RUnlock()

	for _, h := range handlers {
		h(resp)
	}
}

func (s *Session) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	if s.cfg.AppID != "" {
		q := u.Query()
		q.Set("app_id", s.cfg.AppID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Session) currentLink() *link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.setStateLocked(st)
	s.mu.Unlock()
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	connectionState.Set(float64(st))
}

// dropLink tears l down without scheduling a reconnect, if it is still the current link.
func (s *Session) dropLink(l *link, st State) {
	s.mu.Lock()
	if s.link == l {
		s.link = nil
		s.setStateLocked(st)
	}
	s.mu.Unlock()
	l.close()
}

// markTransportError flags a failed write. It does not reconnect on its own; the read loop's
// close handling does if the socket is actually gone.
func (s *Session) markTransportError(l *link, err error) {
	s.mu.Lock()
	if s.link == l {
		s.setStateLocked(StateErrored)
	}
	s.mu.Unlock()
	s.log.WithField("conn_id", l.id).WithError(err).Warn("gateway transport error")
}

func (s *Session) readLoop(l *link, log *logger.Entry) {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			s.handleClose(l, err, log)
			return
		}
		s.dispatch(data, log)
	}
}

func (s *Session) handleClose(l *link, err error, log *logger.Entry) {
	s.mu.Lock()
	if s.link != l {
		// superseded or torn down on purpose
		s.mu.Unlock()
		l.close()
		return
	}
	s.link = nil
	s.setStateLocked(StateClosed)
	log.WithError(err).Warn("gateway connection closed")
	s.retryLocked()
	s.mu.Unlock()
	l.close()
}

func (s *Session) pingLoop(l *link, log *logger.Entry) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if err := l.ping(); err != nil {
				log.WithError(err).Warn("failed to send gateway ping")
				return
			}
		}
	}
}

type link struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newLink(conn *websocket.Conn) *link {
	return &link{
		id:   uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}
}

func (l *link) write(payload []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(websocket.TextMessage, payload)
}

func (l *link) ping() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (l *link) close() {
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

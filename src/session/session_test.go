package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetrader/src/session/sessiontest"
)

func testConfig(url string) Config {
	return Config{
		URL:                  url,
		Token:                "test-token",
		RequestTimeout:       2 * time.Second,
		ReconnectBaseDelay:   10 * time.Millisecond,
		MaxReconnectAttempts: 3,
		HandshakeTimeout:     time.Second,
	}
}

func newTestSession(t *testing.T, cfg Config) (*Session, *logrustest.Hook) {
	t.Helper()
	log, hook := logrustest.NewNullLogger()
	s := New(cfg, logrus.NewEntry(log))
	t.Cleanup(s.Disconnect)
	return s, hook
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) afterFunc(d time.Duration, f func()) *time.Timer {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return time.AfterFunc(time.Millisecond, f)
}

// holdingRecorder records scheduled attempts without running them; fire runs the latest.
type holdingRecorder struct {
	delayRecorder
	pending []func()
}

func (r *holdingRecorder) afterFunc(d time.Duration, f func()) *time.Timer {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.pending = append(r.pending, f)
	r.mu.Unlock()
	return time.AfterFunc(time.Hour, func() {})
}

func (r *holdingRecorder) fire() {
	r.mu.Lock()
	f := r.pending[len(r.pending)-1]
	r.mu.Unlock()
	f()
}

func (r *delayRecorder) snapshot() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func TestConnectAuthorizesWithToken(t *testing.T) {
	gw := sessiontest.New(t, nil)
	s, _ := newTestSession(t, testConfig(gw.URL()))

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())
	assert.Equal(t, StateOpen, s.State())

	auth := gw.FramesWith("authorize")
	require.Len(t, auth, 1)
	assert.Equal(t, "test-token", auth[0]["authorize"])
	assert.NotZero(t, auth[0].ReqID())
}

func TestConnectWithoutTokenFails(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	cfg.Token = ""
	s, _ := newTestSession(t, cfg)

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, s.IsConnected())
}

func TestAuthorizeRejectionLeavesSessionDisconnected(t *testing.T) {
	gw := sessiontest.New(t, nil)
	gw.FailAuthorize("InvalidToken", "The token is invalid.")

	s, _ := newTestSession(t, testConfig(gw.URL()))
	rec := &delayRecorder{}
	s.afterFunc = rec.afterFunc

	err := s.Connect(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "InvalidToken", apiErr.Code)
	assert.Equal(t, "The token is invalid.", apiErr.Message)
	assert.Equal(t, "authorize", apiErr.MsgType)

	assert.False(t, s.IsConnected())
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "authorization failure must not schedule a reconnect")
	assert.Equal(t, 1, gw.Accepted())
}

func TestSendCorrelatesOutOfOrderReplies(t *testing.T) {
	const n = 8

	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		idx := int(f["echo"].(float64))
		go func() {
			// later requests are answered first
			time.Sleep(time.Duration(n-idx) * 10 * time.Millisecond)
			_ = c.Reply(f, "echo", map[string]interface{}{"echo": idx})
		}()
	})
	s, _ := newTestSession(t, testConfig(gw.URL()))
	require.NoError(t, s.Connect(context.Background()))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.Send(context.Background(), Request{"echo": i})
			if err != nil {
				errs <- err
				return
			}
			var body struct {
				Echo int `json:"echo"`
			}
			if err := resp.Decode(&body); err != nil {
				errs <- err
				return
			}
			if body.Echo != i {
				errs <- fmt.Errorf("request %d resolved with reply %d", i, body.Echo)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 0, s.Pending())

	ids := map[int64]bool{}
	for _, f := range gw.Frames() {
		assert.False(t, ids[f.ReqID()], "req_id %d reused", f.ReqID())
		ids[f.ReqID()] = true
	}
}

func TestDuplicateReplyOnlyReachesSubscribers(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		_ = c.Reply(f, "ticks", map[string]interface{}{"tick": map[string]interface{}{"quote": 1.5}})
		_ = c.Reply(f, "ticks", map[string]interface{}{"tick": map[string]interface{}{"quote": 9.9}})
	})
	s, _ := newTestSession(t, testConfig(gw.URL()))

	var mu sync.Mutex
	var seen []*Response
	unsubscribe := s.Subscribe(func(r *Response) {
		if r.MsgType != "ticks" {
			return
		}
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	})
	defer unsubscribe()

	resp, err := s.Send(context.Background(), Request{"ticks": "R_100"})
	require.NoError(t, err)

	var body struct {
		Tick struct {
			Quote float64 `json:"quote"`
		} `json:"tick"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, 1.5, body.Tick.Quote)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, seen[0].ReqID, seen[1].ReqID)
	mu.Unlock()
	assert.Equal(t, 0, s.Pending())
}

func TestTimeoutWinsOverLateReply(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		go func() {
			time.Sleep(150 * time.Millisecond)
			_ = c.Reply(f, "balance", map[string]interface{}{"balance": map[string]interface{}{"balance": 1}})
		}()
	})

	cfg := testConfig(gw.URL())
	s, _ := newTestSession(t, cfg)
	require.NoError(t, s.Connect(context.Background()))
	s.cfg.RequestTimeout = 50 * time.Millisecond

	late := make(chan *Response, 1)
	s.Subscribe(func(r *Response) {
		if r.MsgType == "balance" {
			late <- r
		}
	})

	start := time.Now()
	resp, err := s.Send(context.Background(), Request{"balance": 1})
	require.ErrorIs(t, err, ErrRequestTimeout)
	assert.Nil(t, resp)
	assert.Less(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 0, s.Pending())

	select {
	case r := <-late:
		assert.NotZero(t, r.ReqID)
	case <-time.After(time.Second):
		t.Fatal("late reply was not delivered to subscribers")
	}
	assert.Equal(t, 0, s.Pending())
	assert.True(t, s.IsConnected())
}

func TestGatewayErrorRejectsRequest(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		_ = c.ReplyError(f, "buy", "InvalidContractProposal", "Proposal expired.")
	})
	s, _ := newTestSession(t, testConfig(gw.URL()))

	resp, err := s.Send(context.Background(), Request{"buy": "abc", "price": 10})
	require.Error(t, err)
	assert.Equal(t, "Proposal expired.", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "buy", apiErr.MsgType)
	require.NotNil(t, resp)
	assert.Equal(t, "buy", resp.MsgType)
}

func TestContextCancelRemovesPendingRequest(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {})
	s, _ := newTestSession(t, testConfig(gw.URL()))
	require.NoError(t, s.Connect(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Send(ctx, Request{"portfolio": 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, s.Pending())
}

func TestDisconnectRejectsPendingAndStopsReconnect(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {})
	s, _ := newTestSession(t, testConfig(gw.URL()))
	rec := &delayRecorder{}
	s.afterFunc = rec.afterFunc
	require.NoError(t, s.Connect(context.Background()))

	errs := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), Request{"portfolio": 1})
		errs <- err
	}()

	require.Eventually(t, func() bool { return s.Pending() == 1 }, time.Second, 5*time.Millisecond)
	s.Disconnect()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(time.Second):
		t.Fatal("pending request was not settled by Disconnect")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 1, gw.Accepted())
}

func TestReconnectsAfterUnexpectedClose(t *testing.T) {
	gw := sessiontest.New(t, nil)
	s, hook := newTestSession(t, testConfig(gw.URL()))
	rec := &delayRecorder{}
	s.afterFunc = rec.afterFunc
	require.NoError(t, s.Connect(context.Background()))

	gw.DropConnections()

	require.Eventually(t, func() bool {
		return gw.Accepted() == 2 && s.IsConnected()
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []time.Duration{10 * time.Millisecond}, rec.snapshot())
	assert.Equal(t, 0, s.ReconnectAttempts())
	assert.Len(t, gw.FramesWith("authorize"), 2)

	var closed bool
	for _, e := range hook.AllEntries() {
		if e.Message == "gateway connection closed" {
			closed = true
		}
	}
	assert.True(t, closed, "expected close to be logged")
}

func TestReconnectBackoffGrowsLinearlyAndStops(t *testing.T) {
	gw := sessiontest.New(t, nil)
	url := gw.URL()
	gw.Close()

	s, _ := newTestSession(t, testConfig(url))
	rec := &delayRecorder{}
	s.afterFunc = rec.afterFunc

	require.Error(t, s.Connect(context.Background()))

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == len(want)
	}, 2*time.Second, 5*time.Millisecond)

	// no fourth attempt
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, want, rec.snapshot())
	assert.Equal(t, 3, s.ReconnectAttempts())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSendDuringOutageKeepsReconnectBudget(t *testing.T) {
	gw := sessiontest.New(t, nil)
	url := gw.URL()
	gw.Close()

	cfg := testConfig(url)
	cfg.ReconnectBaseDelay = time.Hour
	s, _ := newTestSession(t, cfg)
	rec := &holdingRecorder{}
	s.afterFunc = rec.afterFunc

	for i := 0; i < 4; i++ {
		_, err := s.Send(context.Background(), Request{"ping": 1})
		require.Error(t, err)
	}

	// only the first failure arms an attempt; later calls leave it pending
	assert.Equal(t, []time.Duration{time.Hour}, rec.snapshot())
	assert.Equal(t, 1, s.ReconnectAttempts())
	assert.Equal(t, StateDisconnected, s.State())

	// the automatic attempt fails too and arms the next one
	rec.fire()
	assert.Equal(t, []time.Duration{time.Hour, 2 * time.Hour}, rec.snapshot())
	assert.Equal(t, 2, s.ReconnectAttempts())

	_, err := s.Send(context.Background(), Request{"ping": 1})
	require.Error(t, err)
	assert.Equal(t, 2, s.ReconnectAttempts())
}

func TestSendAfterOutageConnectsAndClearsPendingAttempt(t *testing.T) {
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		_ = c.Reply(f, "ping", map[string]interface{}{"ping": "pong"})
	})
	s, _ := newTestSession(t, testConfig(gw.URL()))
	rec := &holdingRecorder{}
	s.afterFunc = rec.afterFunc
	require.NoError(t, s.Connect(context.Background()))

	gw.DropConnections()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.ReconnectAttempts())

	_, err := s.Send(context.Background(), Request{"ping": 1})
	require.NoError(t, err)
	assert.True(t, s.IsConnected())
	assert.Equal(t, 0, s.ReconnectAttempts())

	// the stale attempt finds the session open and does nothing
	rec.fire()
	assert.Equal(t, 2, gw.Accepted())
	assert.Len(t, rec.snapshot(), 1)
}

func TestUnansweredAuthorizeSchedulesReconnect(t *testing.T) {
	gw := sessiontest.New(t, nil)
	gw.MuteAuthorize()

	cfg := testConfig(gw.URL())
	cfg.RequestTimeout = 50 * time.Millisecond
	s, _ := newTestSession(t, cfg)
	rec := &holdingRecorder{}
	s.afterFunc = rec.afterFunc

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrRequestTimeout)

	assert.Equal(t, []time.Duration{10 * time.Millisecond}, rec.snapshot())
	assert.Equal(t, 1, s.ReconnectAttempts())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestTransportErrorDoesNotScheduleReconnect(t *testing.T) {
	gw := sessiontest.New(t, nil)
	s, _ := newTestSession(t, testConfig(gw.URL()))
	rec := &delayRecorder{}
	s.afterFunc = rec.afterFunc
	require.NoError(t, s.Connect(context.Background()))

	s.markTransportError(s.currentLink(), errors.New("broken pipe"))

	assert.Equal(t, StateErrored, s.State())
	assert.False(t, s.IsConnected())
	assert.Empty(t, rec.snapshot())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var conn *sessiontest.Conn
	var connMu sync.Mutex
	gw := sessiontest.New(t, func(c *sessiontest.Conn, f sessiontest.Frame) {
		connMu.Lock()
		conn = c
		connMu.Unlock()
		_ = c.Reply(f, "ping", map[string]interface{}{"ping": "pong"})
	})
	s, _ := newTestSession(t, testConfig(gw.URL()))

	pushes := make(chan *Response, 4)
	unsubscribe := s.Subscribe(func(r *Response) {
		if r.MsgType == "transaction" {
			pushes <- r
		}
	})

	_, err := s.Send(context.Background(), Request{"ping": 1})
	require.NoError(t, err)

	connMu.Lock()
	push := conn
	connMu.Unlock()
	require.NotNil(t, push)

	require.NoError(t, push.Send(map[string]interface{}{"msg_type": "transaction", "transaction": map[string]interface{}{"amount": 5}}))
	select {
	case r := <-pushes:
		assert.Zero(t, r.ReqID)
	case <-time.After(time.Second):
		t.Fatal("unsolicited frame not delivered")
	}

	unsubscribe()
	require.NoError(t, push.Send(map[string]interface{}{"msg_type": "transaction"}))

	// a correlated round trip after the push proves the push was already dispatched
	_, err = s.Send(context.Background(), Request{"ping": 1})
	require.NoError(t, err)
	assert.Len(t, pushes, 0)
}

func TestBackoffDelay(t *testing.T) {
	base := 500 * time.Millisecond
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, time.Duration(attempt)*base, backoffDelay(base, attempt))
	}
}

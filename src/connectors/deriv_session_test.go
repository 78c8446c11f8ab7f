package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetrader/src/session"
	"voicetrader/src/session/sessiontest"
)

func newGatewayClient(t *testing.T, handle sessiontest.HandlerFunc) (*DerivClient, *sessiontest.Gateway) {
	t.Helper()
	gw := sessiontest.New(t, handle)

	log, _ := logrustest.NewNullLogger()
	sess := session.New(session.Config{
		URL:                  gw.URL(),
		Token:                "live-token",
		RequestTimeout:       300 * time.Millisecond,
		ReconnectBaseDelay:   10 * time.Millisecond,
		MaxReconnectAttempts: 2,
		HandshakeTimeout:     time.Second,
	}, logrus.NewEntry(log))

	c := NewDerivClientWithSession(sess, "live-token", "USD").WithLogger(logrus.NewEntry(log))
	t.Cleanup(c.Close)
	return c, gw
}

func TestBuyContractOverWebsocket(t *testing.T) {
	c, gw := newGatewayClient(t, func(conn *sessiontest.Conn, f sessiontest.Frame) {
		switch {
		case f.Has("proposal"):
			_ = conn.Reply(f, "proposal", map[string]interface{}{"proposal": map[string]interface{}{"id": "p1", "ask_price": 5}})
		case f.Has("buy"):
			_ = conn.Reply(f, "buy", map[string]interface{}{"buy": map[string]interface{}{"contract_id": "c1", "buy_price": 5}})
		}
	})

	result := c.BuyContract(context.Background(), BuyContractParams{Symbol: "R_100", ContractType: "CALL", Amount: 5, Duration: 5})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "c1", result.ContractID)
	assert.Equal(t, 5.0, result.BuyPrice)

	// authorize on connect, then the two trading frames in order
	frames := gw.Frames()
	require.Len(t, frames, 3)
	assert.True(t, frames[0].Has("authorize"))
	assert.True(t, frames[1].Has("proposal"))
	assert.Equal(t, "p1", frames[2]["buy"])
	assert.Less(t, frames[1].ReqID(), frames[2].ReqID())

	status := c.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "open", status.State)
	assert.Equal(t, 0, status.Pending)
}

func TestProposalErrorOverWebsocket(t *testing.T) {
	c, gw := newGatewayClient(t, func(conn *sessiontest.Conn, f sessiontest.Frame) {
		if f.Has("proposal") {
			_ = conn.ReplyError(f, "proposal", "InvalidSymbol", "Invalid symbol")
		}
	})

	result := c.BuyContract(context.Background(), BuyContractParams{Symbol: "XX", ContractType: "CALL", Amount: 5, Duration: 5})
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid symbol", result.Error)
	assert.Empty(t, gw.FramesWith("buy"))
}

func TestOperationTimesOutToDefault(t *testing.T) {
	c, _ := newGatewayClient(t, func(conn *sessiontest.Conn, f sessiontest.Frame) {})

	start := time.Now()
	positions := c.GetOpenPositions(context.Background())
	assert.NotNil(t, positions)
	assert.Empty(t, positions)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPushFramesReachSubscribers(t *testing.T) {
	c, _ := newGatewayClient(t, func(conn *sessiontest.Conn, f sessiontest.Frame) {
		if f.Has("ticks") {
			_ = conn.Reply(f, "tick", map[string]interface{}{"tick": map[string]interface{}{"quote": 943.21}})
			_ = conn.Send(map[string]interface{}{"msg_type": "tick", "tick": map[string]interface{}{"quote": 943.5}})
		}
	})

	quotes := make(chan string, 4)
	unsubscribe := c.Subscribe(func(r *session.Response) {
		if r.MsgType == "tick" {
			quotes <- string(r.Raw)
		}
	})
	defer unsubscribe()

	price, ok := c.GetSymbolPrice(context.Background(), "R_100")
	require.True(t, ok)
	assert.Equal(t, 943.21, price)

	require.Eventually(t, func() bool { return len(quotes) == 2 }, time.Second, 5*time.Millisecond)
}

// Package sessiontest runs an in-process gateway speaking the req_id framed JSON protocol, for
// tests of code built on the session package.
package sessiontest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame is one decoded client frame.
type Frame map[string]interface{}

// ReqID returns the correlation id the client attached, or 0.
func (f Frame) ReqID() int64 {
	if v, ok := f["req_id"].(float64); ok {
		return int64(v)
	}
	return 0
}

// Has reports whether the frame carries key, which for this protocol names the call.
func (f Frame) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// HandlerFunc answers one non-authorize frame. It runs on the connection's read goroutine;
// spawn a goroutine to answer late.
type HandlerFunc func(c *Conn, f Frame)

type Gateway struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	handle   HandlerFunc

	mu        sync.Mutex
	frames    []Frame
	conns     []*Conn
	accepted  int
	authReply map[string]interface{}
	authError *errorBody
	authMute  bool
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New starts a gateway answering authorize automatically and everything else with handle.
// It is closed by t.Cleanup.
func New(t testing.TB, handle HandlerFunc) *Gateway {
	t.Helper()

	g := &Gateway{
		handle: handle,
		authReply: map[string]interface{}{
			"loginid":    "CR900001",
			"balance":    10000.5,
			"currency":   "USD",
			"email":      "trader@example.com",
			"fullname":   "Test Trader",
			"is_virtual": 1,
		},
	}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.Close)
	return g
}

// URL returns the ws:// address of the gateway.
func (g *Gateway) URL() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

// FailAuthorize makes every following authorize call fail with the given error.
func (g *Gateway) FailAuthorize(code, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authError = &errorBody{Code: code, Message: message}
}

// MuteAuthorize makes the gateway accept authorize frames without ever answering them.
func (g *Gateway) MuteAuthorize() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authMute = true
}

func (g *Gateway) SetAuthorize(reply map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authReply = reply
}

// Frames returns every frame received so far, authorize included.
func (g *Gateway) Frames() []Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Frame, len(g.frames))
	copy(out, g.frames)
	return out
}

// FramesWith returns the received frames carrying key.
func (g *Gateway) FramesWith(key string) []Frame {
	var out []Frame
	for _, f := range g.Frames() {
		if f.Has(key) {
			out = append(out, f)
		}
	}
	return out
}

// Accepted returns the number of websocket connections accepted so far.
func (g *Gateway) Accepted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepted
}

// DropConnections closes every live connection from the server side.
func (g *Gateway) DropConnections() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (g *Gateway) Close() {
	g.DropConnections()
	g.server.Close()
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &Conn{ws: ws}
	g.mu.Lock()
	g.conns = append(g.conns, c)
	g.accepted++
	g.mu.Unlock()

	defer c.Close()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		g.mu.Lock()
		g.frames = append(g.frames, f)
		authReply, authErr, authMute := g.authReply, g.authError, g.authMute
		g.mu.Unlock()

		if f.Has("authorize") {
			if authMute {
				continue
			}
			if authErr != nil {
				_ = c.ReplyError(f, "authorize", authErr.Code, authErr.Message)
			} else {
				_ = c.Reply(f, "authorize", map[string]interface{}{"authorize": authReply})
			}
			continue
		}
		if g.handle != nil {
			g.handle(c, f)
		}
	}
}

// Conn is the server side of one client connection.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

// Reply answers f with body, adding msg_type and f's req_id.
func (c *Conn) Reply(f Frame, msgType string, body map[string]interface{}) error {
	out := make(map[string]interface{}, len(body)+2)
	for k, v := range body {
		out[k] = v
	}
	out["msg_type"] = msgType
	if id := f.ReqID(); id != 0 {
		out["req_id"] = id
	}
	return c.Send(out)
}

// ReplyError answers f with an error payload.
func (c *Conn) ReplyError(f Frame, msgType, code, message string) error {
	return c.Reply(f, msgType, map[string]interface{}{
		"error": errorBody{Code: code, Message: message},
	})
}

// Send writes an arbitrary frame, e.g. an unsolicited push.
func (c *Conn) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) Close() {
	c.once.Do(func() {
		_ = c.ws.Close()
	})
}

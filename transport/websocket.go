package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/errs"
)

// WebSocketCarrier is a Carrier over a WebSocket connection, always
// run atop TLS in production. Unlike streamCarrier it is
// message-oriented: gorilla/websocket delivers whole messages, so
// there is no framing-mode concern and no shared bufio.Reader to
// manage — one binary WebSocket message is one wire frame (legacy XML
// or TAK Protocol v1, chosen by the caller before each Send).
type WebSocketCarrier struct {
	conn  *websocket.Conn
	epoch time.Time
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// DialWebSocket opens a client WebSocket connection to urlStr (expected
// to be wss:// in production).
func DialWebSocket(ctx context.Context, urlStr string, header http.Header, epoch time.Time) (*WebSocketCarrier, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := d.DialContext(ctx, urlStr, header)
	if err != nil {
		return nil, errs.Wrap(errs.KindHandshakeFailed, "websocket dial failed", err)
	}
	return &WebSocketCarrier{conn: conn, epoch: epoch}, nil
}

// UpgradeWebSocket upgrades an inbound HTTP request to a WebSocket
// connection.
func UpgradeWebSocket(w http.ResponseWriter, r *http.Request, epoch time.Time) (*WebSocketCarrier, error) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindHandshakeFailed, "websocket upgrade failed", err)
	}
	return &WebSocketCarrier{conn: conn, epoch: epoch}, nil
}

// Send writes one binary WebSocket message carrying a single wire
// frame's bytes.
func (c *WebSocketCarrier) Send(ctx context.Context, env envelope.Envelope[[]byte]) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, env.Message); err != nil {
		return errs.Wrap(errs.KindUnreachable, "websocket write failed", err)
	}
	return nil
}

// Recv reads the next binary WebSocket message.
func (c *WebSocketCarrier) Recv(ctx context.Context) (envelope.Envelope[[]byte], error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(dl)
	}
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return envelope.Envelope[[]byte]{}, err
	}
	return envelope.New(c.epoch, c.conn.RemoteAddr(), payload, payload), nil
}

// Close sends a close frame and closes the underlying connection.
func (c *WebSocketCarrier) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// LocalAddr reports the connection's local address.
func (c *WebSocketCarrier) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr reports the connection's remote address.
func (c *WebSocketCarrier) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

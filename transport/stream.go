package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/wire"
)

// FrameMode selects which wire framing a streamCarrier currently reads
// and writes, switched live by the negotiator's state transitions.
type FrameMode int32

const (
	FrameModeLegacyXML FrameMode = iota
	FrameModeStreamingV1
)

// streamCarrier implements Carrier over any net.Conn-shaped
// stream (TCP or TLS): a single persistent *bufio.Reader survives
// FrameMode switches, so bytes buffered ahead of a mode change are
// never lost (see the wire package's framing readers, which each wrap
// whatever io.Reader they are given rather than owning the socket).
type streamCarrier struct {
	conn   net.Conn
	r      *bufio.Reader
	legacy *wire.LegacyReader
	stream *wire.StreamingReader
	wMu    sync.Mutex
	mode   atomic.Int32
	lims   limits.Limits
	epoch  time.Time
}

func newStreamCarrier(conn net.Conn, lims limits.Limits, epoch time.Time) *streamCarrier {
	r := bufio.NewReaderSize(conn, 4096)
	return &streamCarrier{
		conn:   conn,
		r:      r,
		legacy: wire.NewLegacyReaderBuffered(r),
		stream: wire.NewStreamingReaderBuffered(r),
		lims:   lims,
		epoch:  epoch,
	}
}

// SetFrameMode switches the carrier's framing, taking effect on the
// next ReadFrame/Send call. It never touches already-buffered bytes.
func (c *streamCarrier) SetFrameMode(m FrameMode) {
	c.mode.Store(int32(m))
}

func (c *streamCarrier) FrameMode() FrameMode {
	return FrameMode(c.mode.Load())
}

func (c *streamCarrier) Send(ctx context.Context, env envelope.Envelope[[]byte]) error {
	c.wMu.Lock()
	defer c.wMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	var out []byte
	switch c.FrameMode() {
	case FrameModeStreamingV1:
		out = wire.WriteStreamingFrame(env.Message)
	default:
		out = env.Message
	}
	_, err := c.conn.Write(out)
	if err != nil {
		return errs.Wrap(errs.KindUnreachable, "stream carrier write failed", err)
	}
	return nil
}

func (c *streamCarrier) Recv(ctx context.Context) (envelope.Envelope[[]byte], error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(dl)
	}
	var (
		payload []byte
		err     error
	)
	switch c.FrameMode() {
	case FrameModeStreamingV1:
		payload, err = c.stream.ReadFrame(c.lims)
	default:
		payload, err = c.legacy.ReadFrame(c.lims)
	}
	if err != nil {
		return envelope.Envelope[[]byte]{}, err
	}
	return envelope.New(c.epoch, c.conn.RemoteAddr(), payload, payload), nil
}

func (c *streamCarrier) Close() error { return c.conn.Close() }

func (c *streamCarrier) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *streamCarrier) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

package sapient

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// Session wraps one SAPIENT TCP connection: u32_le(length)||payload
// framing, read/write deadlines, and the registration handshake.
// ReadMessage/WriteMessage are not safe for concurrent use from more
// than one goroutine each (mirroring net.Conn's own contract); a
// Session is normally driven by one read task and one write task per
// §5's scheduling model.
type Session struct {
	conn         net.Conn
	r            *bufio.Reader
	lims         limits.Limits
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewSession wraps conn for SAPIENT framing, enabling TCP_NODELAY when
// conn is a *net.TCPConn.
func NewSession(conn net.Conn, lims limits.Limits, readTimeout, writeTimeout time.Duration, logger *slog.Logger) *Session {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:         conn,
		r:            bufio.NewReaderSize(conn, 4096),
		lims:         lims,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// ReadMessage reads and decodes the next framed SAPIENT message,
// honoring both ctx's deadline and the session's configured
// readTimeout (whichever is sooner).
func (s *Session) ReadMessage(ctx context.Context) (Message, error) {
	if err := s.armReadDeadline(ctx); err != nil {
		return Message{}, err
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		return Message{}, errs.Wrap(errs.KindSchemaMismatch, "sapient frame length read failed", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if uint64(n) > s.lims.MaxProtobufBytes {
		return Message{}, errs.New(errs.KindProtoBudget, "sapient frame length exceeds max_protobuf_bytes")
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return Message{}, errs.Wrap(errs.KindSchemaMismatch, "sapient frame payload read failed", err)
	}
	return Decode(payload, s.lims)
}

// WriteMessage encodes and writes msg as one framed SAPIENT message,
// honoring both ctx's deadline and the session's configured
// writeTimeout.
func (s *Session) WriteMessage(ctx context.Context, msg Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	if err := s.armWriteDeadline(ctx); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := s.conn.Write(lenBuf[:]); err != nil {
		return errs.Wrap(errs.KindSchemaMismatch, "sapient frame length write failed", err)
	}
	if _, err := s.conn.Write(payload); err != nil {
		return errs.Wrap(errs.KindSchemaMismatch, "sapient frame payload write failed", err)
	}
	return nil
}

// Register performs the client side of the registration handshake:
// send local as a Registration message, then wait up to ackTimeout (or
// the session's readTimeout if ackTimeout is zero, per the
// "fail on max(read_timeout)" rule) for the peer's Ack.
func (s *Session) Register(ctx context.Context, local Registration, ackTimeout time.Duration) (Ack, error) {
	if err := s.WriteMessage(ctx, Message{Kind: KindRegistration, Registration: local}); err != nil {
		return Ack{}, err
	}
	if ackTimeout <= 0 {
		ackTimeout = s.readTimeout
	}
	ackCtx := ctx
	var cancel context.CancelFunc
	if ackTimeout > 0 {
		ackCtx, cancel = context.WithTimeout(ctx, ackTimeout)
		defer cancel()
	}
	msg, err := s.ReadMessage(ackCtx)
	if err != nil {
		return Ack{}, err
	}
	if msg.Kind != KindAck {
		return Ack{}, errs.New(errs.KindSchemaMismatch, "expected Ack in reply to Registration")
	}
	s.logger.Debug("sapient registration acknowledged", "ok", msg.Ack.OK)
	return msg.Ack, nil
}

// AwaitRegistration performs the server side of the handshake: wait
// for the peer's Registration, then the caller sends an Ack via
// WriteMessage.
func (s *Session) AwaitRegistration(ctx context.Context) (Registration, error) {
	msg, err := s.ReadMessage(ctx)
	if err != nil {
		return Registration{}, err
	}
	if msg.Kind != KindRegistration {
		return Registration{}, errs.New(errs.KindSchemaMismatch, "expected Registration as first sapient message")
	}
	return msg.Registration, nil
}

// Close closes the underlying connection.
func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) armReadDeadline(ctx context.Context) error {
	deadline := time.Time{}
	if s.readTimeout > 0 {
		deadline = time.Now().Add(s.readTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if deadline.IsZero() {
		return nil
	}
	return s.conn.SetReadDeadline(deadline)
}

func (s *Session) armWriteDeadline(ctx context.Context) error {
	deadline := time.Time{}
	if s.writeTimeout > 0 {
		deadline = time.Now().Add(s.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if deadline.IsZero() {
		return nil
	}
	return s.conn.SetWriteDeadline(deadline)
}

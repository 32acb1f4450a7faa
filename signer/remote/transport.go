package remote

//go:generate mockgen -source=transport.go -destination=mocks/transport.go -package=mocks

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Transport is a single request/response channel to a device. It does not
// multiplex: callers must not issue a request before the previous one returned.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

type TransportOption func(*WebsocketTransport)

func WithTransportLogger(log *zap.Logger) TransportOption {
	return func(t *WebsocketTransport) {
		t.log = log
	}
}

func WithHandshakeTimeout(d time.Duration) TransportOption {
	return func(t *WebsocketTransport) {
		t.dialer.HandshakeTimeout = d
	}
}

// WebsocketTransport carries JSON frames over a websocket.
type WebsocketTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	dialer websocket.Dialer
	log    *zap.Logger
	nextID uint64
	broken error
}

var _ Transport = &WebsocketTransport{}

func Dial(ctx context.Context, url string, opts ...TransportOption) (*WebsocketTransport, error) {
	t := &WebsocketTransport{
		dialer: *websocket.DefaultDialer,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	conn, _, err := t.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrDisconnected, "dial %s: %v", url, err)
	}
	t.conn = conn
	t.log = t.log.With(zap.String("url", url))
	t.log.Debug("device connected")
	return t, nil
}

// RoundTrip sends req and waits for its response until the context deadline.
// Any I/O failure breaks the session for good: a late answer to a timed out
// request would otherwise be read as the answer to the next one.
func (t *WebsocketTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.broken != nil {
		return nil, errors.Wrap(ErrDisconnected, t.broken.Error())
	}

	deadline, _ := ctx.Deadline()
	t.nextID++
	req.ID = t.nextID

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return nil, t.fail(err)
	}
	if err := t.conn.WriteJSON(req); err != nil {
		return nil, t.fail(err)
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, t.fail(err)
	}
	for {
		var resp Response
		if err := t.conn.ReadJSON(&resp); err != nil {
			return nil, t.fail(err)
		}
		if resp.ID != req.ID {
			t.log.Warn("dropping response to another request",
				zap.Uint64("expected", req.ID),
				zap.Uint64("got", resp.ID),
			)
			continue
		}
		return &resp, nil
	}
}

func (t *WebsocketTransport) fail(err error) error {
	t.broken = err
	_ = t.conn.Close()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.log.Warn("device timed out", zap.Error(err))
		return errors.Wrap(ErrTimeout, err.Error())
	}
	t.log.Warn("device disconnected", zap.Error(err))
	return errors.Wrap(ErrDisconnected, err.Error())
}

func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken != nil {
		return nil
	}
	t.broken = net.ErrClosed
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.conn.Close()
}

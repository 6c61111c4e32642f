package wsgate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-duel/pkg/chessdto"
)

// Conn is one accepted websocket. Outbound frames go through a bounded queue
// drained by a single writer, so frames reach the peer in enqueue order.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan chessdto.Outbound

	closeOnce   sync.Once
	done        chan struct{}
	closeCode   websocket.StatusCode
	closeReason string
}

func newConn(id string, ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		id:   id,
		ws:   ws,
		send: make(chan chessdto.Outbound, buffer),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send queue full")
)

// enqueue never blocks. A full queue means the peer stopped reading; the
// connection is failed instead of stalling the sender.
func (c *Conn) enqueue(msg chessdto.Outbound) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.fail(websocket.StatusPolicyViolation, "slow consumer")
		return errSlowConsumer
	}
}

// fail asks the writer to close the socket. Safe to call from any goroutine.
func (c *Conn) fail(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) writeLoop(ctx context.Context, timeout time.Duration, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case <-c.done:
			_ = c.ws.Close(c.closeCode, c.closeReason)
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := wsjson.Write(wctx, c.ws, msg)
			cancel()
			if err != nil {
				log.Debug("ws_write_error", zap.String("conn_id", c.id), zap.String("event", msg.Event), zap.Error(err))
				c.fail(websocket.StatusInternalError, "write failed")
			}
		}
	}
}

func (c *Conn) pingLoop(ctx context.Context, interval, timeout time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, timeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				consecutivePingFailures++
				if consecutivePingFailures >= 2 {
					log.Info("ws_ping_failure", zap.String("conn_id", c.id), zap.Error(err))
					c.fail(websocket.StatusGoingAway, "ping failure")
					return
				}
				continue
			}
			consecutivePingFailures = 0
		}
	}
}

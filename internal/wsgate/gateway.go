package wsgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-duel/pkg/chessdto"
)

// Dispatcher handles decoded frames. Disconnect is called exactly once per
// connection, after its last Dispatch returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, env chessdto.Envelope)
	Disconnect(ctx context.Context, connID string)
}

type Options struct {
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	ReadLimit      int64
	// Message sent with error code "internal" when a handler panics.
	InternalMessage string
	// Message sent with error code "bad_request" for undecodable frames.
	BadRequestMessage string
}

func (o *Options) setDefaults() {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 16 << 10
	}
	if o.InternalMessage == "" {
		o.InternalMessage = "internal error"
	}
	if o.BadRequestMessage == "" {
		o.BadRequestMessage = "malformed request"
	}
}

// Gateway upgrades HTTP requests to websockets and pumps frames between the
// peer and a Dispatcher.
type Gateway struct {
	hub  *Hub
	d    Dispatcher
	opt  Options
	log  *zap.Logger
	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewGateway(hub *Hub, d Dispatcher, opt Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	opt.setDefaults()
	root, stop := context.WithCancel(context.Background())
	return &Gateway{hub: hub, d: d, opt: opt, log: logger, root: root, stop: stop}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.root.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  g.opt.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		g.log.Info("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	ws.SetReadLimit(g.opt.ReadLimit)

	g.wg.Add(1)
	defer g.wg.Done()

	c := newConn(uuid.NewString(), ws, g.opt.SendBuffer)
	g.hub.register(c)
	g.log.Info("ws_accept", zap.String("conn_id", c.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(g.root)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx, g.opt.WriteTimeout, g.log)
	}()
	go c.pingLoop(ctx, g.opt.PingInterval, g.opt.WriteTimeout, g.log)

	g.readLoop(ctx, c)

	g.hub.unregister(c.id)
	g.disconnect(c.id)
	c.fail(websocket.StatusNormalClosure, "")
	<-writerDone
	cancel()
	g.log.Info("ws_close", zap.String("conn_id", c.id), zap.String("reason", c.closeReason))
}

func (g *Gateway) readLoop(ctx context.Context, c *Conn) {
	for {
		typ, raw, err := c.ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) && !c.closed() {
				g.log.Debug("ws_read_error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		var env chessdto.Envelope
		if typ != websocket.MessageText || json.Unmarshal(raw, &env) != nil || env.Event == "" {
			g.hub.Unicast(c.id, chessdto.EventError, chessdto.DomainError{Code: "bad_request", Message: g.opt.BadRequestMessage})
			continue
		}
		g.dispatch(ctx, c.id, env)
	}
}

// dispatch isolates handler panics to the offending frame.
func (g *Gateway) dispatch(ctx context.Context, connID string, env chessdto.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error("ws_dispatch_panic",
				zap.String("conn_id", connID),
				zap.String("event", env.Event),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			g.hub.Unicast(connID, chessdto.EventError, chessdto.DomainError{Code: "internal", Message: g.opt.InternalMessage, Retryable: true})
		}
	}()
	g.d.Dispatch(ctx, connID, env)
}

func (g *Gateway) disconnect(connID string) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error("ws_disconnect_panic", zap.String("conn_id", connID), zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g.d.Disconnect(ctx, connID)
}

// Shutdown stops accepting, closes every connection and waits for their
// handlers to finish.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.stop()
	g.hub.CloseAll("server shutdown")
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

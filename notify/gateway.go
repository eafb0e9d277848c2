package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	maxInboundMessage   = 4 << 10
)

// Recorder receives live connection counts; the metrics package implements it.
type Recorder interface {
	LiveConnections(n int)
}

type noopRecorder struct{}

func (noopRecorder) LiveConnections(int) {}

type GatewayOptions struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	AllowedOrigins []string
}

// Gateway upgrades authenticated requests to websockets, keeps the
// directory in step with connection lifecycle and pushes events.
type Gateway struct {
	dir          *Directory
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	recorder     Recorder
	log          zerolog.Logger

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

func NewGateway(dir *Directory, opts GatewayOptions, log zerolog.Logger) *Gateway {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	g := &Gateway{
		dir:          dir,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		recorder:     noopRecorder{},
		log:          log.With().Str("component", "notify.gateway").Logger(),
		conns:        make(map[*Conn]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return g
}

func (g *Gateway) WithRecorder(r Recorder) *Gateway {
	if r != nil {
		g.recorder = r
	}
	return g
}

func (g *Gateway) Directory() *Directory { return g.dir }

func (g *Gateway) OnConnect(userID string, h Handle) {
	g.dir.Register(userID, h)
	g.recorder.LiveConnections(g.dir.Size())
	g.log.Debug().Str("user_id", userID).Str("handle", h.ID()).Msg("live channel registered")
}

func (g *Gateway) OnDisconnect(h Handle) {
	g.dir.Unregister(h)
	g.recorder.LiveConnections(g.dir.Size())
	g.log.Debug().Str("handle", h.ID()).Msg("live channel unregistered")
}

// PushEvent writes ev to h, bounded by ctx.
func (g *Gateway) PushEvent(ctx context.Context, h Handle, ev Event) error {
	if h == nil {
		return ErrNoChannel
	}
	return h.Send(ctx, ev)
}

// Serve upgrades the request and blocks until the peer goes away.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("notify: upgrade: %w", err)
	}

	c := &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: g.writeTimeout,
		done:         make(chan struct{}),
	}
	g.track(c, true)
	g.OnConnect(userID, c)
	defer func() {
		c.close()
		g.OnDisconnect(c)
		g.track(c, false)
	}()

	go c.pingLoop(g.pingInterval)
	c.readLoop(g.pingInterval)
	return nil
}

// CloseAll drops every open connection. http.Server.Shutdown does not touch
// hijacked connections, so the serve loop calls this on shutdown.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	conns := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

func (g *Gateway) track(c *Conn, open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if open {
		g.conns[c] = struct{}{}
		return
	}
	delete(g.conns, c)
}

// Conn is a websocket-backed Handle. Writes are serialized.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(ctx context.Context, ev Event) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: connection closed", ErrDeliveryFailed)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, ctx.Err())
	default:
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if err := c.ws.WriteJSON(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// readLoop discards inbound frames; it only exists to observe pongs and
// the close handshake.
func (c *Conn) readLoop(pingInterval time.Duration) {
	c.ws.SetReadLimit(maxInboundMessage)
	wait := 2 * pingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := c.ws.NextReader(); err != nil {
			return
		}
	}
}

func (c *Conn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

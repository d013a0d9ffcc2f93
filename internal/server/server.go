// Package server wires together the admission queue, worker pool, and
// pollers into a running TCP service, and drives the ordered shutdown
// sequence: time poller, then workers, then active connections, then
// idle connections, then the queue poller, then the listener.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"minesweep-server/internal/auth"
	"minesweep-server/internal/board"
	"minesweep-server/internal/config"
	"minesweep-server/internal/leaderboard"
	"minesweep-server/internal/pollers"
	"minesweep-server/internal/queue"
	"minesweep-server/internal/session"
	"minesweep-server/internal/timer"
	"minesweep-server/internal/wire"
	"minesweep-server/internal/workerpool"
)

// Logger is the minimal structured-logging surface every component needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Server owns every long-lived subsystem of the running service.
type Server struct {
	cfg  config.Config
	log  Logger
	addr string

	auth        *auth.Store
	leaderboard *leaderboard.Board
	queue       *queue.Queue
	timers      *timer.Registry
	pool        *workerpool.Pool
	queuePoller *pollers.QueuePoller
	timePoller  *pollers.TimePoller

	// acceptPause is the delay after every accept; a test can shorten it
	// to keep loopback tests fast.
	acceptPause time.Duration

	mu         sync.Mutex
	listenAddr net.Addr
}

// SetAcceptPause overrides the post-accept delay; tests use this to avoid
// spending a full second per connection.
func (s *Server) SetAcceptPause(d time.Duration) { s.acceptPause = d }

// Addr returns the bound listener address, or nil before Run has bound it.
// Tests that bind an ephemeral port (":0") use this to dial back in.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// New builds a Server from cfg, loading credentials from cfg.AuthFile.
func New(cfg config.Config, log Logger) (*Server, error) {
	store, err := auth.Load(cfg.AuthFile)
	if err != nil {
		return nil, fmt.Errorf("server: loading credentials: %w", err)
	}

	seedMode := board.SeedRandom
	if cfg.MineSeedMode == "fixed" {
		seedMode = board.SeedFixed
	}

	s := &Server{
		cfg:         cfg,
		log:         log,
		addr:        "0.0.0.0:" + cfg.ListenPort,
		auth:        store,
		leaderboard: leaderboard.NewWithPageSize(cfg.LeaderboardPageSize),
		queue:       queue.New(cfg.QueueBuffers),
		timers:      timer.NewRegistry(cfg.NumWorkers),
		acceptPause: time.Second,
	}

	deps := session.Deps{
		Auth:        s.auth,
		Leaderboard: s.leaderboard,
		Placement:   board.NewPlacementSource(seedMode, cfg.MineSeed),
		Log:         log,
	}
	s.pool = workerpool.New(cfg.NumWorkers, s.queue, deps, s.timers, log)
	s.queuePoller = pollers.NewQueuePoller(s.queue, time.Duration(cfg.QueuePollIntervalMs)*time.Millisecond, log)
	s.timePoller = pollers.NewTimePoller(s.timers, s.pool.WorkerViews(), cfg.TimePollerHz, log)

	return s, nil
}

// Run binds the listener and blocks until ctx is cancelled, then shuts
// every subsystem down in the documented order.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr()
	s.mu.Unlock()
	s.log.Printf("listener: bound %s", ln.Addr())

	timeCtx, cancelTime := context.WithCancel(context.Background())
	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	listenCtx, cancelListen := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); s.timePoller.Run(timeCtx) }()
	go func() { defer wg.Done(); s.pool.Run(workersCtx) }()
	go func() { defer wg.Done(); s.queuePoller.Run(queueCtx) }()
	go func() { defer wg.Done(); s.acceptLoop(listenCtx, ln) }()

	<-ctx.Done()
	s.log.Printf("server: shutdown initiated")

	cancelTime()
	cancelWorkers()
	s.closeActiveConnections()
	s.closeIdleConnections()
	cancelQueue()
	cancelListen()
	ln.Close()

	wg.Wait()
	s.log.Printf("server: shutdown complete")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Printf("listener: accept failed: %v", err)
			continue
		}
		fc := newFrameConn(conn)
		if s.queue.Push(fc) {
			s.log.Printf("admission: accepted %s", conn.RemoteAddr())
		} else {
			s.log.Printf("admission: queue full, dropping %s", conn.RemoteAddr())
			full := wire.EncodeFull()
			fc.Send(full.Bytes())
			fc.Close()
		}
		time.Sleep(s.acceptPause)
	}
}

// closeActiveConnections force-closes every connection currently attached
// to a worker, unblocking any in-flight Recv so workers can observe their
// cancelled context and return.
func (s *Server) closeActiveConnections() {
	for _, w := range s.pool.Workers() {
		if c := w.Conn(); c != nil {
			c.Close()
		}
	}
}

// closeIdleConnections closes every connection still waiting in the
// admission queue.
func (s *Server) closeIdleConnections() {
	s.queue.ForEach(func(i, j int, c queue.Conn) bool {
		c.Close()
		return true
	})
}

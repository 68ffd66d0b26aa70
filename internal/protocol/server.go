package protocol

import (
	"context"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/invariant"
	"github.com/octoreflex/octoreflex/internal/observability"
)

// watchdogInterval is how often the parent-liveness watchdog polls
// (system spec §5 "a watchdog task, independent per process, detects
// parent death and signals shutdown").
const watchdogInterval = 2 * time.Second

// Server holds the shared state for every connection accepted on one
// listener: the connection table, version/identity strings handed to
// every handshake, and the parent-liveness watchdog. Mirrors the
// teacher's operator.Server/gossip.Server shape — one shared, mutex-
// guarded table plus per-connection goroutines that never hold the lock
// across blocking I/O.
type Server struct {
	mu    sync.Mutex
	conns map[string]*Conn // keyed by session id, populated on handshake completion

	log     *zap.Logger
	metrics *observability.Metrics
	checker *invariant.Checker

	engineVersion   string
	contractVersion string
	schemaHash      string
	storageVersion  string

	maxConnections int
	active         atomicCounter
}

// ServerConfig bundles the identity strings a Server hands out in every
// HelloAck (system spec §4.H) and its connection-table limit.
type ServerConfig struct {
	EngineVersion   string
	ContractVersion string
	SchemaHash      string
	StorageVersion  string
	MaxConnections  int // 0 means unbounded
}

// NewServer constructs a Server ready to accept connections.
func NewServer(cfg ServerConfig, log *zap.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		conns:           make(map[string]*Conn),
		log:             log,
		metrics:         metrics,
		checker:         invariant.NewChecker(log),
		engineVersion:   cfg.EngineVersion,
		contractVersion: cfg.ContractVersion,
		schemaHash:      cfg.SchemaHash,
		storageVersion:  cfg.StorageVersion,
		maxConnections:  cfg.MaxConnections,
	}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// Each connection runs its read/dispatch loop on its own goroutine,
// recovered from panics so one bad frame cannot take down the listener
// (the teacher's per-connection goroutine isolation, generalized: a
// recovered panic here is the Go analogue of the teacher's "poisoned
// mutex must be recoverable" discipline — the shared table is never left
// locked or corrupted by a panic in one connection's handling).
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	go s.watchdog(ctx, cancel)

	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		if s.maxConnections > 0 && s.active.load() >= int64(s.maxConnections) {
			s.log.Warn("connection rejected: table full", zap.Int("max_connections", s.maxConnections))
			_ = raw.Close()
			continue
		}

		s.active.add(1)
		conn := newConn(raw, s, s.log)
		go s.runConn(ctx, conn)
	}
}

func (s *Server) runConn(ctx context.Context, c *Conn) {
	defer s.active.add(-1)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("connection handler panicked; connection dropped", zap.Any("panic", r))
		}
	}()
	c.Serve(ctx)
}

// watchdog cancels the context Serve hands to the listener and to every
// connection when the parent process exits (observed as a PPID change,
// the standard Unix signal that this process has been reparented —
// system spec §5). It is a best-effort liveness check, not a substitute
// for SIGTERM handling in the bootstrap shell.
func (s *Server) watchdog(ctx context.Context, cancel context.CancelFunc) {
	startPPID := os.Getppid()
	if startPPID <= 1 {
		// Already reparented (or running as PID 1's direct child by
		// design, e.g. in a container) — nothing meaningful to detect.
		return
	}
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if os.Getppid() != startPPID {
				s.log.Warn("parent process changed; shutting down listener and connections",
					zap.Int("original_ppid", startPPID), zap.Int("current_ppid", os.Getppid()))
				cancel()
				return
			}
		}
	}
}

// remember registers a connection under its negotiated session id.
func (s *Server) remember(sessionID string, c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[sessionID] = c
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(len(s.conns)))
	}
}

// forget removes a connection from the table on teardown. Safe to call
// even if the connection never completed its handshake (sessionID will
// simply not be present).
func (s *Server) forget(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID := c.state.SessionID()
	if sessionID == "" {
		return
	}
	delete(s.conns, sessionID)
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(len(s.conns)))
	}
}

// sessionCount returns the number of connections that have completed the
// handshake and are registered under a session id.
func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// atomicCounter is a tiny int64 counter, avoiding an import of
// sync/atomic's typed counters for a single use site.
type atomicCounter struct {
	mu sync.Mutex
	n  int64
}

func (c *atomicCounter) add(delta int64) {
	c.mu.Lock()
	c.n += delta
	c.mu.Unlock()
}

func (c *atomicCounter) load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Package session implements the per-worker protocol state machine: one
// Worker owns one attached client at a time and drives it through
// CON_SENT -> AUTHED -> PLAYING per the login/start/reveal/flag/leaderboard
// message table.
package session

import (
	"context"
	"sync"
	"time"

	"minesweep-server/internal/auth"
	"minesweep-server/internal/board"
	"minesweep-server/internal/leaderboard"
	"minesweep-server/internal/timer"
	"minesweep-server/internal/wire"
)

// Conn is the socket surface a worker drives: read one frame at a time,
// write one frame at a time, and close on teardown.
type Conn interface {
	Recv() ([]byte, error)
	Send(frame []byte) error
	Close() error
}

// State is the worker's position in the protocol state machine.
type State int

const (
	StateConSent State = iota
	StateAuthed
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateAuthed:
		return "AUTHED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "CON_SENT"
	}
}

// Logger is the minimal structured-logging surface a worker needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Deps bundles the shared subsystems a worker needs a handle to — the
// rewrite's answer to the source's global credential/leaderboard/PRNG
// statics, passed explicitly instead of reached for as package state.
type Deps struct {
	Auth        *auth.Store
	Leaderboard *leaderboard.Board
	Placement   *board.PlacementSource
	Log         Logger
}

// Worker drives one client connection at a time through the full protocol
// lifecycle, then is reused by the pool for the next client it pops.
type Worker struct {
	id   int
	deps Deps
	slot *timer.Slot

	state    State
	username string
	authRow  int
	board    *board.Board

	mu   sync.Mutex
	conn Conn // set only while Run is actively serving a connection
}

// NewWorker builds a worker with the given id (used to index into the
// shared timer registry) and its own private board.
func NewWorker(id int, deps Deps, slot *timer.Slot) *Worker {
	return &Worker{
		id:      id,
		deps:    deps,
		slot:    slot,
		authRow: -1,
		board:   board.New(),
	}
}

// ID reports the worker's index into the timer registry.
func (w *Worker) ID() int { return w.id }

// Conn returns the connection currently being served, or nil between
// clients — the time poller uses this to find where to deliver a TIME
// frame for a slot it has just sampled as On.
func (w *Worker) Conn() Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *Worker) setConn(c Conn) {
	w.mu.Lock()
	w.conn = c
	w.mu.Unlock()
}

// Run drives conn through CON, then the message loop, until the connection
// drops, a send fails, or ctx is cancelled. Every exit path releases
// credentials, resets the timer slot, and closes conn — a scoped
// acquisition tied to the call's lifetime rather than an acquisition the
// caller must remember to release.
func (w *Worker) Run(ctx context.Context, conn Conn) {
	w.state = StateConSent
	w.username = ""
	w.authRow = -1
	w.board.Reset()
	w.setConn(conn)

	defer func() {
		w.deps.Auth.Release(w.authRow)
		w.authRow = -1
		w.slot.SetMode(timer.Off)
		w.setConn(nil)
		conn.Close()
	}()

	con := wire.EncodeCon()
	if err := conn.Send(con.Bytes()); err != nil {
		w.deps.Log.Printf("session %d: send CON failed: %v", w.id, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		frame, err := conn.Recv()
		if err != nil {
			w.deps.Log.Printf("session %d: connection ended: %v", w.id, err)
			return
		}
		if !w.dispatch(conn, frame) {
			return
		}
	}
}

// dispatch handles one frame already known to be a full record, returning
// false if the connection must be torn down (a send failure — recv
// failures are handled in Run's caller loop).
func (w *Worker) dispatch(conn Conn, frame []byte) bool {
	tag := wire.Tag(frame)
	switch {
	case tag == wire.TagLogin && w.state == StateConSent:
		return w.handleLogin(conn, frame)
	case tag == wire.TagStart && w.state == StateAuthed:
		return w.handleStart(conn)
	case tag == wire.TagStop && w.state == StatePlaying:
		return w.handleStop()
	case tag == wire.TagRev && w.state == StatePlaying:
		return w.handleReveal(conn, frame)
	case tag == wire.TagFlag && w.state == StatePlaying:
		return w.handleFlag(conn, frame)
	case tag == wire.TagLeadP && (w.state == StateAuthed || w.state == StatePlaying):
		return w.handleLeadP(conn, frame)
	default:
		w.deps.Log.Printf("session %d: unexpected tag %q in state %s", w.id, tag, w.state)
		return true
	}
}

func (w *Worker) handleLogin(conn Conn, frame []byte) bool {
	username, password, ok := wire.DecodeLogin(frame)
	if !ok {
		w.deps.Log.Printf("session %d: malformed LOGIN", w.id)
		return true
	}
	status, row := w.deps.Auth.Check(username, password)
	switch status {
	case auth.StatusSucc:
		w.username = username
		w.authRow = row
		w.state = StateAuthed
		w.deps.Log.Printf("auth: accepted %s", username)
		f := wire.EncodeAcc()
		return w.send(conn, f.Bytes())
	case auth.StatusUsed:
		w.deps.Log.Printf("auth: rejected %s (used)", username)
		f := wire.EncodeUsed()
		return w.send(conn, f.Bytes())
	default:
		w.deps.Log.Printf("auth: rejected %s (fail)", username)
		f := wire.EncodeNop()
		return w.send(conn, f.Bytes())
	}
}

func (w *Worker) handleStart(conn Conn) bool {
	mines := w.deps.Placement.Place()
	w.board.PlaceMines(mines)
	w.deps.Leaderboard.TouchPlay(w.username)
	w.slot.Start()
	w.state = StatePlaying
	f := wire.EncodeGo()
	return w.send(conn, f.Bytes())
}

// handleStop clears the board and timer per the state table; the source
// table names no reply frame for STOP, so none is sent.
func (w *Worker) handleStop() bool {
	w.board.Reset()
	w.slot.SetMode(timer.Off)
	w.state = StateAuthed
	return true
}

func (w *Worker) handleReveal(conn Conn, frame []byte) bool {
	cell, ok := wire.DecodeRev(frame)
	if !ok {
		w.deps.Log.Printf("session %d: malformed REV", w.id)
		return true
	}
	switch w.board.Reveal(int(cell)) {
	case board.RevealHit:
		w.board.Reset()
		w.slot.SetMode(timer.Off)
		f := wire.EncodeMine()
		return w.send(conn, f.Bytes())
	case board.RevealSafe:
		m := w.board.Map()
		f := wire.EncodeAdj(m)
		return w.send(conn, f.Bytes())
	default:
		return true // already revealed or out of range: no-op
	}
}

func (w *Worker) handleFlag(conn Conn, frame []byte) bool {
	cell, ok := wire.DecodeFlag(frame)
	if !ok {
		w.deps.Log.Printf("session %d: malformed FLAG", w.id)
		return true
	}
	res := w.board.ToggleFlag(int(cell))
	if !res.Toggled {
		return true
	}
	if res.Won {
		w.slot.SetMode(timer.RW)
		dt := w.slot.Snapshot()
		sec, nano := uint64(dt/time.Second), uint64(dt%time.Second)
		w.deps.Leaderboard.RecordWin(w.username, sec, nano)
		w.deps.Log.Printf("leaderboard: win recorded user=%s time=%s", w.username, dt)
		w.slot.SetMode(timer.Off)
		w.state = StateAuthed
	}
	f := wire.EncodeLeft(uint8(w.board.MinesLeft()))
	return w.send(conn, f.Bytes())
}

func (w *Worker) handleLeadP(conn Conn, frame []byte) bool {
	page, ok := wire.DecodeLeadP(frame)
	if !ok {
		w.deps.Log.Printf("session %d: malformed LEAD_P", w.id)
		return true
	}
	entries, empty := w.deps.Leaderboard.GetPage(page)
	if empty {
		f := wire.EncodeLeadE()
		return w.send(conn, f.Bytes())
	}
	rows := make([]wire.LeaderboardEntry, len(entries))
	for i, e := range entries {
		rows[i] = wire.LeaderboardEntry{
			Username: e.Username,
			Seconds:  e.BestSec,
			Nanos:    e.BestNano,
			Played:   e.Plays,
			Won:      e.Wins,
		}
	}
	return w.send(conn, wire.EncodeLeadR(rows))
}

func (w *Worker) send(conn Conn, frame []byte) bool {
	if err := conn.Send(frame); err != nil {
		w.deps.Log.Printf("session %d: send failed: %v", w.id, err)
		return false
	}
	return true
}

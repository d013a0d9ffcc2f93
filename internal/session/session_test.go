package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"minesweep-server/internal/auth"
	"minesweep-server/internal/board"
	"minesweep-server/internal/leaderboard"
	"minesweep-server/internal/timer"
	"minesweep-server/internal/wire"
)

type fakeLogger struct{ lines []string }

func (l *fakeLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, format)
}

type scriptedConn struct {
	in     [][]byte
	sent   [][]byte
	closed bool
}

func (c *scriptedConn) Recv() ([]byte, error) {
	if len(c.in) == 0 {
		return nil, errors.New("eof")
	}
	f := c.in[0]
	c.in = c.in[1:]
	return f, nil
}

func (c *scriptedConn) Send(frame []byte) error {
	c.sent = append(c.sent, append([]byte(nil), frame...))
	return nil
}

func (c *scriptedConn) Close() error {
	c.closed = true
	return nil
}

func newTestStore(t *testing.T) *auth.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Authentication.txt")
	content := "username password\nalice secret\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := auth.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestDeps(t *testing.T) Deps {
	return Deps{
		Auth:        newTestStore(t),
		Leaderboard: leaderboard.New(),
		Placement:   board.NewPlacementSource(board.SeedFixed, board.DefaultFixedSeed),
		Log:         &fakeLogger{},
	}
}

func frameTag(f []byte) byte { return f[0] }

func TestLoginFailThenSucc(t *testing.T) {
	deps := newTestDeps(t)
	reg := timer.NewRegistry(1)
	w := NewWorker(0, deps, reg.Get(0))

	bad := wire.EncodeLogin("alice", "wrong")
	good := wire.EncodeLogin("alice", "secret")
	conn := &scriptedConn{in: [][]byte{bad.Bytes(), good.Bytes()}}

	w.Run(context.Background(), conn)

	if len(conn.sent) != 3 { // CON, NOP, ACC
		t.Fatalf("sent %d frames, want 3", len(conn.sent))
	}
	if frameTag(conn.sent[0]) != wire.TagCon {
		t.Fatalf("first frame = %q, want CON", frameTag(conn.sent[0]))
	}
	if frameTag(conn.sent[1]) != wire.TagNop {
		t.Fatalf("second frame = %q, want NOP", frameTag(conn.sent[1]))
	}
	if frameTag(conn.sent[2]) != wire.TagAcc {
		t.Fatalf("third frame = %q, want ACC", frameTag(conn.sent[2]))
	}
	if !conn.closed {
		t.Fatal("expected connection to be closed on EOF")
	}
}

func TestLoginUsedWhileReserved(t *testing.T) {
	deps := newTestDeps(t)
	// Reserve alice's row directly before the worker gets a turn.
	status, _ := deps.Auth.Check("alice", "secret")
	if status != auth.StatusSucc {
		t.Fatalf("setup: expected StatusSucc, got %v", status)
	}

	reg := timer.NewRegistry(1)
	w := NewWorker(0, deps, reg.Get(0))
	login := wire.EncodeLogin("alice", "secret")
	conn := &scriptedConn{in: [][]byte{login.Bytes()}}
	w.Run(context.Background(), conn)

	if frameTag(conn.sent[1]) != wire.TagUsed {
		t.Fatalf("second frame = %q, want USED", frameTag(conn.sent[1]))
	}
}

func TestStartRevealStopSequence(t *testing.T) {
	deps := newTestDeps(t)
	reg := timer.NewRegistry(1)
	w := NewWorker(0, deps, reg.Get(0))

	login := wire.EncodeLogin("alice", "secret")
	start := wire.EncodeStart()
	rev := wire.EncodeRev(0)
	stop := wire.EncodeStop()
	conn := &scriptedConn{in: [][]byte{login.Bytes(), start.Bytes(), rev.Bytes(), stop.Bytes()}}

	w.Run(context.Background(), conn)

	// CON, ACC, GO, (ADJ or MINE), then STOP has no reply.
	if len(conn.sent) != 4 {
		t.Fatalf("sent %d frames, want 4: %v", len(conn.sent), tagList(conn.sent))
	}
	if frameTag(conn.sent[2]) != wire.TagGo {
		t.Fatalf("third frame = %q, want GO", frameTag(conn.sent[2]))
	}
	tag := frameTag(conn.sent[3])
	if tag != wire.TagAdj && tag != wire.TagMine {
		t.Fatalf("fourth frame = %q, want ADJ or MINE", tag)
	}
	if reg.Get(0).Mode() != timer.Off {
		t.Fatalf("timer mode after STOP/MINE = %v, want Off", reg.Get(0).Mode())
	}
}

func TestLeadPOnEmptyBoardReturnsLeadE(t *testing.T) {
	deps := newTestDeps(t)
	reg := timer.NewRegistry(1)
	w := NewWorker(0, deps, reg.Get(0))

	login := wire.EncodeLogin("alice", "secret")
	leadP := wire.EncodeLeadP(0)
	conn := &scriptedConn{in: [][]byte{login.Bytes(), leadP.Bytes()}}
	w.Run(context.Background(), conn)

	last := conn.sent[len(conn.sent)-1]
	if frameTag(last) != wire.TagLeadE {
		t.Fatalf("got %q, want LEAD_E", frameTag(last))
	}
}

func TestCredentialsReleasedOnTeardown(t *testing.T) {
	deps := newTestDeps(t)
	reg := timer.NewRegistry(1)
	w := NewWorker(0, deps, reg.Get(0))

	login := wire.EncodeLogin("alice", "secret")
	conn := &scriptedConn{in: [][]byte{login.Bytes()}}
	w.Run(context.Background(), conn)

	status, _ := deps.Auth.Check("alice", "secret")
	if status != auth.StatusSucc {
		t.Fatalf("expected row to be free again after teardown, got %v", status)
	}
}

func tagList(frames [][]byte) []byte {
	out := make([]byte, len(frames))
	for i, f := range frames {
		out[i] = frameTag(f)
	}
	return out
}

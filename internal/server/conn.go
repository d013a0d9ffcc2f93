package server

import (
	"io"
	"net"
	"sync"

	"minesweep-server/internal/wire"
)

// frameConn adapts a net.Conn to the fixed-length framing every inbound
// message uses: exactly FrameLen bytes per Recv, a full write per Send
// regardless of the frame's size (LEAD_R frames are larger than FrameLen).
//
// Two independent goroutines write to the same socket over a session's
// lifetime — the owning worker (replies) and the time poller (unsolicited
// TIME frames) — so Send serializes them under wmu. Recv has exactly one
// caller (the owning worker) and needs no lock of its own.
type frameConn struct {
	net.Conn
	wmu sync.Mutex
}

func newFrameConn(c net.Conn) *frameConn { return &frameConn{Conn: c} }

// Recv reads exactly one FrameLen-byte record. Every message a client
// sends (LOGIN, START, STOP, REV, FLAG, LEAD_P) fits in FrameLen; only
// server->client LEAD_R replies exceed it.
func (c *frameConn) Recv() ([]byte, error) {
	buf := make([]byte, wire.FrameLen)
	if _, err := io.ReadFull(c.Conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Send writes frame in full, whatever its length.
func (c *frameConn) Send(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.Conn.Write(frame)
	return err
}

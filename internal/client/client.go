// Package client implements the protocol-driving half of the minesweeper
// CLI client: connection retry, frame demultiplexing, and request/reply
// matching. Rendering and terminal handling are out of scope — callers get
// raw decoded frames back.
package client

import (
	"fmt"
	"io"
	"net"
	"time"

	"minesweep-server/internal/wire"
)

// NumConnectRetries is the number of dial attempts before giving up.
const NumConnectRetries = 64

// Dial connects to addr, retrying once per second up to NumConnectRetries
// times.
func Dial(addr string) (net.Conn, error) {
	var lastErr error
	for i := 0; i < NumConnectRetries; i++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("client: server did not respond: %w", lastErr)
}

// Client drives the wire protocol over one connection. A reader goroutine
// demultiplexes unsolicited QUEUE/TIME frames onto Events while everything
// else is treated as the reply to whatever was last sent.
type Client struct {
	conn    net.Conn
	replies chan []byte
	events  chan []byte
	errs    chan error
}

// New starts the reader goroutine and returns a ready Client.
func New(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		replies: make(chan []byte, 1),
		events:  make(chan []byte, 32),
		errs:    make(chan error, 1),
	}
	go c.readLoop()
	return c
}

// Events delivers unsolicited QUEUE/TIME frames as they arrive.
func (c *Client) Events() <-chan []byte { return c.events }

// Errs delivers the terminal read error when the connection drops.
func (c *Client) Errs() <-chan error { return c.errs }

func (c *Client) readLoop() {
	for {
		buf := make([]byte, wire.FrameLen)
		if _, err := io.ReadFull(c.conn, buf); err != nil {
			c.errs <- err
			close(c.events)
			return
		}
		if wire.Tag(buf) == wire.TagLeadR {
			extra := make([]byte, wire.LeadRFrameLen-wire.FrameLen)
			if _, err := io.ReadFull(c.conn, extra); err != nil {
				c.errs <- err
				close(c.events)
				return
			}
			buf = append(buf, extra...)
		}
		switch wire.Tag(buf) {
		case wire.TagQueue, wire.TagTime:
			select {
			case c.events <- buf:
			default: // a slow consumer drops stale position/time updates
			}
		default:
			c.replies <- buf
		}
	}
}

// Recv waits for the next synchronous (non-QUEUE/TIME) frame without
// sending anything first — used once, for the initial CON frame.
func (c *Client) Recv() ([]byte, error) {
	select {
	case reply, ok := <-c.replies:
		if !ok {
			return nil, io.ErrClosedPipe
		}
		return reply, nil
	case err := <-c.errs:
		return nil, err
	}
}

// Send writes frame and waits for the next synchronous reply.
func (c *Client) Send(frame []byte) ([]byte, error) {
	if err := c.SendOnly(frame); err != nil {
		return nil, err
	}
	return c.Recv()
}

// SendOnly writes frame without waiting for a reply — STOP has none.
func (c *Client) SendOnly(frame []byte) error {
	_, err := c.conn.Write(frame)
	return err
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

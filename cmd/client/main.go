// Command client is a line-oriented CLI driver for the minesweeper wire
// protocol: login, start, reveal, flag, stop, leaderboard, quit.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"minesweep-server/internal/client"
	"minesweep-server/internal/wire"
)

func main() {
	port := "12345"
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Fatalf("invalid port argument %q: %v", os.Args[1], err)
		}
		if p < 0 {
			p = -p
		}
		port = strconv.Itoa(p)
	}

	conn, err := client.Dial("127.0.0.1:" + port)
	if err != nil {
		log.Fatal(err)
	}
	c := client.New(conn)
	defer c.Close()

	go watchEvents(c)

	con, err := c.Recv()
	if err != nil {
		log.Fatal(err)
	}
	if wire.Tag(con) != wire.TagCon {
		log.Fatalf("unexpected first frame %q", wire.Tag(con))
	}
	fmt.Println("connected; commands: login <user> <pass>, start, reveal <cell>, flag <cell>, stop, leaderboard <page>, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !runCommand(c, fields) {
			return
		}
	}
}

func watchEvents(c *client.Client) {
	for frame := range c.Events() {
		switch wire.Tag(frame) {
		case wire.TagQueue:
			pos, _ := wire.DecodeQueue(frame)
			fmt.Printf("queue position: %d\n", pos+1)
		case wire.TagTime:
			sec, nano, _ := wire.DecodeTime(frame)
			fmt.Printf("time: %d.%09ds\n", sec, nano)
		}
	}
}

func runCommand(c *client.Client, fields []string) bool {
	switch fields[0] {
	case "quit":
		return false

	case "login":
		if len(fields) != 3 {
			fmt.Println("usage: login <user> <pass>")
			return true
		}
		f := wire.EncodeLogin(fields[1], fields[2])
		reply, err := c.Send(f[:])
		if err != nil {
			fmt.Println("connection lost:", err)
			return false
		}
		switch wire.Tag(reply) {
		case wire.TagAcc:
			fmt.Println("login accepted")
		case wire.TagUsed:
			fmt.Println("account already in use")
		default:
			fmt.Println("login rejected")
		}

	case "start":
		f := wire.EncodeStart()
		if _, err := c.Send(f[:]); err != nil {
			fmt.Println("connection lost:", err)
			return false
		}
		fmt.Println("game started")

	case "reveal":
		cell, ok := parseCell(fields)
		if !ok {
			return true
		}
		f := wire.EncodeRev(cell)
		reply, err := c.Send(f[:])
		if err != nil {
			fmt.Println("connection lost:", err)
			return false
		}
		if wire.Tag(reply) == wire.TagMine {
			fmt.Println("boom — mine hit, game reset")
			return true
		}
		if m, ok := wire.DecodeAdj(reply); ok {
			fmt.Println(formatMap(m))
		}

	case "flag":
		cell, ok := parseCell(fields)
		if !ok {
			return true
		}
		f := wire.EncodeFlag(cell)
		reply, err := c.Send(f[:])
		if err != nil {
			fmt.Println("connection lost:", err)
			return false
		}
		if left, ok := wire.DecodeLeft(reply); ok {
			fmt.Printf("mines left: %d\n", left)
		}

	case "stop":
		f := wire.EncodeStop()
		if err := c.SendOnly(f[:]); err != nil {
			fmt.Println("connection lost:", err)
			return false
		}

	case "leaderboard":
		page := 0
		if len(fields) > 1 {
			p, err := strconv.Atoi(fields[1])
			if err == nil {
				page = p
			}
		}
		f := wire.EncodeLeadP(uint16(page))
		reply, err := c.Send(f[:])
		if err != nil {
			fmt.Println("connection lost:", err)
			return false
		}
		if wire.IsLeadE(reply) {
			fmt.Println("no more pages")
			return true
		}
		entries, ok := wire.DecodeLeadR(reply)
		if !ok {
			fmt.Println("malformed leaderboard reply")
			return true
		}
		for i, e := range entries {
			fmt.Printf("%2d. %-26s best=%d.%09ds wins=%d plays=%d\n",
				i+1, e.Username, e.Seconds, e.Nanos, e.Won, e.Played)
		}

	default:
		fmt.Println("unknown command:", fields[0])
	}
	return true
}

func parseCell(fields []string) (uint8, bool) {
	if len(fields) != 2 {
		fmt.Println("usage:", fields[0], "<cell 0-80>")
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 || n > 80 {
		fmt.Println("cell must be 0-80")
		return 0, false
	}
	return uint8(n), true
}

func formatMap(m [wire.NumTiles]byte) string {
	var b strings.Builder
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			v := m[row*9+col]
			switch {
			case v == 9:
				b.WriteByte('.')
			case v == 10:
				b.WriteByte('F')
			default:
				b.WriteByte('0' + v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

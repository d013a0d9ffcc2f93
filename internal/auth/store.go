// Package auth implements the in-memory credential store: a fixed table of
// username/password rows with single-session reservation, loaded once from
// a whitespace-delimited text file.
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Status is the outcome of a credential check.
type Status int

const (
	// StatusFail means no row matched the given username/password pair.
	StatusFail Status = iota
	// StatusSucc means the row matched and was free; it is now reserved.
	StatusSucc
	// StatusUsed means the row matched but is already reserved by another
	// session.
	StatusUsed
)

func (s Status) String() string {
	switch s {
	case StatusSucc:
		return "SUCC"
	case StatusUsed:
		return "USED"
	default:
		return "FAIL"
	}
}

// MaxAccounts is the maximum number of credential rows the store holds.
const MaxAccounts = 64

type row struct {
	username string
	password string
	inUse    bool
}

// Store is a fixed table of credential rows. All mutation of inUse is
// serialized through mu; username/password never change after Load.
type Store struct {
	mu   sync.Mutex
	rows []row
}

// Load reads Authentication.txt-style data: one header line (ignored),
// then one "username<WS>password" pair per line, <WS> being one or more
// spaces or tabs. At most MaxAccounts rows are kept.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auth: opening %s: %w", path, err)
	}
	defer f.Close()

	s := &Store{}
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header line
		}
		if len(s.rows) >= MaxAccounts {
			break
		}
		line := strings.TrimRight(scanner.Text(), "\r\n")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		s.rows = append(s.rows, row{username: fields[0], password: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("auth: reading %s: %w", path, err)
	}
	return s, nil
}

// Check walks the occupied rows for an exact username/password match. A
// match against a free row reserves it (StatusSucc); a match against a
// reserved row reports StatusUsed without changing anything; no match
// reports StatusFail. The returned row index is only meaningful for
// StatusSucc and must be passed to Release on session teardown.
func (s *Store) Check(username, password string) (Status, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		r := &s.rows[i]
		if r.username != username || r.password != password {
			continue
		}
		if r.inUse {
			return StatusUsed, -1
		}
		r.inUse = true
		return StatusSucc, i
	}
	return StatusFail, -1
}

// Release frees a row reserved by a prior StatusSucc Check. It is a no-op
// for an out-of-range index so a session that never authenticated can call
// it unconditionally on teardown.
func (s *Store) Release(rowIdx int) {
	if rowIdx < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rowIdx < len(s.rows) {
		s.rows[rowIdx].inUse = false
	}
}

// Len reports the number of loaded rows, mostly for tests and logging.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Package leaderboard implements the ranked per-user stats table: parallel
// best-time/wins/plays rows kept sorted after every win under a single
// mutex, and paginated from the tail of the sorted order backwards.
package leaderboard

import (
	"strings"
	"sync"
)

// PageSize is how many rows one page addresses (LEADERBOARD_ENTRIES).
const PageSize = 10

// epsilon is the tolerance for treating two best times as tied.
const epsilon = 1e-4

// Entry is one leaderboard row.
type Entry struct {
	Username string
	BestSec  uint64
	BestNano uint64
	Wins     uint32
	Plays    uint32
}

func (e Entry) seconds() float64 {
	return float64(e.BestSec) + float64(e.BestNano)/1e9
}

// Board is the leaderboard's ranked table, protected by a single mutex.
// Rows are created on first TouchPlay and never deleted.
type Board struct {
	mu       sync.Mutex
	rows     []Entry
	pageSize int
}

// New returns an empty leaderboard paginated at the default PageSize.
func New() *Board {
	return &Board{pageSize: PageSize}
}

// NewWithPageSize returns an empty leaderboard paginated at n rows per
// page — the `leaderboard_page_size` config knob flows in here instead of
// the package constant.
func NewWithPageSize(n int) *Board {
	if n <= 0 {
		n = PageSize
	}
	return &Board{pageSize: n}
}

// TouchPlay increments a user's play count, creating a fresh zero-win,
// zero-best row on first sight. Does not reorder the table — wins are
// infrequent, plays are not, so sorting here would be wasted work.
func (b *Board) TouchPlay(username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.rows {
		if b.rows[i].Username == username {
			b.rows[i].Plays++
			return
		}
	}
	b.rows = append(b.rows, Entry{Username: username, Plays: 1})
}

// RecordWin increments a user's win count, replaces their best time if dt
// beats it (or they had none), and re-sorts the whole table. The row must
// already exist (TouchPlay runs at session START, before a win is
// possible).
func (b *Board) RecordWin(username string, sec, nano uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.rows {
		if b.rows[i].Username != username {
			continue
		}
		b.rows[i].Wins++
		if (b.rows[i].BestSec == 0 && b.rows[i].BestNano == 0) || beats(sec, nano, b.rows[i].BestSec, b.rows[i].BestNano) {
			b.rows[i].BestSec = sec
			b.rows[i].BestNano = nano
		}
		break
	}
	shellSort(b.rows)
}

func beats(sec, nano, bestSec, bestNano uint64) bool {
	dt := float64(sec) + float64(nano)/1e9
	best := float64(bestSec) + float64(bestNano)/1e9
	return dt < best
}

// GetPage projects page p (0-based), addressed from the end of the sorted
// table backwards: with a page size of n (PageSize unless set through
// NewWithPageSize), page 0 is rows [count-n, count), page 1 is the n rows
// before that, and so on. Rows with Wins==0 are filtered out
// of the result. empty reports that the page is entirely past the start of
// the table, the signal for a LEAD_E reply.
func (b *Board) GetPage(page uint16) (entries []Entry, empty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.pageSize
	if ps <= 0 {
		ps = PageSize
	}
	count := len(b.rows)
	if count-int(page)*ps <= 0 {
		return nil, true
	}
	end := count - int(page)*ps
	start := count - (int(page)+1)*ps
	if start < 0 {
		start = 0
	}
	for i := start; i < end; i++ {
		if b.rows[i].Wins == 0 {
			continue
		}
		entries = append(entries, b.rows[i])
	}
	return entries, false
}

// less orders rows by best_time asc, wins desc, case-insensitive username
// asc, per the composite key the leaderboard invariant pins down.
func less(a, b Entry) bool {
	ta, tb := a.seconds(), b.seconds()
	if diff := ta - tb; diff > epsilon || diff < -epsilon {
		return ta < tb
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	return strings.ToLower(a.Username) < strings.ToLower(b.Username)
}

// shellSort is the explicit, named sort the design calls for instead of a
// generic library sort — win events are rare, so its O(n^{1.5})-ish cost
// is irrelevant, and the composite key stays visible as code rather than
// hidden behind a comparator passed to sort.Slice.
func shellSort(rows []Entry) {
	n := len(rows)
	for gap := n / 2; gap > 0; gap /= 2 {
		for i := gap; i < n; i++ {
			tmp := rows[i]
			j := i
			for j >= gap && less(tmp, rows[j-gap]) {
				rows[j] = rows[j-gap]
				j -= gap
			}
			rows[j] = tmp
		}
	}
}

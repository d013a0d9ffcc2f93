package board

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mathrand "math/rand"
	"sync"
)

// SeedMode selects how mine layouts are seeded across games.
type SeedMode int

const (
	// SeedRandom draws a fresh, non-deterministic seed for every game.
	SeedRandom SeedMode = iota
	// SeedFixed reseeds with a constant every game, reproducing the same
	// layout every time — useful for tests, and for parity with the
	// original server's DEFAULT_RANDOM_SEED=42 behavior.
	SeedFixed
)

// DefaultFixedSeed is the original server's DEFAULT_RANDOM_SEED.
const DefaultFixedSeed = 42

// PlacementSource draws mine layouts under a single mutex, modelling the
// spec's process-wide "random" lock: mine placement is rare enough (once
// per START) that one shared critical section across all sessions is the
// simplest faithful model, rather than a PRNG per board.
type PlacementSource struct {
	mu   sync.Mutex
	mode SeedMode
	seed int64
}

// NewPlacementSource builds a placement source. For SeedFixed, seed is the
// constant reused every game; for SeedRandom it is ignored.
func NewPlacementSource(mode SeedMode, seed int64) *PlacementSource {
	return &PlacementSource{mode: mode, seed: seed}
}

// Place draws NumMines distinct cell indices in [0, NumTiles). Each call
// reseeds its own *rand.Rand (the original reseeds with srand(42) on every
// START, which is what made every game identical; SeedRandom instead
// reseeds from a fresh crypto-random value each time).
func (p *PlacementSource) Place() [NumMines]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	seed := p.seed
	if p.mode == SeedRandom {
		seed = freshSeed()
	}
	rng := mathrand.New(mathrand.NewSource(seed))

	var mines [NumMines]int
	chosen := make(map[int]bool, NumMines)
	for i := 0; i < NumMines; {
		x := rng.Intn(Cols)
		y := rng.Intn(Rows)
		idx := y*Cols + x
		if chosen[idx] {
			continue
		}
		chosen[idx] = true
		mines[i] = idx
		i++
	}
	return mines
}

func freshSeed() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		var b [8]byte
		_, _ = rand.Read(b[:])
		return int64(binary.BigEndian.Uint64(b[:]))
	}
	return n.Int64()
}

package policy

import (
	"math/rand/v2"
	"sync"
)

// PreviewPokemon is one entry announced during team preview.
type PreviewPokemon struct {
	Side    string
	Details string
	HasItem bool
}

// TeamSelector orders our team at team preview. The returned order lists
// 1-based roster slots; the first teamSize entries are the ones brought.
type TeamSelector interface {
	Order(previews []PreviewPokemon, rosterSize, teamSize int) []int
}

// Shuffle orders the roster at random.
type Shuffle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewShuffle(rng *rand.Rand) *Shuffle {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Shuffle{rng: rng}
}

func (s *Shuffle) Order(_ []PreviewPokemon, rosterSize, _ int) []int {
	order := make([]int, rosterSize)
	for i := range order {
		order[i] = i + 1
	}
	s.mu.Lock()
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	s.mu.Unlock()
	return order
}

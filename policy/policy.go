package policy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"showdown-bot/data"
	"showdown-bot/game"
)

var ErrNoChoices = errors.New("no legal choices")

type ChoiceKind int

const (
	ChoiceMove ChoiceKind = iota
	ChoiceSwitch
)

// Choice is one legal action. Slot is 1-based: the move slot for moves, the
// roster slot in the server's order for switches.
type Choice struct {
	Kind    ChoiceKind
	Slot    int
	MoveID  string
	Target  string
	Name    string
	Mega    bool
	Dynamax bool
	ZMove   bool
}

// String renders the choice in the server's command grammar.
func (c Choice) String() string {
	if c.Kind == ChoiceSwitch {
		return "switch " + strconv.Itoa(c.Slot)
	}
	var sb strings.Builder
	sb.WriteString("move ")
	sb.WriteString(strconv.Itoa(c.Slot))
	switch {
	case c.Mega:
		sb.WriteString(" mega")
	case c.Dynamax:
		sb.WriteString(" dynamax")
	case c.ZMove:
		sb.WriteString(" zmove")
	}
	return sb.String()
}

// Policy picks one of the legal choices for a battle snapshot. Implementations
// must not keep or mutate the snapshot.
type Policy interface {
	Name() string
	Decide(ctx context.Context, state *game.Battle, choices []Choice) (Choice, error)
}

// Dex is the move and species lookup the heuristic policies need.
type Dex interface {
	Move(name string) (data.Move, bool)
	Species(name string) (data.Species, bool)
}

const (
	AlgorithmRandom  = "random"
	AlgorithmGreedy  = "greedy"
	AlgorithmMinimax = "minimax"
)

// New builds the policy named by algorithm.
func New(algorithm string, depth int, dex Dex, rng *rand.Rand) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case AlgorithmRandom:
		return NewRandom(rng), nil
	case AlgorithmGreedy:
		return NewGreedy(dex), nil
	case AlgorithmMinimax, "search":
		return NewSearch(dex, depth), nil
	default:
		return nil, fmt.Errorf("unknown policy %q (supported: %s, %s, %s)", algorithm, AlgorithmMinimax, AlgorithmGreedy, AlgorithmRandom)
	}
}

// Random picks uniformly among the legal choices.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{rng: rng}
}

func (r *Random) Name() string { return AlgorithmRandom }

func (r *Random) Decide(_ context.Context, _ *game.Battle, choices []Choice) (Choice, error) {
	if len(choices) == 0 {
		return Choice{}, ErrNoChoices
	}
	r.mu.Lock()
	i := r.rng.IntN(len(choices))
	r.mu.Unlock()
	return choices[i], nil
}

package policy

import (
	"context"

	"showdown-bot/game"
)

// Greedy takes the move with the highest estimated damage against the
// opposing active Pokemon, and switches out when nothing it has is effective
// but a teammate resists the opponent.
type Greedy struct {
	dex Dex
}

func NewGreedy(dex Dex) *Greedy {
	return &Greedy{dex: dex}
}

func (g *Greedy) Name() string { return AlgorithmGreedy }

func (g *Greedy) Decide(_ context.Context, state *game.Battle, choices []Choice) (Choice, error) {
	if len(choices) == 0 {
		return Choice{}, ErrNoChoices
	}
	me, foe := actives(state)
	if me == nil || foe == nil {
		return choices[0], nil
	}

	bestMove, bestScore, bestEff := -1, -1.0, 0.0
	for i, c := range choices {
		if c.Kind != ChoiceMove {
			continue
		}
		score, eff := g.moveScore(me, foe, c)
		if score > bestScore {
			bestMove, bestScore, bestEff = i, score, eff
		}
	}
	if bestMove >= 0 && bestEff >= 1 {
		return choices[bestMove], nil
	}
	if sw := g.bestSwitch(state.P1, foe, choices); sw >= 0 {
		return choices[sw], nil
	}
	if bestMove >= 0 {
		return choices[bestMove], nil
	}
	return choices[0], nil
}

func (g *Greedy) moveScore(me, foe *game.Pokemon, c Choice) (float64, float64) {
	m, ok := g.dex.Move(c.MoveID)
	if !ok {
		return defaultPower, 1
	}
	power := float64(m.Power)
	if power == 0 {
		// status moves still beat a wasted turn, but lose to any real attack
		return 1, 1
	}
	eff := typeEffectiveness(m.Type, foe.Types)
	score := power * eff * stab(me, m.Type)
	if c.Dynamax || c.ZMove {
		score *= 1.5
	}
	return score, eff
}

// bestSwitch returns the index of the switch choice whose Pokemon takes the
// least from the opponent's types, if that Pokemon resists them.
func (g *Greedy) bestSwitch(side *game.Side, foe *game.Pokemon, choices []Choice) int {
	best, bestScore := -1, 0.0
	for i, c := range choices {
		if c.Kind != ChoiceSwitch {
			continue
		}
		poke, ok := side.Lookup(c.Name)
		if !ok || !poke.Alive() {
			continue
		}
		score := 1.0
		for _, t := range foe.Types {
			score *= typeEffectiveness(t, poke.Types)
		}
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore < 1.0 {
		return best
	}
	return -1
}

const defaultPower = 80

func actives(state *game.Battle) (*game.Pokemon, *game.Pokemon) {
	if state == nil || state.P1 == nil || state.P2 == nil {
		return nil, nil
	}
	return state.P1.Active(), state.P2.Active()
}

func stab(p *game.Pokemon, moveType string) float64 {
	for _, t := range p.Types {
		if t == moveType {
			return 1.5
		}
	}
	return 1
}

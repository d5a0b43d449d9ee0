package policy

import (
	"context"
	"math"

	"showdown-bot/game"
)

// Search runs a depth-limited maximin over our choices against the
// opponent's known (or guessed) moves on a coarse health-fraction model:
// each turn both actives trade estimated damage, and the leaf value is our
// remaining health fraction minus theirs.
type Search struct {
	dex   Dex
	depth int
}

func NewSearch(dex Dex, depth int) *Search {
	if depth < 1 {
		depth = 1
	}
	return &Search{dex: dex, depth: depth}
}

func (s *Search) Name() string { return AlgorithmMinimax }

// damageScale turns power × modifiers into a fraction of the defender's health.
const damageScale = 250.0

type node struct {
	me, foe     *game.Pokemon
	meHP, foeHP float64
}

func (s *Search) Decide(ctx context.Context, state *game.Battle, choices []Choice) (Choice, error) {
	if len(choices) == 0 {
		return Choice{}, ErrNoChoices
	}
	me, foe := actives(state)
	if me == nil || foe == nil {
		return choices[0], nil
	}
	root := node{me: me, foe: foe, meHP: hpFraction(me), foeHP: hpFraction(foe)}

	best, bestValue := 0, math.Inf(-1)
	for i, c := range choices {
		if err := ctx.Err(); err != nil {
			return choices[best], nil
		}
		next := root
		if c.Kind == ChoiceSwitch {
			poke, ok := state.P1.Lookup(c.Name)
			if !ok || !poke.Alive() {
				continue
			}
			next.me, next.meHP = poke, hpFraction(poke)
		}
		v := s.opponentReply(ctx, next, c, s.depth)
		if v > bestValue {
			best, bestValue = i, v
		}
	}
	return choices[best], nil
}

// opponentReply is the minimising half of one turn: our choice c is already
// fixed, the opponent picks the reply that is worst for us.
func (s *Search) opponentReply(ctx context.Context, n node, c Choice, depth int) float64 {
	dealt := 0.0
	if c.Kind == ChoiceMove {
		dealt = s.damage(n.me, n.foe, c.MoveID, c.Dynamax || c.ZMove)
	}
	worst := math.Inf(1)
	for _, reply := range s.foeMoves(n.foe) {
		taken := s.damage(n.foe, n.me, reply, false)
		next := n
		next.foeHP = math.Max(0, n.foeHP-dealt)
		if next.foeHP > 0 {
			next.meHP = math.Max(0, n.meHP-taken)
		}
		v := s.value(ctx, next, depth-1)
		if v < worst {
			worst = v
		}
	}
	return worst
}

func (s *Search) value(ctx context.Context, n node, depth int) float64 {
	if depth <= 0 || n.meHP <= 0 || n.foeHP <= 0 || ctx.Err() != nil {
		return n.meHP - n.foeHP
	}
	best := math.Inf(-1)
	for _, slot := range n.me.MoveSlots {
		if slot.Disabled || slot.PP <= 0 {
			continue
		}
		v := s.opponentReply(ctx, n, Choice{Kind: ChoiceMove, MoveID: slot.ID}, depth)
		if v > best {
			best = v
		}
	}
	if math.IsInf(best, -1) {
		return n.meHP - n.foeHP
	}
	return best
}

// foeMoves returns the opponent's confirmed moves, then its guessed slots,
// and a neutral stand-in when nothing is known.
func (s *Search) foeMoves(foe *game.Pokemon) []string {
	if len(foe.TrueMoves) > 0 {
		return foe.TrueMoves
	}
	moves := make([]string, 0, len(foe.MoveSlots))
	for _, m := range foe.MoveSlots {
		moves = append(moves, m.ID)
	}
	if len(moves) == 0 {
		moves = append(moves, "")
	}
	return moves
}

func (s *Search) damage(attacker, defender *game.Pokemon, moveID string, empowered bool) float64 {
	power, eff, mult := float64(defaultPower), 1.0, 1.0
	if m, ok := s.dex.Move(moveID); ok {
		power = float64(m.Power)
		eff = typeEffectiveness(m.Type, defender.Types)
		mult = stab(attacker, m.Type)
		switch m.Category {
		case "Physical":
			mult *= boostMultiplier(attacker.Boost("atk")) / boostMultiplier(defender.Boost("def"))
		case "Special":
			mult *= boostMultiplier(attacker.Boost("spa")) / boostMultiplier(defender.Boost("spd"))
		}
	}
	if empowered {
		mult *= 1.5
	}
	return math.Min(1, power*eff*mult/damageScale)
}

func boostMultiplier(stage int) float64 {
	stage = max(-6, min(6, stage))
	if stage >= 0 {
		return float64(2+stage) / 2
	}
	return 2 / float64(2-stage)
}

func hpFraction(p *game.Pokemon) float64 {
	if p.MaxHP <= 0 {
		return 0
	}
	return float64(p.HP) / float64(p.MaxHP)
}

package data

import (
	"sort"

	"showdown-bot/game"
)

// Random battle sets are built with these spreads.
const (
	defaultIV = 31
	defaultEV = 85
)

// FallbackMove is the move a placeholder gets when nothing better is known.
const FallbackMove = "tackle"

// GuessSource names where a guessed set came from.
type GuessSource string

const (
	GuessCurated  GuessSource = "curated"
	GuessRandom   GuessSource = "random"
	GuessFallback GuessSource = "fallback"
)

// GuessSet picks moves and an ability for a species nobody has told us about
// yet: the curated set in ranked mode, then the random-battle move pool, then
// the single fallback move.
func (d *Dex) GuessSet(species string, ranked bool) ([]string, string, GuessSource) {
	if ranked {
		if set, ok := d.Set(species); ok && len(set.Moves) > 0 {
			moves := make([]string, len(set.Moves))
			for i, m := range set.Moves {
				moves[i] = ToID(m)
			}
			return moves, set.Ability, GuessCurated
		}
	}
	ability := d.BestAbility(species)
	if s, ok := d.Species(species); ok && len(s.RandomBattleMoves) > 0 {
		return append([]string(nil), s.RandomBattleMoves...), ability, GuessRandom
	}
	return []string{FallbackMove}, ability, GuessFallback
}

// BestAbility returns the highest rated of the species' possible abilities.
func (d *Dex) BestAbility(species string) string {
	s, ok := d.Species(species)
	if !ok || len(s.Abilities) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.Abilities))
	for _, name := range s.Abilities {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := d.rating(names[i]), d.rating(names[j])
		if ri != rj {
			return ri > rj
		}
		return names[i] < names[j]
	})
	return names[0]
}

func (d *Dex) rating(ability string) float64 {
	if a, ok := d.Ability(ability); ok {
		return a.Rating
	}
	return 0
}

// MaxHP computes the HP stat for a species at a level with the default
// random battle spread.
func (d *Dex) MaxHP(species string, level int) int {
	s, ok := d.Species(species)
	if !ok {
		return 100
	}
	base := s.BaseStats["hp"]
	if base == 1 {
		return 1
	}
	return (2*base+defaultIV+defaultEV/4)*level/100 + level + 10
}

// NewMoveSlot builds a move slot with the usual maximum PP: base PP raised by
// 8/5, except for moves that cannot be PP-boosted and Z-moves.
func (d *Dex) NewMoveSlot(name string) game.MoveSlot {
	m, ok := d.Move(name)
	if !ok {
		id := ToID(name)
		return game.MoveSlot{Move: name, ID: id, PP: 1, MaxPP: 1}
	}
	pp := m.PP
	if !m.NoPPBoosts && !m.IsZ {
		pp = m.PP * 8 / 5
	}
	return game.MoveSlot{Move: m.Name, ID: m.ID, PP: pp, MaxPP: pp, Target: m.Target}
}

// NewPokemon materialises a Pokemon for a species with a guessed set.
func (d *Dex) NewPokemon(side, name, species string, level int, ranked bool) (*game.Pokemon, GuessSource) {
	p := game.NewPokemon(side, name, species, level)
	if s, ok := d.Species(species); ok {
		p.Species = s.Name
		p.Types = append([]string(nil), s.Types...)
		for k, v := range s.BaseStats {
			p.BaseStats[k] = v
		}
	}
	moves, ability, src := d.GuessSet(species, ranked)
	p.Ability = ability
	for _, m := range moves {
		p.MoveSlots = append(p.MoveSlots, d.NewMoveSlot(m))
	}
	p.MaxHP = d.MaxHP(species, level)
	p.HP = p.MaxHP
	return p, src
}

// Placeholder returns an anonymous stand-in roster member.
func (d *Dex) Placeholder(side string) *game.Pokemon {
	p := game.NewPokemon(side, "", "", 1)
	p.Placeholder = true
	p.MoveSlots = []game.MoveSlot{d.NewMoveSlot(FallbackMove)}
	p.HP, p.MaxHP = 1, 1
	return p
}

// FormeChange switches a Pokemon to another forme of its species, keeping
// its health and moves.
func (d *Dex) FormeChange(p *game.Pokemon, species string) {
	p.Species = species
	s, ok := d.Species(species)
	if !ok {
		return
	}
	p.Species = s.Name
	p.Types = append([]string(nil), s.Types...)
	for k, v := range s.BaseStats {
		p.BaseStats[k] = v
	}
}

// MegaEvolve applies the one-time mega evolution: forme change plus the
// mega forme's ability.
func (d *Dex) MegaEvolve(p *game.Pokemon, species string) {
	d.FormeChange(p, species)
	if s, ok := d.Species(species); ok {
		if ability, ok := s.Abilities["0"]; ok {
			p.Ability = ability
		}
	}
	p.CanMegaEvo = false
}

// TransformInto copies the target's observable state onto p. Copied moves
// get 5 PP each, as the in-game transformation does.
func (d *Dex) TransformInto(p, target *game.Pokemon) {
	p.SaveIdentity()
	p.Species = target.Species
	p.Types = append([]string(nil), target.Types...)
	p.Ability = target.Ability
	p.Boosts = make(map[string]int, len(target.Boosts))
	for k, v := range target.Boosts {
		p.Boosts[k] = v
	}
	p.BaseStats = make(map[string]int, len(target.BaseStats))
	for k, v := range target.BaseStats {
		p.BaseStats[k] = v
	}
	p.MoveSlots = make([]game.MoveSlot, 0, len(target.MoveSlots))
	for _, m := range target.MoveSlots {
		p.MoveSlots = append(p.MoveSlots, game.MoveSlot{Move: m.Move, ID: m.ID, PP: 5, MaxPP: 5, Target: m.Target})
	}
	p.Transformed = true
}

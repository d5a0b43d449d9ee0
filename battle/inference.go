package battle

import (
	"strings"

	"showdown-bot/data"
	"showdown-bot/game"
	"showdown-bot/parser"
)

// inferMove narrows an opponent's move set from an observed move line.
// Z and Max moves, moves called through another effect and moves used while
// transformed say nothing about the real set. A Z-powered status move is
// logged under its base move and is confirmed like any other.
func (r *Room) inferMove(p *game.Pokemon, line parser.Line) {
	if p.Transformed || line.HasTag("from") {
		return
	}
	name := strings.TrimPrefix(line.Arg(3), "Z-")
	id := data.ToID(name)
	switch id {
	case "", "struggle", "recharge":
		return
	}
	if m, ok := r.deps.Rules.Move(name); ok && (m.IsZ || m.IsMax) {
		return
	}
	if !confirmMove(p, id, func() game.MoveSlot { return r.deps.Rules.NewMoveSlot(name) }) {
		return
	}
	r.log.Infof("determined that %s can use %s", p.Name, id)
	if len(p.TrueMoves) == game.MaxMoves {
		r.log.Infof("collected all of %s's moves", p.Name)
	}
}

// confirmMove adds id to p's confirmed moves unless it is already there or
// all four are known. A provisional slot with the same id is promoted in
// place; otherwise newSlot builds one. Once four moves are confirmed the slot
// list is cut down to exactly those four. It reports whether id was added.
func confirmMove(p *game.Pokemon, id string, newSlot func() game.MoveSlot) bool {
	if p.IsConfirmed(id) || len(p.TrueMoves) >= game.MaxMoves {
		return false
	}
	if i, ok := p.MoveSlot(id); ok {
		p.MoveSlots[i].Used = true
	} else {
		slot := newSlot()
		slot.ID = id
		slot.Used = true
		p.MoveSlots = append(p.MoveSlots, slot)
	}
	p.TrueMoves = append(p.TrueMoves, id)
	if len(p.TrueMoves) == game.MaxMoves {
		pruneMoveSlots(p)
	}
	return true
}

func pruneMoveSlots(p *game.Pokemon) {
	kept := make([]game.MoveSlot, 0, game.MaxMoves)
	seen := make(map[string]bool, game.MaxMoves)
	for _, slot := range p.MoveSlots {
		if p.IsConfirmed(slot.ID) && !seen[slot.ID] {
			seen[slot.ID] = true
			kept = append(kept, slot)
		}
	}
	p.MoveSlots = kept
}

package battle

import (
	"fmt"

	"showdown-bot/game"
	"showdown-bot/parser"
)

// isPlayer reports whether a slot token ("p1", "p2a") is ours. Until the
// first request payload names our slot nothing is ours.
func (r *Room) isPlayer(slot string) bool {
	if r.side == "" || len(slot) < 2 {
		return false
	}
	return slot[:2] == r.side
}

// sideFor maps a server slot onto the local model, where P1 is always us.
func (r *Room) sideFor(slot string) *game.Side {
	if r.isPlayer(slot) {
		return r.state.P1
	}
	return r.state.P2
}

// resolve maps an ident token onto the tracked side and Pokemon.
func (r *Room) resolve(tok string) (*game.Side, *game.Pokemon, error) {
	id, err := parser.ParseIdent(tok)
	if err != nil {
		return nil, nil, malformed(err)
	}
	side := r.sideFor(id.Side)
	p, ok := side.Lookup(id.Name)
	if !ok {
		return side, nil, fmt.Errorf("%s %q: %w", side.ID, id.Name, ErrEntityNotFound)
	}
	return side, p, nil
}

func (r *Room) lookup(tok string) (*game.Pokemon, error) {
	_, p, err := r.resolve(tok)
	return p, err
}

func (r *Room) opponentOf(side *game.Side) *game.Side {
	if side == r.state.P1 {
		return r.state.P2
	}
	return r.state.P1
}

// writeBack stores p on its side and restores the active-first order.
func (r *Room) writeBack(side *game.Side, p *game.Pokemon) {
	if !side.Store(p) {
		r.log.Infof("could not find %s in the battle side, appended it", p.Name)
	}
	side.Reorder()
}

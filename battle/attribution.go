package battle

import (
	"strings"

	"showdown-bot/game"
	"showdown-bot/parser"
)

// moveCache maps move names to the Pokemon that used them within one inbound
// block. Keys keep their first-insertion order.
type moveCache struct {
	order []string
	users map[string]*game.EntityRef
}

func newMoveCache() *moveCache {
	return &moveCache{users: make(map[string]*game.EntityRef)}
}

func (c *moveCache) set(move string, user *game.EntityRef) {
	if _, ok := c.users[move]; !ok {
		c.order = append(c.order, move)
	}
	c.users[move] = user
}

func (c *moveCache) get(move string) (*game.EntityRef, bool) {
	ref, ok := c.users[move]
	return ref, ok
}

// firstMatch returns the user of the earliest cached move that appears in
// any of the given move names.
func (c *moveCache) firstMatch(moves []string) (*game.EntityRef, bool) {
	for _, used := range c.order {
		for _, m := range moves {
			if strings.Contains(m, used) {
				return c.users[used], true
			}
		}
	}
	return nil, false
}

// sourceOf attributes a field or side effect: an explicit [of] tag first, then
// a same-block use of the move with the effect's name, then (for terrain and
// weather) any same-block use of a move known to set it.
func (r *Room) sourceOf(line parser.Line, status string, cache *moveCache, useTables bool) *game.EntityRef {
	if ref := r.sourceFromOf(line); ref != nil {
		return ref
	}
	if ref, ok := cache.get(status); ok {
		return ref
	}
	if useTables {
		if ref, ok := cache.firstMatch(game.SourceMoves(status)); ok {
			return ref
		}
	}
	return nil
}

// sourceFromOf resolves an "[of] p2a: Name" tag, falling back to a name or
// species match over both sides.
func (r *Room) sourceFromOf(line parser.Line) *game.EntityRef {
	tok, ok := line.Tag("of")
	if !ok || r.state == nil {
		return nil
	}
	if p, err := r.lookup(tok); err == nil {
		return p.Ref()
	}
	name := tok
	if i := strings.LastIndex(tok, ": "); i >= 0 {
		name = tok[i+2:]
	}
	var found *game.Pokemon
	for _, side := range []*game.Side{r.state.P1, r.state.P2} {
		for _, p := range side.Pokemon {
			if !p.Placeholder && (p.Name == name || p.Species == name) {
				found = p
			}
		}
	}
	if found == nil {
		return nil
	}
	return found.Ref()
}

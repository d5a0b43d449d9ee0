package game

// Clone returns a deep copy of the battle. Policies and training samples get
// clones so nothing they do can leak back into the tracked state.
func (b *Battle) Clone() *Battle {
	if b == nil {
		return nil
	}
	out := &Battle{
		P1:    b.P1.clone(),
		P2:    b.P2.clone(),
		Turn:  b.Turn,
		Field: b.Field.clone(),
	}
	return out
}

func (s *Side) clone() *Side {
	if s == nil {
		return nil
	}
	out := &Side{
		ID:          s.ID,
		Name:        s.Name,
		DynamaxUsed: s.DynamaxUsed,
		Pokemon:     make([]*Pokemon, len(s.Pokemon)),
		Conditions:  make(map[string]*SideCondition, len(s.Conditions)),
	}
	copied := make(map[*Pokemon]*Pokemon, len(s.Pokemon))
	for i, p := range s.Pokemon {
		c := p.Clone()
		copied[p] = c
		out.Pokemon[i] = c
	}
	for _, p := range s.placeholders {
		if c, ok := copied[p]; ok {
			out.placeholders = append(out.placeholders, c)
		}
	}
	for k, c := range s.Conditions {
		cc := *c
		cc.Source = c.Source.clone()
		out.Conditions[k] = &cc
	}
	return out
}

func (p *Pokemon) Clone() *Pokemon {
	out := *p
	out.Types = append([]string(nil), p.Types...)
	out.MoveSlots = append([]MoveSlot(nil), p.MoveSlots...)
	out.TrueMoves = append([]string(nil), p.TrueMoves...)
	out.Boosts = copyInts(p.Boosts)
	out.BaseStats = copyInts(p.BaseStats)
	out.Stats = copyInts(p.Stats)
	out.Volatiles = make(map[string]*Volatile, len(p.Volatiles))
	for k, v := range p.Volatiles {
		vv := *v
		out.Volatiles[k] = &vv
	}
	if b := p.base; b != nil {
		out.base = &identity{
			species:   b.species,
			types:     append([]string(nil), b.types...),
			ability:   b.ability,
			baseStats: copyInts(b.baseStats),
			moveSlots: append([]MoveSlot(nil), b.moveSlots...),
		}
	}
	return &out
}

func (f Field) clone() Field {
	out := Field{PseudoWeather: make(map[string]*Effect, len(f.PseudoWeather))}
	out.Weather = f.Weather.clone()
	out.Terrain = f.Terrain.clone()
	for k, e := range f.PseudoWeather {
		out.PseudoWeather[k] = e.clone()
	}
	return out
}

func (e *Effect) clone() *Effect {
	if e == nil {
		return nil
	}
	return &Effect{Name: e.Name, Source: e.Source.clone()}
}

func (r *EntityRef) clone() *EntityRef {
	if r == nil {
		return nil
	}
	rr := *r
	return &rr
}

func copyInts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package game

import (
	"slices"
	"sort"
	"strings"
)

// EntityRef names a Pokemon without pointing into a roster, so attributions
// survive snapshot cloning.
type EntityRef struct {
	Side string
	Name string
}

type MoveSlot struct {
	Move     string
	ID       string
	PP       int
	MaxPP    int
	Target   string
	Disabled bool
	Used     bool
}

// Effect is a field effect together with the Pokemon that caused it, if known.
type Effect struct {
	Name   string
	Source *EntityRef
}

type SideCondition struct {
	Name   string
	Source *EntityRef
	Layers int
}

type Volatile struct {
	Name    string
	Counter int
}

type Pokemon struct {
	Side    string
	Name    string
	Species string
	Level   int
	Types   []string

	HP      int
	MaxHP   int
	Fainted bool

	Status         Status
	StatusDuration int

	Boosts    map[string]int
	Volatiles map[string]*Volatile

	MoveSlots []MoveSlot
	// TrueMoves holds move ids observed in use. It only grows and never
	// exceeds MaxMoves.
	TrueMoves []string

	Ability   string
	Item      string
	BaseStats map[string]int
	Stats     map[string]int

	Position    int
	Active      bool
	ActiveTurns int
	LastMove    string

	CanDynamax  bool
	CanMegaEvo  bool
	Transformed bool
	Placeholder bool

	// base is the identity a transformed Pokemon reverts to on leaving the field.
	base *identity
}

type identity struct {
	species   string
	types     []string
	ability   string
	baseStats map[string]int
	moveSlots []MoveSlot
}

// MaxMoves is the number of move slots a Pokemon can carry.
const MaxMoves = 4

func NewPokemon(side, name, species string, level int) *Pokemon {
	return &Pokemon{
		Side:       side,
		Name:       name,
		Species:    species,
		Level:      level,
		Boosts:     make(map[string]int),
		Volatiles:  make(map[string]*Volatile),
		BaseStats:  make(map[string]int),
		Stats:      make(map[string]int),
		CanDynamax: true,
	}
}

func (p *Pokemon) Ref() *EntityRef {
	return &EntityRef{Side: p.Side, Name: p.Name}
}

func (p *Pokemon) Alive() bool {
	return !p.Fainted && p.HP > 0
}

func (p *Pokemon) Boost(stat string) int {
	return p.Boosts[stat]
}

func (p *Pokemon) AddVolatile(name string) {
	if _, ok := p.Volatiles[name]; ok {
		return
	}
	p.Volatiles[name] = &Volatile{Name: name}
}

func (p *Pokemon) RemoveVolatile(name string) {
	delete(p.Volatiles, name)
}

func (p *Pokemon) HasVolatile(name string) bool {
	_, ok := p.Volatiles[name]
	return ok
}

// ClearVolatile drops everything a Pokemon loses when it leaves the field.
func (p *Pokemon) ClearVolatile() {
	p.Boosts = make(map[string]int)
	p.Volatiles = make(map[string]*Volatile)
	p.ActiveTurns = 0
	p.Transformed = false
	if b := p.base; b != nil {
		p.Species = b.species
		p.Types = b.types
		p.Ability = b.ability
		p.BaseStats = b.baseStats
		p.MoveSlots = b.moveSlots
		p.base = nil
	}
}

// SaveIdentity records species, types, ability, base stats and move slots so
// ClearVolatile can undo a transform. A second transform keeps the first
// saved identity.
func (p *Pokemon) SaveIdentity() {
	if p.base != nil {
		return
	}
	p.base = &identity{
		species:   p.Species,
		types:     append([]string(nil), p.Types...),
		ability:   p.Ability,
		baseStats: copyInts(p.BaseStats),
		moveSlots: append([]MoveSlot(nil), p.MoveSlots...),
	}
}

func (p *Pokemon) MoveSlot(id string) (int, bool) {
	for i := range p.MoveSlots {
		if p.MoveSlots[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (p *Pokemon) IsConfirmed(id string) bool {
	for _, m := range p.TrueMoves {
		if m == id {
			return true
		}
	}
	return false
}

type Side struct {
	ID          string
	Name        string
	Pokemon     []*Pokemon
	Conditions  map[string]*SideCondition
	DynamaxUsed bool

	// placeholders is a queue of provisional roster members in their original
	// roster order; the head is replaced first when an unknown Pokemon shows up.
	placeholders []*Pokemon
}

func NewSide(id string, roster []*Pokemon) *Side {
	s := &Side{
		ID:         id,
		Pokemon:    roster,
		Conditions: make(map[string]*SideCondition),
	}
	for i, p := range roster {
		p.Side = id
		p.Position = i
		if p.Placeholder {
			s.placeholders = append(s.placeholders, p)
		}
	}
	if len(roster) > 0 && s.Active() == nil {
		roster[0].Active = true
	}
	return s
}

// Active returns the Pokemon at roster position 0.
func (s *Side) Active() *Pokemon {
	for _, p := range s.Pokemon {
		if p.Active {
			return p
		}
	}
	return nil
}

// Lookup finds a tracked Pokemon by exact name, then by prefix so that names
// with server-appended forme suffixes still resolve.
func (s *Side) Lookup(name string) (*Pokemon, bool) {
	if name == "" {
		return nil, false
	}
	for _, p := range s.Pokemon {
		if !p.Placeholder && p.Name == name {
			return p, true
		}
	}
	for _, p := range s.Pokemon {
		if !p.Placeholder && strings.HasPrefix(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

func (s *Side) PlaceholdersLeft() int {
	return len(s.placeholders)
}

// Store writes p back into the roster. A Pokemon already in the roster (by
// pointer or by name) is replaced in place; otherwise it takes the slot of the
// oldest remaining placeholder. It reports false when p had to be appended
// because no placeholder was left.
func (s *Side) Store(p *Pokemon) bool {
	p.Side = s.ID
	for i, cur := range s.Pokemon {
		if cur == p {
			return true
		}
		if !cur.Placeholder && cur.Name == p.Name {
			s.Pokemon[i] = p
			return true
		}
	}
	if s.ClaimPlaceholder(p) {
		return true
	}
	p.Position = len(s.Pokemon)
	s.Pokemon = append(s.Pokemon, p)
	return false
}

// ClaimPlaceholder replaces the head of the placeholder queue with p.
func (s *Side) ClaimPlaceholder(p *Pokemon) bool {
	for len(s.placeholders) > 0 {
		head := s.placeholders[0]
		s.placeholders = s.placeholders[1:]
		for i, cur := range s.Pokemon {
			if cur == head {
				p.Position = head.Position
				if head.Active {
					p.Active = true
				}
				s.Pokemon[i] = p
				return true
			}
		}
	}
	return false
}

// ReplaceAt swaps the roster entry at index i for p, keeping the placeholder
// queue consistent.
func (s *Side) ReplaceAt(i int, p *Pokemon) {
	old := s.Pokemon[i]
	for j, q := range s.placeholders {
		if q == old {
			s.placeholders = append(s.placeholders[:j:j], s.placeholders[j+1:]...)
			break
		}
	}
	p.Side = s.ID
	p.Position = i
	s.Pokemon[i] = p
}

// Truncate drops roster entries from index n on.
func (s *Side) Truncate(n int) {
	if n < 0 || n >= len(s.Pokemon) {
		return
	}
	dropped := s.Pokemon[n:]
	s.Pokemon = s.Pokemon[:n:n]
	kept := s.placeholders[:0]
	for _, q := range s.placeholders {
		if !slices.Contains(dropped, q) {
			kept = append(kept, q)
		}
	}
	s.placeholders = kept
}

// SetActive makes p the only active Pokemon and moves it to position 0.
func (s *Side) SetActive(p *Pokemon) {
	for _, cur := range s.Pokemon {
		cur.Active = cur == p
	}
	s.Reorder()
}

// Reorder keeps the active Pokemon at position 0 and re-indexes positions.
func (s *Side) Reorder() {
	sort.SliceStable(s.Pokemon, func(i, j int) bool {
		return s.Pokemon[i].Active && !s.Pokemon[j].Active
	})
	for i, p := range s.Pokemon {
		p.Position = i
	}
}

func (s *Side) AddCondition(name string, source *EntityRef) *SideCondition {
	if c, ok := s.Conditions[name]; ok {
		c.Layers++
		if source != nil {
			c.Source = source
		}
		return c
	}
	c := &SideCondition{Name: name, Source: source, Layers: 1}
	s.Conditions[name] = c
	return c
}

func (s *Side) RemoveCondition(name string) {
	delete(s.Conditions, name)
}

func (s *Side) AnyAlive() bool {
	for _, p := range s.Pokemon {
		if p.Placeholder || p.Alive() {
			return true
		}
	}
	return false
}

type Field struct {
	Weather       *Effect
	Terrain       *Effect
	PseudoWeather map[string]*Effect
}

func (f *Field) SetWeather(name string, source *EntityRef) {
	f.Weather = &Effect{Name: name, Source: source}
}

func (f *Field) ClearWeather() {
	f.Weather = nil
}

func (f *Field) SetTerrain(name string, source *EntityRef) {
	f.Terrain = &Effect{Name: name, Source: source}
}

func (f *Field) ClearTerrain() {
	f.Terrain = nil
}

func (f *Field) AddPseudoWeather(name string, source *EntityRef) {
	if f.PseudoWeather == nil {
		f.PseudoWeather = make(map[string]*Effect)
	}
	f.PseudoWeather[name] = &Effect{Name: name, Source: source}
}

func (f *Field) RemovePseudoWeather(name string) {
	delete(f.PseudoWeather, name)
}

// Battle is the locally reconstructed battle. P1 is always our side and P2
// the opponent, whatever slot ids the server assigned.
type Battle struct {
	P1    *Side
	P2    *Side
	Field Field
	Turn  int
}

func NewBattle(p1, p2 *Side) *Battle {
	return &Battle{
		P1:    p1,
		P2:    p2,
		Field: Field{PseudoWeather: make(map[string]*Effect)},
	}
}

// Find resolves an attribution reference against the current rosters.
func (b *Battle) Find(ref *EntityRef) (*Pokemon, bool) {
	if ref == nil {
		return nil, false
	}
	for _, s := range []*Side{b.P1, b.P2} {
		if s == nil || s.ID != ref.Side {
			continue
		}
		return s.Lookup(ref.Name)
	}
	return nil, false
}

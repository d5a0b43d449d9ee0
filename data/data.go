package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"showdown-bot/game"
)

type Species struct {
	Name              string            `json:"name"`
	Types             []string          `json:"types"`
	BaseStats         map[string]int    `json:"baseStats"`
	Abilities         map[string]string `json:"abilities"`
	RandomBattleMoves []string          `json:"randomBattleMoves"`
}

type Move struct {
	ID         string `json:"-"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Power      int    `json:"basePower"`
	PP         int    `json:"pp"`
	Category   string `json:"category"`
	Target     string `json:"target"`
	Priority   int    `json:"priority"`
	NoPPBoosts bool   `json:"noPPBoosts"`
	IsZ        bool   `json:"-"`
	IsMax      bool   `json:"-"`
}

// UnmarshalJSON folds isZ/isMax, which the data files carry either as a
// boolean or as the name of the item/species that enables the move.
func (m *Move) UnmarshalJSON(b []byte) error {
	type plain Move
	var raw struct {
		plain
		IsZ   json.RawMessage `json:"isZ"`
		IsMax json.RawMessage `json:"isMax"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Move(raw.plain)
	m.IsZ = truthy(raw.IsZ)
	m.IsMax = truthy(raw.IsMax)
	return nil
}

func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "false", "null", `""`, "0":
		return false
	}
	return true
}

type Ability struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

type Item struct {
	Name string `json:"name"`
}

// Set is a curated competitive set for a species.
type Set struct {
	Moves   []string `json:"moves"`
	Ability string   `json:"ability"`
	Item    string   `json:"item"`
}

// Dex is the read-only species/move/ability/item table the tracker consults.
// It is safe for concurrent use once built.
type Dex struct {
	species   map[string]Species
	moves     map[string]Move
	abilities map[string]Ability
	items     map[string]Item
	sets      map[string]Set
}

// NewDex indexes the given tables by ID.
func NewDex(species []Species, moves []Move, abilities []Ability, items []Item, sets map[string]Set) *Dex {
	d := &Dex{
		species:   make(map[string]Species, len(species)),
		moves:     make(map[string]Move, len(moves)),
		abilities: make(map[string]Ability, len(abilities)),
		items:     make(map[string]Item, len(items)),
		sets:      make(map[string]Set, len(sets)),
	}
	for _, s := range species {
		d.species[ToID(s.Name)] = s
	}
	for _, m := range moves {
		m.ID = ToID(m.Name)
		d.moves[m.ID] = m
	}
	for _, a := range abilities {
		d.abilities[ToID(a.Name)] = a
	}
	for _, it := range items {
		d.items[ToID(it.Name)] = it
	}
	for name, set := range sets {
		d.sets[ToID(name)] = set
	}
	return d
}

// Load reads pokedex.json, moves.json, abilities.json, items.json and the
// optional sets.json from dir, then validates the attribution tables against
// the move table.
func Load(dir string) (*Dex, error) {
	var (
		rawSpecies   map[string]Species
		rawMoves     map[string]Move
		rawAbilities map[string]Ability
		rawItems     map[string]Item
		rawSets      map[string]map[string]Set
	)
	for _, f := range []struct {
		name     string
		target   any
		optional bool
	}{
		{"pokedex.json", &rawSpecies, false},
		{"moves.json", &rawMoves, false},
		{"abilities.json", &rawAbilities, false},
		{"items.json", &rawItems, true},
		{"sets.json", &rawSets, true},
	} {
		if err := loadJSON(filepath.Join(dir, f.name), f.target); err != nil {
			if f.optional && os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f.name, err)
		}
	}

	species := make([]Species, 0, len(rawSpecies))
	for _, s := range rawSpecies {
		species = append(species, s)
	}
	moves := make([]Move, 0, len(rawMoves))
	for _, m := range rawMoves {
		moves = append(moves, m)
	}
	abilities := make([]Ability, 0, len(rawAbilities))
	for _, a := range rawAbilities {
		abilities = append(abilities, a)
	}
	items := make([]Item, 0, len(rawItems))
	for _, it := range rawItems {
		items = append(items, it)
	}
	sets := make(map[string]Set, len(rawSets))
	for name, bySource := range rawSets {
		if set, ok := bySource[curatedSetKey]; ok {
			sets[name] = set
			continue
		}
		for _, set := range bySource {
			sets[name] = set
			break
		}
	}

	d := NewDex(species, moves, abilities, items, sets)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

const curatedSetKey = "Pikalytics Set"

func loadJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(target)
}

// Validate checks that every move named by the terrain and weather
// attribution tables exists in the move table.
func (d *Dex) Validate() error {
	var missing []string
	check := func(names []string) {
		for _, name := range names {
			if _, ok := d.moves[ToID(name)]; !ok {
				missing = append(missing, name)
			}
		}
	}
	for _, names := range game.TerrainMoves {
		check(names)
	}
	for _, names := range game.WeatherMoves {
		check(names)
	}
	if len(missing) > 0 {
		return fmt.Errorf("attribution tables reference %s: %w", strings.Join(missing, ", "), game.ErrUnknownName)
	}
	return nil
}

func (d *Dex) Species(name string) (Species, bool) {
	s, ok := d.species[ToID(name)]
	return s, ok
}

func (d *Dex) Move(name string) (Move, bool) {
	m, ok := d.moves[ToID(name)]
	return m, ok
}

func (d *Dex) Ability(name string) (Ability, bool) {
	a, ok := d.abilities[ToID(name)]
	return a, ok
}

func (d *Dex) Item(name string) (Item, bool) {
	it, ok := d.items[ToID(name)]
	return it, ok
}

func (d *Dex) Set(species string) (Set, bool) {
	s, ok := d.sets[ToID(species)]
	return s, ok
}

// ToID lowercases a display name and strips everything but ASCII letters and
// digits, folding accented letters first ("Flabébé" -> "flabebe").
func ToID(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed marks a line or token that does not have the expected shape.
var ErrMalformed = errors.New("malformed protocol token")

// Line is one protocol line split on '|'. Tokens[0] is the (usually empty)
// text before the first pipe, Tokens[1] the event kind.
type Line struct {
	Raw    string
	Tokens []string
}

func ParseLine(raw string) Line {
	raw = strings.TrimRight(raw, "\r")
	return Line{Raw: raw, Tokens: strings.Split(raw, "|")}
}

// Kind returns the event kind without the minor-action '-' prefix.
func (l Line) Kind() string {
	if len(l.Tokens) < 2 {
		return ""
	}
	return strings.TrimPrefix(l.Tokens[1], "-")
}

// Minor reports whether the kind was sent as a minor action ("-damage").
func (l Line) Minor() bool {
	return len(l.Tokens) > 1 && strings.HasPrefix(l.Tokens[1], "-")
}

// Arg returns token i or "" when the line is too short.
func (l Line) Arg(i int) string {
	if i < 0 || i >= len(l.Tokens) {
		return ""
	}
	return l.Tokens[i]
}

// Tag returns the value of a "[name] value" token, searching after the kind.
func (l Line) Tag(name string) (string, bool) {
	prefix := "[" + name + "]"
	for i := 2; i < len(l.Tokens); i++ {
		tok := l.Tokens[i]
		if strings.HasPrefix(tok, prefix) {
			return strings.TrimSpace(tok[len(prefix):]), true
		}
	}
	return "", false
}

func (l Line) HasTag(name string) bool {
	_, ok := l.Tag(name)
	return ok
}

// SplitBlock splits an inbound frame into its room id (from a leading
// ">room" line, "" for the global room) and its lines.
func SplitBlock(block string) (string, []Line) {
	room := ""
	if strings.HasPrefix(block, ">") {
		end := strings.IndexByte(block, '\n')
		if end < 0 {
			return strings.TrimSpace(block[1:]), nil
		}
		room = strings.TrimSpace(block[1:end])
		block = block[end+1:]
	}
	if block == "" {
		return room, nil
	}
	raw := strings.Split(block, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, ParseLine(r))
	}
	return room, lines
}

// Ident is a parsed "p2a: Snorlax" or "p1: Player" token.
type Ident struct {
	Side string
	Slot string
	Name string
}

func ParseIdent(tok string) (Ident, error) {
	tok = strings.TrimSpace(tok)
	head, name, ok := strings.Cut(tok, ": ")
	if !ok {
		head, name = strings.TrimSuffix(tok, ":"), ""
	}
	if len(head) < 2 || head[0] != 'p' || head[1] < '1' || head[1] > '4' {
		return Ident{}, fmt.Errorf("ident %q: %w", tok, ErrMalformed)
	}
	return Ident{Side: head[:2], Slot: head[2:], Name: name}, nil
}

// Details is a parsed "Pikachu, L50, M, shiny" token.
type Details struct {
	Species string
	Level   int
	Gender  string
	Shiny   bool
}

func ParseDetails(tok string) (Details, error) {
	parts := strings.Split(tok, ",")
	d := Details{Species: strings.TrimSpace(parts[0]), Level: 100}
	if d.Species == "" {
		return d, fmt.Errorf("details %q: %w", tok, ErrMalformed)
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case len(part) > 1 && part[0] == 'L':
			level, err := strconv.Atoi(part[1:])
			if err != nil {
				return d, fmt.Errorf("details %q level: %w", tok, ErrMalformed)
			}
			d.Level = level
		case part == "M" || part == "F":
			d.Gender = part
		case part == "shiny":
			d.Shiny = true
		}
	}
	return d, nil
}

// Condition is a parsed health token such as "45/100", "135/300 par" or
// "0 fnt".
type Condition struct {
	HP      int
	MaxHP   int
	Status  string
	Fainted bool
}

func ParseCondition(tok string) (Condition, error) {
	fields := strings.Fields(strings.TrimSpace(tok))
	if len(fields) == 0 {
		return Condition{}, fmt.Errorf("condition %q: %w", tok, ErrMalformed)
	}
	var c Condition
	hp, maxHP, hasMax := strings.Cut(fields[0], "/")
	n, err := strconv.Atoi(hp)
	if err != nil {
		return c, fmt.Errorf("condition %q: %w", tok, ErrMalformed)
	}
	c.HP = n
	if hasMax {
		m, err := strconv.Atoi(maxHP)
		if err != nil || m <= 0 {
			return c, fmt.Errorf("condition %q: %w", tok, ErrMalformed)
		}
		c.MaxHP = m
	}
	for _, f := range fields[1:] {
		if f == "fnt" {
			c.Fainted = true
			continue
		}
		c.Status = f
	}
	if c.HP == 0 {
		c.Fainted = true
	}
	return c, nil
}

// Scale maps the reported fraction onto a locally known maximum, rounding up
// and clamping to [0, knownMax]. A fainted condition is always 0.
func (c Condition) Scale(knownMax int) int {
	if c.Fainted || c.HP <= 0 || knownMax <= 0 {
		return 0
	}
	if c.MaxHP <= 0 {
		return min(c.HP, knownMax)
	}
	hp := (c.HP*knownMax + c.MaxHP - 1) / c.MaxHP
	return max(0, min(hp, knownMax))
}

// StripEffectPrefix removes the "move: ", "ability: " or "item: " prefix of
// an effect token.
func StripEffectPrefix(tok string) string {
	tok = strings.TrimSpace(tok)
	for _, prefix := range []string{"move:", "ability:", "item:"} {
		if strings.HasPrefix(tok, prefix) {
			return strings.TrimSpace(tok[len(prefix):])
		}
	}
	return tok
}

// EffectKind returns "move", "ability" or "item" for a prefixed effect token.
func EffectKind(tok string) string {
	kind, _, ok := strings.Cut(strings.TrimSpace(tok), ":")
	if !ok {
		return ""
	}
	switch kind {
	case "move", "ability", "item":
		return kind
	}
	return ""
}

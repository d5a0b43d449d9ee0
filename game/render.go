package game

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Summary renders a compact, human readable view of the battle for logs.
func Summary(b *Battle) string {
	if b == nil {
		return "(no battle)"
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("turn %d", b.Turn))
	if b.Field.Weather != nil {
		sb.WriteString(" | weather: " + b.Field.Weather.Name)
	}
	if b.Field.Terrain != nil {
		sb.WriteString(" | terrain: " + b.Field.Terrain.Name)
	}
	if len(b.Field.PseudoWeather) > 0 {
		effects := make([]string, 0, len(b.Field.PseudoWeather))
		for eff := range b.Field.PseudoWeather {
			effects = append(effects, eff)
		}
		sort.Strings(effects)
		sb.WriteString(" | field: " + strings.Join(effects, ", "))
	}

	for _, side := range []*Side{b.P1, b.P2} {
		if side == nil {
			continue
		}
		sb.WriteString("\n" + sideLabel(side) + ": ")
		poke := side.Active()
		if poke == nil {
			sb.WriteString("-")
			continue
		}
		sb.WriteString(fmt.Sprintf("%s [%d/%d]", poke.Name, poke.HP, poke.MaxHP))
		if poke.Fainted {
			sb.WriteString(" (fainted)")
		}
		if poke.Status != StatusNone {
			sb.WriteString(fmt.Sprintf(" [%s]", poke.Status))
		}
		if poke.Ability != "" {
			sb.WriteString(" " + poke.Ability)
		}
		if boosts := renderBoosts(poke.Boosts); boosts != "" {
			sb.WriteString(" boosts: " + boosts)
		}
		if len(poke.MoveSlots) > 0 {
			names := make([]string, 0, len(poke.MoveSlots))
			for _, m := range poke.MoveSlots {
				names = append(names, m.Move)
			}
			sb.WriteString(fmt.Sprintf(" moves(%d/%d seen): %s", len(poke.TrueMoves), MaxMoves, strings.Join(names, ", ")))
		}
		if len(side.Conditions) > 0 {
			conds := make([]string, 0, len(side.Conditions))
			for name, c := range side.Conditions {
				conds = append(conds, fmt.Sprintf("%s x%d", name, c.Layers))
			}
			sort.Strings(conds)
			sb.WriteString(" side: " + strings.Join(conds, ", "))
		}
	}
	return sb.String()
}

func sideLabel(s *Side) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func renderBoosts(boosts map[string]int) string {
	stats := make([]string, 0, len(boosts))
	for stat, val := range boosts {
		if val != 0 {
			stats = append(stats, stat)
		}
	}
	sort.Strings(stats)
	title := cases.Title(language.English)
	out := make([]string, 0, len(stats))
	for _, stat := range stats {
		out = append(out, fmt.Sprintf("%+d %s", boosts[stat], title.String(stat)))
	}
	return strings.Join(out, ", ")
}

package battle

import (
	"strconv"
	"strings"

	"showdown-bot/data"
)

// PackTeam renders a team in the server's packed format, one
// "name|species|item|ability|moves|nature|evs|gender|ivs|shiny|level|happiness"
// entry per member joined by "]". Species is left empty when it equals the
// name, and level when it is 100.
func PackTeam(team []TeamMember) string {
	entries := make([]string, 0, len(team))
	for _, m := range team {
		species := m.Species
		if species == m.Name {
			species = ""
		}
		moves := make([]string, len(m.Moves))
		for i, mv := range m.Moves {
			moves[i] = data.ToID(mv)
		}
		level := ""
		if m.Level != 0 && m.Level != 100 {
			level = strconv.Itoa(m.Level)
		}
		fields := []string{
			m.Name,
			species,
			data.ToID(m.Item),
			data.ToID(m.Ability),
			strings.Join(moves, ","),
			"", "", "", "", "",
			level,
			"",
		}
		entries = append(entries, strings.Join(fields, "|"))
	}
	return strings.Join(entries, "]")
}

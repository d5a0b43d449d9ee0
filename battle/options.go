package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"showdown-bot/data"
	"showdown-bot/game"
	"showdown-bot/policy"
	"showdown-bot/store"
)

// Options is the per-room configuration. It is copied into every room and
// never mutated afterwards.
type Options struct {
	Username string
	Ranked   bool
	Train    bool
	Save     bool
	Message  string
	Team     []TeamMember

	SettleDelay     time.Duration
	LeaveDelay      time.Duration
	BannerDelay     time.Duration
	DecisionTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Save:            true,
		SettleDelay:     5 * time.Second,
		LeaveDelay:      2 * time.Second,
		BannerDelay:     10 * time.Second,
		DecisionTimeout: 20 * time.Second,
	}
}

// Sender writes a command to a room ("" for the global room).
type Sender interface {
	Send(room, msg string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(room, msg string) error

func (f SenderFunc) Send(room, msg string) error { return f(room, msg) }

// Scheduler runs fn after d on the room's own goroutine.
type Scheduler func(d time.Duration, fn func())

// Trainer receives (previous, next, outcome) samples. next is nil for the
// terminal sample; won is nil until the battle is decided.
type Trainer interface {
	Record(ctx context.Context, room string, prev, next *game.Battle, won *bool) error
}

// ResultSink persists finished battles.
type ResultSink interface {
	SaveResult(ctx context.Context, res store.Result) error
}

// Rules is the rules-engine surface the tracker needs: dex lookups for
// placeholder materialisation plus the forme, mega and transform routines.
type Rules interface {
	Move(name string) (data.Move, bool)
	Ability(name string) (data.Ability, bool)
	Item(name string) (data.Item, bool)
	NewPokemon(side, name, species string, level int, ranked bool) (*game.Pokemon, data.GuessSource)
	Placeholder(side string) *game.Pokemon
	NewMoveSlot(name string) game.MoveSlot
	FormeChange(p *game.Pokemon, species string)
	MegaEvolve(p *game.Pokemon, species string)
	TransformInto(p, target *game.Pokemon)
}

// Deps are the collaborators a room talks to.
type Deps struct {
	Rules    Rules
	Policy   policy.Policy
	Teams    policy.TeamSelector
	Sender   Sender
	Sink     ResultSink
	Trainer  Trainer
	Schedule Scheduler
	Log      *logrus.Entry
}

// TeamMember is one entry of a configured team file.
type TeamMember struct {
	Name    string   `json:"name"`
	Species string   `json:"species"`
	Level   int      `json:"level"`
	Moves   []string `json:"moves"`
	Ability string   `json:"ability"`
	Item    string   `json:"item"`
}

// LoadTeam reads a JSON array of team members.
func LoadTeam(path string) ([]TeamMember, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read team: %w", err)
	}
	var team []TeamMember
	if err := json.Unmarshal(raw, &team); err != nil {
		return nil, fmt.Errorf("decode team %s: %w", path, err)
	}
	for i := range team {
		if team[i].Species == "" {
			return nil, fmt.Errorf("team member %d: missing species", i+1)
		}
		if team[i].Name == "" {
			team[i].Name = team[i].Species
		}
		if team[i].Level == 0 {
			team[i].Level = 100
		}
	}
	return team, nil
}

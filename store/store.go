package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"showdown-bot/game"
)

const (
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)

const writeTimeout = 3 * time.Second

// Result is one finished battle.
type Result struct {
	Title     string    `json:"title"`
	ID        string    `json:"id"`
	Win       bool      `json:"win"`
	Date      time.Time `json:"date"`
	Log       string    `json:"log"`
	Tier      string    `json:"tier"`
	Decisions []string  `json:"decisions"`
}

// Sample is one training triple. Next is empty for the terminal sample and
// Won is only set once the outcome is known.
type Sample struct {
	ID        string
	Room      string
	Prev      json.RawMessage
	Next      json.RawMessage
	Won       *bool
	CreatedAt time.Time
}

// Stats summarises the stored results.
type Stats struct {
	Played int
	Won    int
}

type Store interface {
	SaveResult(ctx context.Context, res Result) error
	InsertSample(ctx context.Context, s Sample) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

func normalizeMode(raw string) string {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "", ModeSQLite, "sqlite3":
		return ModeSQLite
	case ModePostgres, "postgresql", "pg":
		return ModePostgres
	case ModeMemory, "mem":
		return ModeMemory
	default:
		return mode
	}
}

// New opens the store selected by mode. For sqlite the dsn is a file path,
// for postgres a connection string; memory ignores it.
func New(mode, dsn string) (Store, string, error) {
	mode = normalizeMode(mode)
	switch mode {
	case ModeSQLite:
		s, err := NewSQLite(dsn)
		return s, mode, err
	case ModePostgres:
		s, err := NewPostgres(dsn)
		return s, mode, err
	case ModeMemory:
		return NewMemory(), mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid STORE_MODE %q (supported: %s, %s, %s)", mode, ModeSQLite, ModePostgres, ModeMemory)
	}
}

// SampleRecorder turns battle snapshots into stored training samples.
type SampleRecorder struct {
	store Store
	now   func() time.Time
}

func NewSampleRecorder(s Store) *SampleRecorder {
	return &SampleRecorder{store: s, now: time.Now}
}

func (r *SampleRecorder) Record(ctx context.Context, room string, prev, next *game.Battle, won *bool) error {
	if prev == nil {
		return fmt.Errorf("record sample: nil previous state")
	}
	prevJSON, err := json.Marshal(prev)
	if err != nil {
		return fmt.Errorf("encode previous state: %w", err)
	}
	var nextJSON json.RawMessage
	if next != nil {
		if nextJSON, err = json.Marshal(next); err != nil {
			return fmt.Errorf("encode next state: %w", err)
		}
	}
	return r.store.InsertSample(ctx, Sample{
		ID:        uuid.NewString(),
		Room:      room,
		Prev:      prevJSON,
		Next:      nextJSON,
		Won:       won,
		CreatedAt: r.now().UTC(),
	})
}

func encodeDecisions(decisions []string) (string, error) {
	if decisions == nil {
		decisions = []string{}
	}
	raw, err := json.Marshal(decisions)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

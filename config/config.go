package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"showdown-bot/battle"
)

// Config is the process configuration, read from the environment after an
// optional .env file.
type Config struct {
	ServerURL string `env:"SHOWDOWN_SERVER_URL" envDefault:"wss://sim.psim.us/showdown/websocket"`
	LoginURL  string `env:"SHOWDOWN_LOGIN_URL"  envDefault:"https://play.pokemonshowdown.com/action.php"`
	Username  string `env:"SHOWDOWN_USERNAME"`
	Password  string `env:"SHOWDOWN_PASSWORD"`

	Format        string   `env:"SHOWDOWN_FORMAT"         envDefault:"gen9randombattle"`
	Ladder        bool     `env:"SHOWDOWN_LADDER"`
	AcceptFormats []string `env:"SHOWDOWN_ACCEPT_FORMATS" envSeparator:","`
	Ranked        bool     `env:"SHOWDOWN_RANKED"`
	TeamFile      string   `env:"SHOWDOWN_TEAM_FILE"`
	Message       string   `env:"SHOWDOWN_MESSAGE"`

	Policy string `env:"BOT_POLICY" envDefault:"minimax"`
	Depth  int    `env:"BOT_DEPTH"  envDefault:"2"`
	Train  bool   `env:"BOT_TRAIN"`
	Save   bool   `env:"BOT_SAVE"   envDefault:"true"`

	StoreMode string `env:"STORE_MODE" envDefault:"sqlite"`
	StoreDSN  string `env:"STORE_DSN"  envDefault:"showdown-bot.db"`
	DataDir   string `env:"DATA_DIR"   envDefault:"data"`

	SettleDelay     time.Duration `env:"BOT_SETTLE_DELAY"     envDefault:"5s"`
	LeaveDelay      time.Duration `env:"BOT_LEAVE_DELAY"      envDefault:"2s"`
	BannerDelay     time.Duration `env:"BOT_BANNER_DELAY"     envDefault:"10s"`
	DecisionTimeout time.Duration `env:"BOT_DECISION_TIMEOUT" envDefault:"20s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads path (when it exists) into the environment and parses Config.
// Variables already set in the environment win over the file.
func Load(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return errors.New("SHOWDOWN_USERNAME is required")
	}
	if c.Depth < 1 {
		return fmt.Errorf("BOT_DEPTH must be positive, got %d", c.Depth)
	}
	if c.DecisionTimeout <= 0 {
		return fmt.Errorf("BOT_DECISION_TIMEOUT must be positive, got %s", c.DecisionTimeout)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Accepts reports whether a challenge in format should be accepted. The
// configured Format is always accepted.
func (c Config) Accepts(format string) bool {
	if strings.EqualFold(format, c.Format) {
		return true
	}
	for _, f := range c.AcceptFormats {
		if strings.EqualFold(strings.TrimSpace(f), format) {
			return true
		}
	}
	return false
}

// Options converts the battle-facing fields. team is the already loaded
// TeamFile, if any.
func (c Config) Options(team []battle.TeamMember) battle.Options {
	opts := battle.DefaultOptions()
	opts.Username = c.Username
	opts.Ranked = c.Ranked
	opts.Train = c.Train
	opts.Save = c.Save
	opts.Message = c.Message
	opts.Team = team
	opts.SettleDelay = c.SettleDelay
	opts.LeaveDelay = c.LeaveDelay
	opts.BannerDelay = c.BannerDelay
	opts.DecisionTimeout = c.DecisionTimeout
	return opts
}

// Level is the parsed LogLevel. Validate has already rejected bad values.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

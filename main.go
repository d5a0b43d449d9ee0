package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"showdown-bot/battle"
	"showdown-bot/client"
	"showdown-bot/config"
	"showdown-bot/data"
	"showdown-bot/policy"
	"showdown-bot/store"
)

const (
	maxReconnects  = 3
	reconnectDelay = 2 * time.Second
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.WithField("session", uuid.NewString())

	cfg, err := config.Load(".env")
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	logger.SetLevel(cfg.Level())

	dex, err := data.Load(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("load dex")
	}

	var team []battle.TeamMember
	packed := ""
	if cfg.TeamFile != "" {
		if team, err = battle.LoadTeam(cfg.TeamFile); err != nil {
			log.WithError(err).Fatal("load team")
		}
		packed = battle.PackTeam(team)
	}

	st, mode, err := store.New(cfg.StoreMode, cfg.StoreDSN)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer st.Close()
	if stats, err := st.Stats(context.Background()); err == nil {
		log.WithFields(logrus.Fields{"store": mode, "played": stats.Played, "won": stats.Won}).Info("store ready")
	}

	pol, err := policy.New(cfg.Policy, cfg.Depth, dex, nil)
	if err != nil {
		log.WithError(err).Fatal("build policy")
	}

	deps := battle.Deps{Rules: dex, Policy: pol, Sink: st, Log: log}
	if cfg.Train {
		deps.Trainer = store.NewSampleRecorder(st)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"user": cfg.Username, "format": cfg.Format, "policy": pol.Name()}).Info("starting")
	for attempt := 0; ; attempt++ {
		err := run(ctx, cfg, cfg.Options(team), deps, packed, log)
		if ctx.Err() != nil {
			log.Info("shutting down")
			return
		}
		if err == nil {
			err = errors.New("connection closed")
		}
		if attempt+1 >= maxReconnects {
			log.WithError(err).Error("giving up")
			return
		}
		log.WithError(err).Warnf("reconnecting (attempt %d)", attempt+2)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// run serves one connection. Rooms do not survive a reconnect; the server
// re-sends |init| for battles still in progress.
func run(ctx context.Context, cfg config.Config, opts battle.Options, deps battle.Deps, packed string, log *logrus.Entry) error {
	c, err := client.Dial(ctx, cfg.ServerURL, log)
	if err != nil {
		return err
	}
	defer c.Close()

	lobby := client.NewLobby(ctx, client.LobbyConfig{
		Username: cfg.Username,
		Format:   cfg.Format,
		Ladder:   cfg.Ladder,
		Accepts:  cfg.Accepts,
		Team:     packed,
	}, c, client.Login{URL: cfg.LoginURL, Username: cfg.Username, Password: cfg.Password}, log)

	deps.Sender = c
	m := battle.NewManager(opts, deps, lobby.Handle)
	defer m.Close()

	return c.Listen(ctx, m.Dispatch)
}

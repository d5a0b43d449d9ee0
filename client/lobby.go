package client

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"showdown-bot/data"
	"showdown-bot/parser"
)

// Sender writes a command to a room ("" for the global room).
type Sender interface {
	Send(room, msg string) error
}

// Authenticator turns a challstr into a login assertion.
type Authenticator interface {
	Assertion(ctx context.Context, challstr string) (string, error)
}

type LobbyConfig struct {
	Username string
	Format   string
	Ladder   bool
	// Accepts decides which challenge formats are accepted.
	Accepts  func(format string) bool
	// Team is the packed team sent with /utm before searching or accepting;
	// empty for formats that generate teams.
	Team     string
}

// Lobby handles the global room: login, challenges and ladder search.
type Lobby struct {
	cfg  LobbyConfig
	send Sender
	auth Authenticator
	log  *logrus.Entry
	ctx  context.Context

	mu        sync.Mutex
	loggedIn  bool
	searching bool
	games     int
}

func NewLobby(ctx context.Context, cfg LobbyConfig, send Sender, auth Authenticator, log *logrus.Entry) *Lobby {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Accepts == nil {
		format := cfg.Format
		cfg.Accepts = func(f string) bool { return strings.EqualFold(f, format) }
	}
	return &Lobby{cfg: cfg, send: send, auth: auth, log: log.WithField("component", "lobby"), ctx: ctx}
}

// LoggedIn reports whether the server has confirmed our name.
func (l *Lobby) LoggedIn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loggedIn
}

// Handle is a battle.GlobalHandler. Login runs on its own goroutine.
func (l *Lobby) Handle(room string, lines []parser.Line) {
	for _, line := range lines {
		switch line.Kind() {
		case "challstr":
			challstr := strings.Join(line.Tokens[2:], "|")
			go l.login(challstr)
		case "updateuser":
			l.updateUser(line)
		case "updatesearch":
			l.updateSearch(line.Arg(2))
		case "updatechallenges":
			l.updateChallenges(line.Arg(2))
		case "nametaken":
			l.log.WithField("reason", line.Arg(3)).Errorf("name %q rejected", line.Arg(2))
		case "popup":
			l.log.WithField("room", room).Warnf("popup: %s", strings.Join(line.Tokens[2:], "|"))
		}
	}
}

func (l *Lobby) login(challstr string) {
	ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
	defer cancel()

	assertion, err := l.auth.Assertion(ctx, challstr)
	if err != nil {
		l.log.WithError(err).Error("login failed")
		return
	}
	if err := l.send.Send("", "/trn "+l.cfg.Username+",0,"+assertion); err != nil {
		l.log.WithError(err).Error("send /trn")
	}
}

// updateUser handles "|updateuser| NAME|NAMED|AVATAR|...".
func (l *Lobby) updateUser(line parser.Line) {
	name := strings.TrimSpace(line.Arg(2))
	if line.Arg(3) != "1" || data.ToID(name) != data.ToID(l.cfg.Username) {
		return
	}
	l.mu.Lock()
	first := !l.loggedIn
	l.loggedIn = true
	l.mu.Unlock()
	if !first {
		return
	}
	l.log.WithField("user", name).Info("logged in")
	if l.cfg.Ladder {
		l.search()
	}
}

type searchState struct {
	Searching []string          `json:"searching"`
	Games     map[string]string `json:"games"`
}

// updateSearch queues for another ladder game once nothing is pending.
func (l *Lobby) updateSearch(payload string) {
	var st searchState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		l.log.WithError(err).Warn("bad updatesearch payload")
		return
	}
	l.mu.Lock()
	l.searching = len(st.Searching) > 0
	l.games = len(st.Games)
	idle := l.loggedIn && !l.searching && l.games == 0
	l.mu.Unlock()
	if idle && l.cfg.Ladder {
		l.search()
	}
}

func (l *Lobby) search() {
	l.mu.Lock()
	l.searching = true
	l.mu.Unlock()
	if l.cfg.Team != "" {
		l.sendGlobal("/utm " + l.cfg.Team)
	}
	l.log.WithField("format", l.cfg.Format).Info("searching for a ladder game")
	l.sendGlobal("/search " + l.cfg.Format)
}

type challenges struct {
	ChallengesFrom map[string]string `json:"challengesFrom"`
}

func (l *Lobby) updateChallenges(payload string) {
	var ch challenges
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		l.log.WithError(err).Warn("bad updatechallenges payload")
		return
	}
	users := make([]string, 0, len(ch.ChallengesFrom))
	for u := range ch.ChallengesFrom {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, user := range users {
		format := ch.ChallengesFrom[user]
		log := l.log.WithFields(logrus.Fields{"from": user, "format": format})
		if !l.cfg.Accepts(format) {
			log.Info("rejecting challenge")
			l.sendGlobal("/reject " + user)
			continue
		}
		log.Info("accepting challenge")
		if l.cfg.Team != "" {
			l.sendGlobal("/utm " + l.cfg.Team)
		}
		l.sendGlobal("/accept " + user)
	}
}

func (l *Lobby) sendGlobal(msg string) {
	if err := l.send.Send("", msg); err != nil {
		l.log.WithError(err).Errorf("send %q", strings.SplitN(msg, " ", 2)[0])
	}
}

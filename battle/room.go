package battle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"showdown-bot/data"
	"showdown-bot/game"
	"showdown-bot/parser"
	"showdown-bot/policy"
	"showdown-bot/store"
)

// Room tracks one battle. It is not safe for concurrent use: every method,
// and every function handed to its scheduler, runs on the room's goroutine.
type Room struct {
	id    string
	opts  Options
	deps  Deps
	log   *logrus.Entry
	dlog  *logrus.Entry
	ready readiness

	title  string
	tier   string
	winner string
	// side is our slot id ("p1" or "p2") as the server knows it.
	side    string
	players map[string]string

	state    *game.Battle
	previous *game.Battle

	previewRequest   *parser.Request
	previewPokes     []policy.PreviewPokemon
	previewSelection []int

	battleLog strings.Builder
	decisions []policy.Choice
	settleGen int

	failed bool
	closed bool
}

func NewRoom(id string, opts Options, deps Deps) *Room {
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Schedule == nil {
		deps.Schedule = func(_ time.Duration, fn func()) { fn() }
	}
	if deps.Teams == nil {
		deps.Teams = policy.NewShuffle(nil)
	}
	log := deps.Log.WithField("room", id)
	r := &Room{
		id:      id,
		opts:    opts,
		deps:    deps,
		log:     log,
		dlog:    log.WithField("component", "decisions"),
		title:   "Untitled",
		players: make(map[string]string),
	}
	r.schedule(opts.BannerDelay, func() {
		if r.opts.Message != "" {
			r.send(r.opts.Message)
		}
		r.send("/timer on")
	})
	return r
}

func (r *Room) ID() string { return r.id }
func (r *Room) Title() string { return r.title }
func (r *Room) Failed() bool { return r.failed }
func (r *Room) Closed() bool { return r.closed }
func (r *Room) State() *game.Battle { return r.state }
func (r *Room) Decisions() []policy.Choice { return append([]policy.Choice(nil), r.decisions...) }
func (r *Room) Log() string { return r.battleLog.String() }

// Receive applies one inbound block. Lines are applied strictly in order.
// An error that is not confined to its line, or a panic, forfeits the battle
// and the room ignores everything after it.
func (r *Room) Receive(lines []parser.Line) {
	if r.failed || r.closed || len(lines) == 0 {
		return
	}
	current := ""
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(current, fmt.Errorf("panic: %v", rec))
		}
	}()

	if r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		raw := make([]string, len(lines))
		for i, l := range lines {
			raw[i] = l.Raw
		}
		r.log.Trace("<< " + strings.Join(raw, "\n"))
	}

	i := 0
	if lines[0].Kind() == "init" {
		i++
	}
	if i < len(lines) && lines[i].Kind() == "title" {
		r.title = strings.TrimPrefix(lines[i].Raw, "|title|")
		r.log.Infof("title for %s is %s", r.id, r.title)
		i++
	}

	cache := newMoveCache()
	r.previewPokes = r.previewPokes[:0]
	for ; i < len(lines); i++ {
		line := lines[i]
		current = line.Raw
		if line.Kind() == "request" {
			if !r.report(line.Raw, r.receiveRequest(strings.TrimPrefix(line.Raw, "|request|"))) || r.failed {
				return
			}
			continue
		}
		r.battleLog.WriteString(line.Raw)
		r.battleLog.WriteByte('\n')
		// a deferred continuation run by this line can fail the room too
		if !r.report(line.Raw, r.dispatch(line, cache)) || r.failed {
			return
		}
	}

	if r.state != nil && r.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		r.log.Debug(game.Summary(r.state))
	}
}

// report logs err and reports whether processing may continue.
func (r *Room) report(raw string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, game.ErrUnknownName):
		r.log.WithError(err).WithField("line", raw).Warn("unknown name, line ignored")
		return true
	case errors.Is(err, ErrEntityNotFound):
		r.log.WithError(err).WithField("line", raw).Error("state inconsistency, mutation skipped")
		return true
	case recoverable(err):
		r.log.WithError(err).WithField("line", raw).Warn("malformed line ignored")
		return true
	default:
		r.fail(raw, err)
		return false
	}
}

func (r *Room) fail(raw string, err error) {
	if r.failed {
		return
	}
	r.failed = true
	r.log.WithError(err).WithField("line", raw).Error("something went wrong in the battle room, forfeiting")
	r.send("/forfeit")
	r.schedule(r.opts.LeaveDelay, r.leave)
}

func (r *Room) leave() {
	if r.closed {
		return
	}
	r.sendGlobal("/leave " + r.id)
	r.closed = true
}

func (r *Room) dispatch(line parser.Line, cache *moveCache) error {
	kind := line.Kind()
	switch kind {
	case "", "init", "title":
		return nil
	case "tier":
		r.tier = line.Arg(2)
	case "player":
		r.recordPlayer(line)
	case "turn":
		if r.state != nil {
			turn, err := strconv.Atoi(line.Arg(2))
			if err != nil {
				return malformed(err)
			}
			r.state.Turn = turn
		}
	case "win":
		r.finish(line.Arg(2))
	case "poke":
		r.previewPokes = append(r.previewPokes, policy.PreviewPokemon{
			Side:    line.Arg(2),
			Details: line.Arg(3),
			HasItem: line.Arg(4) == "item",
		})
	case "teampreview":
		return r.chooseTeam(line.Arg(2))
	case "start":
		if line.Minor() {
			return r.needState(func() error { return r.applyVolatile(line, true) })
		}
		r.startBattle()
	case "end":
		return r.needState(func() error { return r.applyVolatile(line, false) })
	case "switch", "drag":
		return r.needState(func() error { return r.applySwitch(line) })
	case "move":
		return r.needState(func() error {
			user, ok, err := r.applyMove(line)
			if ok {
				cache.set(line.Arg(3), user.Ref())
			}
			return err
		})
	case "faint":
		return r.needState(func() error { return r.applyFaint(line) })
	case "detailschange", "formechange":
		return r.needState(func() error { return r.applyFormeChange(line) })
	case "transform":
		return r.needState(func() error { return r.applyTransform(line) })
	case "damage", "heal", "sethp":
		return r.needState(func() error { return r.applyHealth(line) })
	case "boost", "unboost", "setboost", "restoreboost", "clearnegativeboost", "clearboost":
		return r.needState(func() error { return r.applyBoost(line) })
	case "clearallboost":
		return r.needState(r.clearAllBoosts)
	case "fieldstart", "fieldend":
		return r.needState(func() error { return r.applyField(line, kind == "fieldstart", cache) })
	case "weather":
		return r.needState(func() error { return r.applyWeather(line, cache) })
	case "sidestart", "sideend":
		return r.needState(func() error { return r.applySideCondition(line, kind == "sidestart", cache) })
	case "status", "curestatus":
		return r.needState(func() error { return r.applyStatus(line, kind == "status") })
	case "item", "enditem":
		return r.needState(func() error { return r.applyItem(line, kind == "item") })
	case "ability":
		return r.needState(func() error { return r.applyAbility(line) })
	case "supereffective", "resisted", "crit", "singleturn", "c", "chat", "activate", "fail",
		"immune", "message", "cant", "leave", "miss", "hint", "upkeep", "j", "J", "l", "L", "n",
		"t:", "raw", "html", "uhtml", "gametype", "gen", "rule", "teamsize", "clearpoke", "rated",
		"seed", "inactive", "inactiveoff", "timestamp", "zpower", "zbroken", "center", "notarget",
		"prepare", "mustrecharge", "nothing", "hitcount", "combine", "waiting", "anim", "primal",
		"burst", "mega", "terastallize", "swap", "block", "fieldactivate", "bigerror",
		"error", "deinit", "noinit", "badge", "debug", "done", "tie", "expire":
		// visual only
	default:
		r.log.WithField("kind", kind).Info("could not parse token, this needs to be implemented")
	}
	return nil
}

func (r *Room) needState(fn func() error) error {
	if r.state == nil {
		return ErrNoBattle
	}
	return fn()
}

func (r *Room) recordPlayer(line parser.Line) {
	slot, name := line.Arg(2), line.Arg(3)
	if slot == "" || name == "" {
		return
	}
	r.players[slot] = name
	if r.side == "" && r.opts.Username != "" && data.ToID(name) == data.ToID(r.opts.Username) {
		r.side = slot
	}
	if r.state != nil {
		r.sideFor(slot).Name = name
	}
}

func (r *Room) startBattle() {
	own := r.ownRoster()
	foe := make([]*game.Pokemon, 6)
	for i := range foe {
		foe[i] = r.deps.Rules.Placeholder("p2")
	}
	r.state = game.NewBattle(game.NewSide("p1", own), game.NewSide("p2", foe))
	for slot, name := range r.players {
		r.sideFor(slot).Name = name
	}
	r.previous = nil
	r.log.Info("battle started")
	r.ready.Fire()
}

// ownRoster builds our side: the configured team in team-preview order when
// there is one, anonymous placeholders otherwise.
func (r *Room) ownRoster() []*game.Pokemon {
	if len(r.opts.Team) > 0 && len(r.previewSelection) > 0 {
		var roster []*game.Pokemon
		for _, idx := range r.previewSelection {
			if idx < 1 || idx > len(r.opts.Team) {
				continue
			}
			m := r.opts.Team[idx-1]
			p, _ := r.deps.Rules.NewPokemon("p1", m.Name, m.Species, m.Level, false)
			if len(m.Moves) > 0 {
				p.MoveSlots = p.MoveSlots[:0]
				for _, move := range m.Moves {
					p.MoveSlots = append(p.MoveSlots, r.deps.Rules.NewMoveSlot(move))
				}
			}
			if m.Ability != "" {
				p.Ability = m.Ability
			}
			p.Item = m.Item
			roster = append(roster, p)
		}
		if len(roster) > 0 {
			return roster
		}
	}
	roster := make([]*game.Pokemon, 6)
	for i := range roster {
		roster[i] = r.deps.Rules.Placeholder("p1")
	}
	return roster
}

func (r *Room) finish(winner string) {
	r.winner = winner
	won := data.ToID(winner) == data.ToID(r.opts.Username)
	if won {
		r.log.Infof("%s: I won this game", r.title)
	} else {
		r.log.Infof("%s: I lost this game", r.title)
	}

	if r.opts.Train && r.deps.Trainer != nil && r.previous != nil && r.state != nil {
		if !r.state.P1.AnyAlive() || !r.state.P2.AnyAlive() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.deps.Trainer.Record(ctx, r.id, r.previous, nil, &won); err != nil {
				r.log.WithError(err).Warn("recording terminal sample failed")
			}
			cancel()
		}
	}

	if r.opts.Save && r.deps.Sink != nil {
		r.saveResult(won)
	}

	r.schedule(r.opts.LeaveDelay, r.leave)
}

func (r *Room) saveResult(won bool) {
	decisions := make([]string, len(r.decisions))
	for i, d := range r.decisions {
		decisions[i] = d.String()
	}
	res := store.Result{
		Title:     r.title,
		ID:        r.id,
		Win:       won,
		Date:      time.Now(),
		Log:       r.battleLog.String(),
		Tier:      r.tier,
		Decisions: decisions,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.deps.Sink.SaveResult(ctx, res); err != nil {
		r.log.WithError(err).Error("error saving result to database")
		return
	}
	r.log.Infof("saved result of %s to database", r.title)
}

// Close marks the room as finished; later blocks are ignored.
func (r *Room) Close() { r.closed = true }

func (r *Room) schedule(d time.Duration, fn func()) {
	r.deps.Schedule(d, fn)
}

func (r *Room) send(msg string) {
	r.sendTo(r.id, msg)
}

func (r *Room) sendGlobal(msg string) {
	r.sendTo("", msg)
}

func (r *Room) sendTo(room, msg string) {
	if r.deps.Sender == nil {
		return
	}
	if err := r.deps.Sender.Send(room, msg); err != nil {
		r.log.WithError(err).WithField("msg", msg).Error("send failed")
	}
}

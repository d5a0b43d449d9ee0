package battle

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"showdown-bot/game"
	"showdown-bot/parser"
	"showdown-bot/policy"
)

func (r *Room) receiveRequest(payload string) error {
	req, err := parser.ParseRequest(payload)
	if err != nil {
		return malformed(err)
	}
	if req == nil {
		return nil
	}
	if req.Side != nil && req.Side.ID != "" && r.side == "" {
		r.side = req.Side.ID
		r.log.Infof("%s: my current side is %s", r.title, r.side)
	}
	if req.TeamPreview {
		r.previewRequest = req
		return nil
	}
	// the first request of a battle arrives before |start|
	r.ready.Wait(func() {
		r.report("request", r.handleRequest(req))
	})
	return nil
}

func (r *Room) handleRequest(req *parser.Request) error {
	if req.Side != nil {
		if err := r.updateSide(req); err != nil {
			return err
		}
	}
	if req.Wait {
		return nil
	}
	if len(req.Active) > 0 {
		r.log.Infof("%s: I need to make a move", r.title)
	}
	if req.NeedsSwitch() {
		r.log.Infof("%s: I need to make a switch", r.title)
	}
	if len(req.Active) > 0 || req.NeedsSwitch() {
		r.scheduleDecision(req)
	}
	return nil
}

// updateSide rebuilds our roster from the request's authoritative side data.
// Each entry is replaced in place; boosts, volatiles and the status duration
// of the Pokemon it replaces are kept.
func (r *Room) updateSide(req *parser.Request) error {
	sd := req.Side
	side := r.state.P1
	if sd.Name != "" {
		side.Name = sd.Name
	}
	if len(r.opts.Team) == 0 {
		prev := append([]*game.Pokemon(nil), side.Pokemon...)
		for i, rp := range sd.Pokemon {
			fresh, err := r.templateFrom(rp)
			if err != nil {
				return err
			}
			if old := findByName(prev, fresh.Name); old != nil {
				fresh.Boosts = old.Boosts
				fresh.Volatiles = old.Volatiles
				fresh.ActiveTurns = old.ActiveTurns
				fresh.LastMove = old.LastMove
				fresh.CanDynamax = old.CanDynamax
				if old.Active {
					fresh.StatusDuration = old.StatusDuration
				}
			}
			if side.DynamaxUsed {
				fresh.CanDynamax = false
			}
			if rp.Active && len(req.Active) > 0 {
				fresh.CanMegaEvo = req.Active[0].CanMegaEvo
			}
			if i < len(side.Pokemon) {
				side.ReplaceAt(i, fresh)
			} else {
				side.Store(fresh)
			}
		}
		side.Truncate(len(sd.Pokemon))
	}

	megaUsed := false
	for _, p := range side.Pokemon {
		if strings.Contains(p.Species, "-Mega") {
			megaUsed = true
		}
	}
	if megaUsed {
		for _, p := range side.Pokemon {
			p.CanMegaEvo = false
		}
	}
	side.Reorder()
	return nil
}

func (r *Room) templateFrom(rp parser.RequestPokemon) (*game.Pokemon, error) {
	id, err := parser.ParseIdent(rp.Ident)
	if err != nil {
		return nil, malformed(err)
	}
	details, err := parser.ParseDetails(rp.Details)
	if err != nil {
		return nil, malformed(err)
	}
	cond, err := parser.ParseCondition(rp.Condition)
	if err != nil {
		return nil, malformed(err)
	}

	p, _ := r.deps.Rules.NewPokemon("p1", id.Name, details.Species, details.Level, false)
	p.MoveSlots = p.MoveSlots[:0]
	for _, m := range rp.Moves {
		p.MoveSlots = append(p.MoveSlots, r.deps.Rules.NewMoveSlot(m))
	}
	if a, ok := r.deps.Rules.Ability(rp.BaseAbility); ok {
		p.Ability = a.Name
	} else if rp.BaseAbility != "" {
		p.Ability = rp.BaseAbility
	}
	if it, ok := r.deps.Rules.Item(rp.Item); ok {
		p.Item = it.Name
	} else {
		p.Item = rp.Item
	}
	for stat, v := range rp.Stats {
		p.Stats[stat] = v
	}
	applyCondition(p, cond, true)
	if cond.Status != "" {
		if st, err := game.ParseStatus(cond.Status); err == nil {
			p.Status = st
		}
	}
	p.Active = rp.Active
	return p, nil
}

func findByName(roster []*game.Pokemon, name string) *game.Pokemon {
	for _, p := range roster {
		if !p.Placeholder && p.Name == name {
			return p
		}
	}
	return nil
}

// scheduleDecision arranges for req to be answered after the settle delay.
// A newer request supersedes one that is still waiting.
func (r *Room) scheduleDecision(req *parser.Request) {
	r.settleGen++
	gen := r.settleGen
	r.schedule(r.opts.SettleDelay, func() {
		if gen != r.settleGen || r.failed || r.closed {
			return
		}
		r.report("decision", r.decide(req))
	})
}

func (r *Room) decide(req *parser.Request) error {
	if r.opts.Train && r.deps.Trainer != nil {
		current := r.state.Clone()
		if r.previous != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.deps.Trainer.Record(ctx, r.id, r.previous, current, nil); err != nil {
				r.log.WithError(err).Warn("recording training sample failed")
			}
			cancel()
		}
		r.previous = current
	}

	choices := LegalChoices(req)
	if len(choices) == 0 {
		r.dlog.Warn("no legal choices derived from request, letting the server pick")
		r.send(fmt.Sprintf("/choose default|%d", req.RQID))
		return nil
	}

	var choice policy.Choice
	if len(choices) == 1 {
		choice = choices[0]
	} else {
		choice = r.consult(choices)
	}
	r.decisions = append(r.decisions, choice)
	r.dlog.WithFields(logrus.Fields{"turn": r.state.Turn, "choice": choice.String(), "options": len(choices)}).Info("decision made")
	r.send(fmt.Sprintf("/choose %s|%d", choice, req.RQID))
	return nil
}

// consult asks the policy for a choice on a private snapshot. A policy that
// errors, panics, overruns its deadline or answers with something that is not
// on offer is replaced by the first legal choice.
func (r *Room) consult(choices []policy.Choice) policy.Choice {
	if r.deps.Policy == nil {
		return choices[0]
	}
	ctx := context.Background()
	if r.opts.DecisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.DecisionTimeout)
		defer cancel()
	}

	type answer struct {
		choice policy.Choice
		err    error
	}
	done := make(chan answer, 1)
	snapshot := r.state.Clone()
	offered := slices.Clone(choices)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- answer{err: fmt.Errorf("policy panic: %v", rec)}
			}
		}()
		c, err := r.deps.Policy.Decide(ctx, snapshot, offered)
		done <- answer{choice: c, err: err}
	}()

	log := r.dlog.WithField("policy", r.deps.Policy.Name())
	select {
	case a := <-done:
		if a.err != nil {
			log.WithError(a.err).Warn("policy failed, using first legal choice")
			return choices[0]
		}
		if !slices.Contains(choices, a.choice) {
			log.WithField("choice", a.choice.String()).Warn("policy returned an illegal choice, using first legal choice")
			return choices[0]
		}
		return a.choice
	case <-ctx.Done():
		log.Warn("policy timed out, using first legal choice")
		return choices[0]
	}
}

// LegalChoices lists the actions a request allows. A forced switch only
// offers switches. Otherwise every enabled move is offered, with mega,
// dynamax and z variants where the request permits them, followed by
// switches unless trapped. With every move disabled the only move is
// "move 1".
func LegalChoices(req *parser.Request) []policy.Choice {
	if req == nil {
		return nil
	}
	switches := switchChoices(req.Side)
	if req.NeedsSwitch() || len(req.Active) == 0 {
		return switches
	}

	active := req.Active[0]
	var out []policy.Choice
	for i, m := range active.Moves {
		if m.Disabled {
			continue
		}
		c := policy.Choice{Kind: policy.ChoiceMove, Slot: i + 1, MoveID: m.ID, Target: m.Target}
		out = append(out, c)
		if active.CanMegaEvo {
			v := c
			v.Mega = true
			out = append(out, v)
		}
		if active.CanDynamax {
			v := c
			v.Dynamax = true
			out = append(out, v)
		}
		if active.ZMoveAt(i) {
			v := c
			v.ZMove = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		c := policy.Choice{Kind: policy.ChoiceMove, Slot: 1}
		if len(active.Moves) > 0 {
			c.MoveID = active.Moves[0].ID
		}
		out = append(out, c)
	}
	if !active.Trapped {
		out = append(out, switches...)
	}
	return out
}

func switchChoices(sd *parser.RequestSide) []policy.Choice {
	if sd == nil {
		return nil
	}
	var out []policy.Choice
	for i, p := range sd.Pokemon {
		if p.Active {
			continue
		}
		cond, err := parser.ParseCondition(p.Condition)
		if err != nil || cond.Fainted {
			continue
		}
		name := p.Ident
		if id, err := parser.ParseIdent(p.Ident); err == nil {
			name = id.Name
		}
		out = append(out, policy.Choice{Kind: policy.ChoiceSwitch, Slot: i + 1, Name: name})
	}
	return out
}

// chooseTeam answers a team preview: the selector orders our roster, the
// order is sent with the stored request's id, and the first maxTeamSize
// entries are remembered for building our side at |start|.
func (r *Room) chooseTeam(maxTok string) error {
	teamSize := 6
	if maxTok != "" {
		n, err := strconv.Atoi(maxTok)
		if err != nil {
			return malformed(err)
		}
		teamSize = n
	}
	rosterSize := 6
	rqid := 0
	if req := r.previewRequest; req != nil {
		rqid = req.RQID
		if req.Side != nil && len(req.Side.Pokemon) > 0 {
			rosterSize = len(req.Side.Pokemon)
		}
		if req.MaxTeamSize > 0 && maxTok == "" {
			teamSize = req.MaxTeamSize
		}
	}
	r.log.Info("choosing team order")
	order := r.deps.Teams.Order(slices.Clone(r.previewPokes), rosterSize, teamSize)

	var sb strings.Builder
	for _, idx := range order {
		sb.WriteString(strconv.Itoa(idx))
	}
	r.send(fmt.Sprintf("/team %s|%d", sb.String(), rqid))
	r.previewSelection = order[:min(teamSize, len(order))]
	return nil
}

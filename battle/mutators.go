package battle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"showdown-bot/data"
	"showdown-bot/game"
	"showdown-bot/parser"
)

// applyCondition writes a reported health token onto p. Our own side reports
// absolute values; the opponent's are a fraction rescaled onto the locally
// known maximum.
func applyCondition(p *game.Pokemon, c parser.Condition, absolute bool) {
	p.Fainted = c.Fainted
	switch {
	case c.Fainted:
		p.HP = 0
	case absolute && c.MaxHP > 0:
		p.MaxHP = c.MaxHP
		p.HP = min(c.HP, c.MaxHP)
	default:
		p.HP = c.Scale(p.MaxHP)
	}
}

func (r *Room) applySwitch(line parser.Line) error {
	id, err := parser.ParseIdent(line.Arg(2))
	if err != nil {
		return malformed(err)
	}
	details, err := parser.ParseDetails(line.Arg(3))
	if err != nil {
		return malformed(err)
	}
	cond, err := parser.ParseCondition(line.Arg(4))
	if err != nil {
		return malformed(err)
	}

	side := r.sideFor(id.Side)
	if side == r.state.P1 {
		r.log.Infof("our pokemon has switched: %s", line.Arg(2))
	} else {
		r.log.Infof("opponent's pokemon has switched: %s", line.Arg(2))
	}
	if prev := side.Active(); prev != nil {
		prev.ClearVolatile()
	}

	p, ok := side.Lookup(id.Name)
	if !ok {
		var src data.GuessSource
		p, src = r.deps.Rules.NewPokemon(side.ID, id.Name, details.Species, details.Level, r.opts.Ranked)
		r.log.WithFields(logrus.Fields{"pokemon": id.Name, "species": details.Species, "set": src}).
			Info("first sighting, materialised from guessed set")
	}

	applyCondition(p, cond, side == r.state.P1)
	p.Status = game.StatusNone
	if cond.Status != "" {
		if st, err := game.ParseStatus(cond.Status); err == nil {
			p.Status = st
		}
	}
	if side.DynamaxUsed {
		p.CanDynamax = false
	}

	r.writeBack(side, p)
	side.SetActive(p)
	return nil
}

// applyMove advances the user's per-turn counters and, for the opponent,
// feeds move inference. ok is false when the user could not be resolved, in
// which case nothing may be cached for the line.
func (r *Room) applyMove(line parser.Line) (*game.Pokemon, bool, error) {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return nil, false, err
	}
	name := line.Arg(3)
	if name == "" {
		return nil, false, fmt.Errorf("%w: move without a name", ErrMalformedLine)
	}

	p.LastMove = data.ToID(name)
	if stall, ok := p.Volatiles["stall"]; ok {
		stall.Counter++
	}
	if p.Status != game.StatusNone {
		p.StatusDuration++
	}
	p.ActiveTurns++

	if side != r.state.P1 {
		r.inferMove(p, line)
	}
	r.writeBack(side, p)
	return p, true, nil
}

func (r *Room) applyFaint(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	p.HP = 0
	p.Fainted = true
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyHealth(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	cond, err := parser.ParseCondition(line.Arg(3))
	if err != nil {
		return malformed(err)
	}
	applyCondition(p, cond, side == r.state.P1)
	r.revealFrom(line, p)
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyBoost(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	switch kind := line.Kind(); kind {
	case "restoreboost", "clearnegativeboost":
		for stat, v := range p.Boosts {
			if v < 0 {
				delete(p.Boosts, stat)
			}
		}
	case "clearboost":
		p.Boosts = make(map[string]int)
	default:
		stat := line.Arg(3)
		n, err := strconv.Atoi(line.Arg(4))
		if stat == "" || err != nil {
			return fmt.Errorf("%w: %s %q %q", ErrMalformedLine, kind, stat, line.Arg(4))
		}
		switch kind {
		case "boost":
			p.Boosts[stat] += n
		case "unboost":
			p.Boosts[stat] -= n
		case "setboost":
			p.Boosts[stat] = n
		}
	}
	r.writeBack(side, p)
	return nil
}

func (r *Room) clearAllBoosts() error {
	for _, side := range []*game.Side{r.state.P1, r.state.P2} {
		if p := side.Active(); p != nil {
			p.Boosts = make(map[string]int)
		}
	}
	return nil
}

func (r *Room) applyVolatile(line parser.Line, start bool) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	name := parser.StripEffectPrefix(line.Arg(3))
	if name == "" {
		return fmt.Errorf("%w: volatile without a name", ErrMalformedLine)
	}
	if !start {
		p.RemoveVolatile(name)
		r.writeBack(side, p)
		return nil
	}

	p.AddVolatile(name)
	switch name {
	case "Dynamax":
		side.DynamaxUsed = true
		for _, q := range side.Pokemon {
			q.CanDynamax = false
		}
	case "typechange":
		if types := line.Arg(4); types != "" {
			p.Types = strings.Split(types, "/")
		}
	}
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyField(line parser.Line, start bool, cache *moveCache) error {
	if line.HasTag("upkeep") {
		return nil
	}
	name := parser.StripEffectPrefix(line.Arg(2))
	if name == "" {
		return fmt.Errorf("%w: field effect without a name", ErrMalformedLine)
	}
	kind := game.ClassifyField(name)
	f := &r.state.Field
	if !start {
		switch kind {
		case game.FieldTerrain:
			f.ClearTerrain()
		case game.FieldWeather:
			f.ClearWeather()
		default:
			f.RemovePseudoWeather(name)
		}
		return nil
	}

	src := r.sourceOf(line, name, cache, kind != game.FieldPseudoWeather)
	switch kind {
	case game.FieldTerrain:
		f.SetTerrain(name, src)
	case game.FieldWeather:
		f.SetWeather(name, src)
	default:
		f.AddPseudoWeather(name, src)
	}
	r.revealFrom(line, nil)
	r.log.WithFields(logrus.Fields{"effect": name, "kind": kind, "source": refName(src)}).Debug("field effect started")
	return nil
}

func (r *Room) applyWeather(line parser.Line, cache *moveCache) error {
	name := strings.TrimSpace(line.Arg(2))
	switch {
	case name == "":
		return fmt.Errorf("%w: weather without a name", ErrMalformedLine)
	case name == "none":
		r.state.Field.ClearWeather()
		return nil
	case line.HasTag("upkeep"):
		return nil
	}
	if _, err := game.ParseWeather(name); err != nil {
		return err
	}
	src := r.sourceOf(line, name, cache, true)
	r.state.Field.SetWeather(name, src)
	r.revealFrom(line, nil)
	r.log.WithFields(logrus.Fields{"weather": name, "source": refName(src)}).Debug("weather started")
	return nil
}

func (r *Room) applySideCondition(line parser.Line, start bool, cache *moveCache) error {
	id, err := parser.ParseIdent(line.Arg(2))
	if err != nil {
		return malformed(err)
	}
	side := r.sideFor(id.Side)
	name := parser.StripEffectPrefix(line.Arg(3))
	if name == "" {
		return fmt.Errorf("%w: side condition without a name", ErrMalformedLine)
	}
	if !start {
		side.RemoveCondition(name)
		return nil
	}
	c := side.AddCondition(name, r.sourceOf(line, name, cache, false))
	r.log.WithFields(logrus.Fields{"side": side.ID, "condition": name, "layers": c.Layers, "source": refName(c.Source)}).
		Debug("side condition started")
	return nil
}

func (r *Room) applyStatus(line parser.Line, set bool) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	if set {
		st, err := game.ParseStatus(line.Arg(3))
		if err != nil {
			return err
		}
		p.Status = st
	} else {
		p.Status = game.StatusNone
	}
	r.revealFrom(line, p)
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyItem(line parser.Line, set bool) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	if set {
		p.Item = line.Arg(3)
		r.revealFrom(line, nil)
	} else {
		p.Item = ""
	}
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyAbility(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	if ability := line.Arg(3); ability != "" {
		p.Ability = ability
	}
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyFormeChange(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	details, err := parser.ParseDetails(line.Arg(3))
	if err != nil {
		return malformed(err)
	}
	if strings.Contains(details.Species, "-Mega") {
		r.log.Infof("%s has mega evolved into %s", p.Name, details.Species)
		r.deps.Rules.MegaEvolve(p, details.Species)
		for _, q := range side.Pokemon {
			q.CanMegaEvo = false
		}
	} else {
		r.log.Infof("%s has changed forme into %s", p.Name, details.Species)
		r.deps.Rules.FormeChange(p, details.Species)
	}
	r.revealFrom(line, p)
	r.writeBack(side, p)
	return nil
}

func (r *Room) applyTransform(line parser.Line) error {
	side, p, err := r.resolve(line.Arg(2))
	if err != nil {
		return err
	}
	target := r.opponentOf(side).Active()
	if tok := line.Arg(3); tok != "" {
		if q, err := r.lookup(tok); err == nil {
			target = q
		}
	}
	if target == nil {
		return fmt.Errorf("transform target of %s: %w", p.Name, ErrEntityNotFound)
	}
	r.deps.Rules.TransformInto(p, target)
	r.log.Infof("%s transformed into %s", p.Name, target.Species)
	r.writeBack(side, p)
	return nil
}

// revealFrom records the item or ability named by a "[from] item: X" or
// "[from] ability: X" tag on its holder: the [of] Pokemon when given,
// otherwise target.
func (r *Room) revealFrom(line parser.Line, target *game.Pokemon) {
	from, ok := line.Tag("from")
	if !ok {
		return
	}
	holder := target
	if ref := r.sourceFromOf(line); ref != nil {
		if q, ok := r.state.Find(ref); ok {
			holder = q
		}
	}
	if holder == nil {
		return
	}
	switch parser.EffectKind(from) {
	case "item":
		holder.Item = parser.StripEffectPrefix(from)
	case "ability":
		holder.Ability = parser.StripEffectPrefix(from)
	}
}

func refName(ref *game.EntityRef) string {
	if ref == nil {
		return ""
	}
	return ref.Side + ": " + ref.Name
}

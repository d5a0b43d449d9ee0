package battle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown-bot/game"
	"showdown-bot/parser"
	"showdown-bot/policy"
)

func TestRequestBeforeStartWaitsForReadiness(t *testing.T) {
	r, rec := newTestRoom(t, DefaultOptions(), Deps{})
	feed(r, "|init|battle", "|title|bot vs. foe")

	feed(r, requestLine(t, moveRequest(1)))
	assert.Empty(t, rec.with(roomID, "/choose"))
	feed(r, requestLine(t, moveRequest(2)))
	assert.Empty(t, rec.with(roomID, "/choose"))

	feed(r, "|player|p1|bot|1|", "|player|p2|foe|2|", "|start", "|switch|p1a: Pikachu|Pikachu, L50|110/110")

	assert.Equal(t, []string{"/choose move 1|2"}, rec.with(roomID, "/choose"))
	assert.True(t, r.ready.Fired())
	assert.Len(t, r.State().P1.Pokemon, 2)
	assert.Equal(t, "Pikachu", r.State().P1.Pokemon[0].Name)
}

func TestRequestSetsOwnSideFromPayload(t *testing.T) {
	opts := DefaultOptions()
	opts.Username = "someone else"
	r, _ := newTestRoom(t, opts, Deps{})
	req := moveRequest(1)
	req.Side.ID = "p2"

	feed(r, "|init|battle", requestLine(t, req))
	feed(r, "|player|p1|foe|1|", "|player|p2|bot|2|", "|start", "|switch|p2a: Pikachu|Pikachu, L50|100/110")

	st := r.State()
	pika, ok := st.P1.Lookup("Pikachu")
	require.True(t, ok, "p2 is ours, so it maps onto the local P1 side")
	assert.Equal(t, 100, pika.HP)
	assert.Equal(t, 110, pika.MaxHP)
	assert.Equal(t, "bot", st.P1.Name)
	assert.Equal(t, "foe", st.P2.Name)
}

func TestRequestRefreshKeepsBattleOnlyState(t *testing.T) {
	r, _ := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)
	feed(r, requestLine(t, moveRequest(1)))

	feed(r,
		"|-boost|p1a: Pikachu|spa|2",
		"|-status|p1a: Pikachu|par",
		"|move|p1a: Pikachu|Thunderbolt|p2a: Snorlax",
	)
	req := moveRequest(2)
	req.Side = ownSide("80/110 par", "300/300")
	feed(r, requestLine(t, req))

	side := r.State().P1
	require.Len(t, side.Pokemon, 2)
	pika := side.Pokemon[0]
	assert.Equal(t, "Pikachu", pika.Name)
	assert.True(t, pika.Active)
	assert.Equal(t, 2, pika.Boost("spa"))
	assert.Equal(t, 1, pika.StatusDuration)
	assert.Equal(t, 1, pika.ActiveTurns)
	assert.Equal(t, game.StatusParalysis, pika.Status)
	assert.Equal(t, 80, pika.HP)
	assert.Equal(t, 110, pika.MaxHP)
	assert.Equal(t, "Static", pika.Ability)
	assert.Equal(t, "Light Ball", pika.Item)
	assert.Equal(t, 120, pika.Stats["spe"])
	require.Len(t, pika.MoveSlots, 2)
	assert.Equal(t, "thunderbolt", pika.MoveSlots[0].ID)
	assert.Equal(t, 24, pika.MoveSlots[0].MaxPP)

	snorlax := side.Pokemon[1]
	assert.Equal(t, "Snorlax", snorlax.Name)
	assert.Equal(t, "Leftovers", snorlax.Item)
	assert.Equal(t, "Thick Fat", snorlax.Ability)
	assert.Equal(t, 1, snorlax.Position)
}

func TestRequestMegaFlagClearedOnceAnyMemberEvolved(t *testing.T) {
	r, _ := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)
	req := moveRequest(1)
	req.Active[0].CanMegaEvo = true
	req.Side.Pokemon[1].Details = "Charizard-Mega-X, L80"
	req.Side.Pokemon[1].Ident = "p1: Charizard"

	feed(r, requestLine(t, req))

	for _, p := range r.State().P1.Pokemon {
		assert.False(t, p.CanMegaEvo, p.Name)
	}
}

func TestNewerRequestSupersedesPendingDecision(t *testing.T) {
	clock := &manualClock{}
	r, rec := newTestRoom(t, DefaultOptions(), Deps{Schedule: clock.schedule})
	beginWithActives(r)
	clock.flush()

	feed(r, requestLine(t, moveRequest(1)))
	feed(r, requestLine(t, moveRequest(2)))
	assert.Empty(t, rec.with(roomID, "/choose"))

	clock.flush()
	assert.Equal(t, []string{"/choose move 1|2"}, rec.with(roomID, "/choose"))
	assert.Len(t, r.Decisions(), 1)
}

func TestWaitRequestSendsNothing(t *testing.T) {
	r, rec := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)

	feed(r, requestLine(t, parser.Request{Wait: true, RQID: 4, Side: ownSide("110/110", "300/300")}))
	feed(r, "|request|")

	assert.Empty(t, rec.with(roomID, "/choose"))
	assert.False(t, r.Failed())
}

func TestMalformedRequestIsNotFatal(t *testing.T) {
	r, rec := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)

	feed(r, "|request|{not json")

	assert.False(t, r.Failed())
	assert.Empty(t, rec.with(roomID, "/forfeit"))
}

func TestDecisionFallsBackToFirstChoice(t *testing.T) {
	tests := []struct {
		name   string
		policy policy.Policy
		want   string
	}{
		{
			name: "policy choice",
			policy: policyFunc(func(_ context.Context, _ *game.Battle, choices []policy.Choice) (policy.Choice, error) {
				return choices[1], nil
			}),
			want: "/choose move 2|7",
		},
		{
			name: "policy error",
			policy: policyFunc(func(context.Context, *game.Battle, []policy.Choice) (policy.Choice, error) {
				return policy.Choice{}, errors.New("no idea")
			}),
			want: "/choose move 1|7",
		},
		{
			name: "illegal choice",
			policy: policyFunc(func(context.Context, *game.Battle, []policy.Choice) (policy.Choice, error) {
				return policy.Choice{Kind: policy.ChoiceMove, Slot: 9}, nil
			}),
			want: "/choose move 1|7",
		},
		{
			name: "panic",
			policy: policyFunc(func(context.Context, *game.Battle, []policy.Choice) (policy.Choice, error) {
				panic("boom")
			}),
			want: "/choose move 1|7",
		},
		{
			name: "deadline",
			policy: policyFunc(func(_ context.Context, _ *game.Battle, choices []policy.Choice) (policy.Choice, error) {
				time.Sleep(200 * time.Millisecond)
				return choices[1], nil
			}),
			want: "/choose move 1|7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.DecisionTimeout = 20 * time.Millisecond
			r, rec := newTestRoom(t, opts, Deps{Policy: tt.policy})
			beginWithActives(r)

			feed(r, requestLine(t, moveRequest(7)))

			assert.Equal(t, []string{tt.want}, rec.with(roomID, "/choose"))
			assert.False(t, r.Failed())
		})
	}
}

func TestPolicyGetsPrivateSnapshot(t *testing.T) {
	var seen *game.Battle
	pol := policyFunc(func(_ context.Context, st *game.Battle, choices []policy.Choice) (policy.Choice, error) {
		seen = st
		st.P2.Pokemon[0].HP = -50
		return choices[0], nil
	})
	r, _ := newTestRoom(t, DefaultOptions(), Deps{Policy: pol})
	beginWithActives(r)

	feed(r, requestLine(t, moveRequest(1)))

	require.NotNil(t, seen)
	assert.NotSame(t, r.State(), seen)
	assert.GreaterOrEqual(t, r.State().P2.Pokemon[0].HP, 0)
}

func TestSingleChoiceSkipsPolicy(t *testing.T) {
	calls := 0
	pol := policyFunc(func(_ context.Context, _ *game.Battle, choices []policy.Choice) (policy.Choice, error) {
		calls++
		return choices[0], nil
	})
	r, rec := newTestRoom(t, DefaultOptions(), Deps{Policy: pol})
	beginWithActives(r)

	feed(r, requestLine(t, parser.Request{
		RQID:        9,
		ForceSwitch: []bool{true},
		Side:        ownSide("0 fnt", "300/300"),
	}))

	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"/choose switch 2|9"}, rec.with(roomID, "/choose"))
}

func TestNoLegalChoiceLetsServerPick(t *testing.T) {
	r, rec := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)

	feed(r, requestLine(t, parser.Request{
		RQID:        10,
		ForceSwitch: []bool{true},
		Side:        ownSide("0 fnt", "0 fnt"),
	}))

	assert.Equal(t, []string{"/choose default|10"}, rec.with(roomID, "/choose"))
}

func TestLegalChoices(t *testing.T) {
	side := `"side":{"name":"bot","id":"p1","pokemon":[` +
		`{"ident":"p1: Pikachu","details":"Pikachu, L50","condition":"110/110","active":true},` +
		`{"ident":"p1: Snorlax","details":"Snorlax, L80","condition":"300/300","active":false},` +
		`{"ident":"p1: Ditto","details":"Ditto, L90","condition":"0 fnt","active":false},` +
		`{"ident":"p1: Gyarados","details":"Gyarados, L80","condition":"120/290 brn","active":false}]}`
	moves := `"moves":[{"move":"Thunderbolt","id":"thunderbolt","pp":24,"maxpp":24,"target":"normal","disabled":false},` +
		`{"move":"Quick Attack","id":"quickattack","pp":48,"maxpp":48,"target":"normal","disabled":"Taunt"}]`
	allDisabled := `"moves":[{"move":"Thunderbolt","id":"thunderbolt","disabled":true},{"move":"Quick Attack","id":"quickattack","disabled":true}]`

	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "moves and switches",
			payload: `{"active":[{` + moves + `}],` + side + `,"rqid":1}`,
			want:    []string{"move 1", "switch 2", "switch 4"},
		},
		{
			name:    "forced switch",
			payload: `{"forceSwitch":[true],` + side + `,"rqid":1}`,
			want:    []string{"switch 2", "switch 4"},
		},
		{
			name:    "trapped",
			payload: `{"active":[{` + moves + `,"trapped":true}],` + side + `,"rqid":1}`,
			want:    []string{"move 1"},
		},
		{
			name:    "maybe trapped still offers switches",
			payload: `{"active":[{` + moves + `,"maybeTrapped":true}],` + side + `,"rqid":1}`,
			want:    []string{"move 1", "switch 2", "switch 4"},
		},
		{
			name:    "every move disabled",
			payload: `{"active":[{` + allDisabled + `}],` + side + `,"rqid":1}`,
			want:    []string{"move 1", "switch 2", "switch 4"},
		},
		{
			name:    "mega and dynamax variants",
			payload: `{"active":[{` + moves + `,"canMegaEvo":true,"canDynamax":true,"trapped":true}],` + side + `,"rqid":1}`,
			want:    []string{"move 1", "move 1 mega", "move 1 dynamax"},
		},
		{
			name:    "z move variant",
			payload: `{"active":[{` + moves + `,"canZMove":[{"move":"Gigavolt Havoc","target":"normal"},null],"trapped":true}],` + side + `,"rqid":1}`,
			want:    []string{"move 1", "move 1 zmove"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parser.ParseRequest(tt.payload)
			require.NoError(t, err)

			var got []string
			for _, c := range LegalChoices(req) {
				got = append(got, c.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegalChoicesCarrySwitchNames(t *testing.T) {
	choices := LegalChoices(&parser.Request{ForceSwitch: []bool{true}, Side: ownSide("0 fnt", "300/300")})

	require.Len(t, choices, 1)
	assert.Equal(t, policy.Choice{Kind: policy.ChoiceSwitch, Slot: 2, Name: "Snorlax"}, choices[0])
	assert.Nil(t, LegalChoices(nil))
}

func TestTeamPreviewSendsOrderAndBuildsOwnSide(t *testing.T) {
	opts := DefaultOptions()
	opts.Team = []TeamMember{
		{Name: "Pikachu", Species: "Pikachu", Level: 50, Moves: []string{"Thunderbolt", "Quick Attack"}, Item: "Light Ball"},
		{Name: "Snorlax", Species: "Snorlax", Level: 80, Moves: []string{"Body Slam", "Curse", "Rest"}},
		{Name: "Gyara", Species: "Gyarados", Level: 80, Moves: []string{"Earthquake"}},
		{Name: "Ditto", Species: "Ditto", Level: 90, Ability: "Imposter"},
		{Name: "Charizard", Species: "Charizard", Level: 80},
		{Name: "Charizard-Mega-X", Species: "Charizard-Mega-X", Level: 80},
	}
	var pokemon []parser.RequestPokemon
	for _, m := range opts.Team {
		pokemon = append(pokemon, parser.RequestPokemon{Ident: "p1: " + m.Name, Details: m.Species, Condition: "100/100"})
	}
	r, rec := newTestRoom(t, opts, Deps{Teams: fixedOrder{3, 1, 2, 4, 5, 6}})

	feed(r, "|init|battle", "|title|bot vs. foe")
	feed(r, requestLine(t, parser.Request{TeamPreview: true, MaxTeamSize: 4, RQID: 5,
		Side: &parser.RequestSide{Name: "bot", ID: "p1", Pokemon: pokemon}}))
	feed(r,
		"|player|p1|bot|1|",
		"|player|p2|foe|2|",
		"|clearpoke",
		"|poke|p1|Pikachu, L50|item",
		"|poke|p2|Snorlax, L80|item",
		"|teampreview|4",
	)

	assert.Equal(t, []string{"/team 312456|5"}, rec.with(roomID, "/team"))
	assert.Equal(t, []int{3, 1, 2, 4}, r.previewSelection)

	feed(r, "|start", "|switch|p1a: Gyara|Gyarados, L80|290/290")
	side := r.State().P1
	require.Len(t, side.Pokemon, 4)
	var names []string
	for _, p := range side.Pokemon {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Gyara", "Pikachu", "Snorlax", "Ditto"}, names)
	assert.Equal(t, "Light Ball", side.Pokemon[1].Item)
	assert.Equal(t, "Imposter", side.Pokemon[3].Ability)
	assert.Len(t, side.Pokemon[2].MoveSlots, 3)
	assert.Equal(t, 0, side.PlaceholdersLeft())
}

func TestTeamPreviewWithoutRequestUsesDefaults(t *testing.T) {
	r, rec := newTestRoom(t, DefaultOptions(), Deps{Teams: fixedOrder{2, 1, 3, 4, 5, 6}})
	feed(r, "|init|battle", "|teampreview")

	assert.Equal(t, []string{"/team 213456|0"}, rec.with(roomID, "/team"))
	assert.Len(t, r.previewSelection, 6)
}

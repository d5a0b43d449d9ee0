package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown-bot/game"
)

func activeRoom(t *testing.T) (*Room, *game.Pokemon, *game.Pokemon) {
	t.Helper()
	r, _ := newTestRoom(t, DefaultOptions(), Deps{})
	beginWithActives(r)
	pika, ok := r.State().P1.Lookup("Pikachu")
	require.True(t, ok)
	snorlax, ok := r.State().P2.Lookup("Snorlax")
	require.True(t, ok)
	return r, pika, snorlax
}

func TestOpponentHealthRescale(t *testing.T) {
	tests := []struct {
		condition string
		want      int
		fainted   bool
	}{
		{"45/100", 135, false},
		{"1/100", 3, false},
		{"100/100", 300, false},
		{"99/100 par", 297, false},
		{"150/100", 300, false},
		{"0 fnt", 0, true},
		{"50/100 fnt", 0, true},
		{"1/48", 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			r, _, snorlax := activeRoom(t)
			snorlax.MaxHP, snorlax.HP = 300, 300

			feed(r, "|-damage|p2a: Snorlax|"+tt.condition)

			assert.Equal(t, tt.want, snorlax.HP)
			assert.Equal(t, tt.fainted, snorlax.Fainted)
			assert.GreaterOrEqual(t, snorlax.HP, 0)
			assert.LessOrEqual(t, snorlax.HP, snorlax.MaxHP)
		})
	}
}

func TestOwnHealthIsAbsolute(t *testing.T) {
	r, pika, _ := activeRoom(t)

	feed(r, "|-damage|p1a: Pikachu|37/110")
	assert.Equal(t, 37, pika.HP)
	assert.Equal(t, 110, pika.MaxHP)

	feed(r, "|-heal|p1a: Pikachu|51/110|[from] item: Leftovers")
	assert.Equal(t, 51, pika.HP)
	assert.Equal(t, "Leftovers", pika.Item)

	feed(r, "|-sethp|p1a: Pikachu|20/110")
	assert.Equal(t, 20, pika.HP)
}

func TestHealthRevealsOpponentItem(t *testing.T) {
	r, pika, snorlax := activeRoom(t)

	feed(r, "|-damage|p2a: Snorlax|90/100|[from] item: Life Orb")
	assert.Equal(t, "Life Orb", snorlax.Item)

	feed(r, "|-damage|p2a: Snorlax|80/100|[from] ability: Rough Skin|[of] p1a: Pikachu")
	assert.Equal(t, "Rough Skin", pika.Ability)
	assert.NotEqual(t, "Rough Skin", snorlax.Ability)
}

func TestSetboostIsIdempotentBoostIsNot(t *testing.T) {
	r, _, snorlax := activeRoom(t)

	set := "|-setboost|p2a: Snorlax|atk|6|[from] move: Belly Drum"
	feed(r, set)
	feed(r, set)
	assert.Equal(t, 6, snorlax.Boost("atk"))

	rel := "|-boost|p2a: Snorlax|def|2"
	feed(r, rel)
	once := snorlax.Boost("def")
	feed(r, rel)
	assert.Equal(t, 2, once)
	assert.Equal(t, 4, snorlax.Boost("def"))
	assert.NotEqual(t, once, snorlax.Boost("def"))
}

func TestBoostVariants(t *testing.T) {
	r, pika, snorlax := activeRoom(t)

	feed(r,
		"|-unboost|p2a: Snorlax|spe|1",
		"|-unboost|p2a: Snorlax|spa|2",
		"|-boost|p2a: Snorlax|atk|1",
	)
	assert.Equal(t, -1, snorlax.Boost("spe"))
	assert.Equal(t, -2, snorlax.Boost("spa"))

	feed(r, "|-clearnegativeboost|p2a: Snorlax")
	assert.Equal(t, map[string]int{"atk": 1}, snorlax.Boosts)

	feed(r, "|-unboost|p2a: Snorlax|def|1", "|-restoreboost|p2a: Snorlax|[silent]")
	assert.Equal(t, map[string]int{"atk": 1}, snorlax.Boosts)

	feed(r, "|-clearboost|p2a: Snorlax")
	assert.Empty(t, snorlax.Boosts)

	feed(r, "|-boost|p1a: Pikachu|spa|1", "|-boost|p2a: Snorlax|def|1", "|-clearallboost")
	assert.Empty(t, pika.Boosts)
	assert.Empty(t, snorlax.Boosts)
}

func TestSwitchOutClearsVolatileState(t *testing.T) {
	r, _, snorlax := activeRoom(t)
	feed(r,
		"|-boost|p2a: Snorlax|atk|2",
		"|-start|p2a: Snorlax|move: Yawn|[of] p1a: Pikachu",
		"|move|p2a: Snorlax|Body Slam|p1a: Pikachu",
	)
	require.True(t, snorlax.HasVolatile("Yawn"))
	require.Equal(t, 1, snorlax.ActiveTurns)

	feed(r, "|switch|p2a: Ditto|Ditto, L90|100/100")

	assert.False(t, snorlax.Active)
	assert.Empty(t, snorlax.Boosts)
	assert.Empty(t, snorlax.Volatiles)
	assert.Equal(t, 0, snorlax.ActiveTurns)
	assert.Equal(t, "Ditto", r.State().P2.Pokemon[0].Name)

	feed(r, "|-end|p2a: Ditto|Substitute")
	assert.False(t, r.Failed())
}

func TestDynamaxIsOnePerSide(t *testing.T) {
	r, _, snorlax := activeRoom(t)
	require.True(t, snorlax.CanDynamax)

	feed(r, "|-start|p2a: Snorlax|Dynamax")
	assert.True(t, r.State().P2.DynamaxUsed)
	assert.True(t, snorlax.HasVolatile("Dynamax"))
	assert.False(t, snorlax.CanDynamax)

	feed(r, "|switch|p2a: Charizard|Charizard, L80|100/100")
	charizard, ok := r.State().P2.Lookup("Charizard")
	require.True(t, ok)
	assert.False(t, charizard.CanDynamax)
	assert.False(t, snorlax.HasVolatile("Dynamax"))
	assert.False(t, r.State().P1.DynamaxUsed)
}

func TestTypeChange(t *testing.T) {
	r, _, snorlax := activeRoom(t)

	feed(r, "|-start|p2a: Snorlax|typechange|Ghost/Fairy|[from] move: Reflect Type")
	assert.Equal(t, []string{"Ghost", "Fairy"}, snorlax.Types)
}

func TestStatusSetAndCure(t *testing.T) {
	r, _, snorlax := activeRoom(t)

	feed(r, "|-status|p2a: Snorlax|tox")
	assert.Equal(t, game.StatusToxic, snorlax.Status)

	feed(r, "|move|p2a: Snorlax|Rest|p2a: Snorlax", "|-status|p2a: Snorlax|slp|[from] move: Rest")
	assert.Equal(t, game.StatusSleep, snorlax.Status)
	duration := snorlax.StatusDuration
	assert.Equal(t, 1, duration)

	feed(r, "|-status|p2a: Snorlax|bogus")
	assert.Equal(t, game.StatusSleep, snorlax.Status)

	feed(r, "|-curestatus|p2a: Snorlax|slp|[msg]")
	assert.Equal(t, game.StatusNone, snorlax.Status)
	assert.Equal(t, duration, snorlax.StatusDuration)
}

func TestItemAndAbility(t *testing.T) {
	r, pika, snorlax := activeRoom(t)

	feed(r, "|-item|p2a: Snorlax|Choice Band|[from] ability: Frisk|[of] p1a: Pikachu|[identify]")
	assert.Equal(t, "Choice Band", snorlax.Item)
	assert.Equal(t, "Frisk", pika.Ability)

	feed(r, "|-enditem|p2a: Snorlax|Choice Band|[from] move: Knock Off")
	assert.Empty(t, snorlax.Item)

	feed(r, "|-ability|p2a: Snorlax|Thick Fat")
	assert.Equal(t, "Thick Fat", snorlax.Ability)
}

func TestMegaEvolutionAndFormeChange(t *testing.T) {
	r, _, snorlax := activeRoom(t)
	feed(r, "|switch|p2a: Charizard|Charizard, L80|100/100")
	charizard, _ := r.State().P2.Lookup("Charizard")
	charizard.CanMegaEvo = true
	snorlax.CanMegaEvo = true

	feed(r, "|detailschange|p2a: Charizard|Charizard-Mega-X, L80")
	assert.Equal(t, "Charizard-Mega-X", charizard.Species)
	assert.Equal(t, "Tough Claws", charizard.Ability)
	assert.Equal(t, []string{"Fire", "Dragon"}, charizard.Types)
	for _, p := range r.State().P2.Pokemon {
		assert.False(t, p.CanMegaEvo)
	}

	feed(r, "|-formechange|p2a: Charizard|Charizard|[msg]")
	assert.Equal(t, "Charizard", charizard.Species)
	assert.Equal(t, []string{"Fire", "Flying"}, charizard.Types)
}

func TestTransformCopiesTargetAndBlocksInference(t *testing.T) {
	r, pika, _ := activeRoom(t)
	feed(r, "|switch|p2a: Ditto|Ditto, L90|100/100")
	ditto, _ := r.State().P2.Lookup("Ditto")

	feed(r, "|-transform|p2a: Ditto|p1a: Pikachu|[from] ability: Imposter")
	assert.True(t, ditto.Transformed)
	assert.Equal(t, "Pikachu", ditto.Species)
	require.Len(t, ditto.MoveSlots, len(pika.MoveSlots))
	for _, slot := range ditto.MoveSlots {
		assert.Equal(t, 5, slot.PP)
	}

	feed(r, "|move|p2a: Ditto|Thunderbolt|p1a: Pikachu")
	assert.Empty(t, ditto.TrueMoves)
}

func TestTransformEndsWhenSwitchedOut(t *testing.T) {
	r, _, snorlax := activeRoom(t)
	ability := snorlax.Ability
	feed(r,
		"|move|p2a: Snorlax|Body Slam|p1a: Pikachu",
		"|move|p2a: Snorlax|Curse|p2a: Snorlax",
		"|move|p2a: Snorlax|Earthquake|p1a: Pikachu",
		"|-transform|p2a: Snorlax|p1a: Pikachu",
	)
	require.Equal(t, "Pikachu", snorlax.Species)

	feed(r, "|switch|p2a: Ditto|Ditto, L90|100/100")
	assert.False(t, snorlax.Transformed)
	assert.Equal(t, "Snorlax", snorlax.Species)
	assert.Equal(t, []string{"Normal"}, snorlax.Types)
	assert.Equal(t, ability, snorlax.Ability)
	assert.Equal(t, []string{"bodyslam", "curse", "earthquake"}, slotIDs(snorlax))

	feed(r, "|switch|p2a: Snorlax|Snorlax, L80|100/100", "|move|p2a: Snorlax|Rest|p2a: Snorlax")
	assert.Equal(t, []string{"bodyslam", "curse", "earthquake", "rest"}, snorlax.TrueMoves)
	assert.Len(t, snorlax.MoveSlots, game.MaxMoves)
	assert.Equal(t, snorlax.TrueMoves, slotIDs(snorlax))
}

func TestTerrainAttribution(t *testing.T) {
	tests := []struct {
		name  string
		block []string
		want  *game.EntityRef
	}{
		{
			name:  "same block move",
			block: []string{"|move|p2a: Snorlax|Electric Terrain|", "|-fieldstart|move: Electric Terrain"},
			want:  &game.EntityRef{Side: "p2", Name: "Snorlax"},
		},
		{
			name:  "table cross reference",
			block: []string{"|move|p1a: Pikachu|Max Lightning|p2a: Snorlax", "|-fieldstart|move: Electric Terrain"},
			want:  &game.EntityRef{Side: "p1", Name: "Pikachu"},
		},
		{
			name: "explicit origin wins",
			block: []string{
				"|move|p1a: Pikachu|Electric Terrain|",
				"|-fieldstart|move: Electric Terrain|[from] ability: Electric Surge|[of] p2a: Snorlax",
			},
			want: &game.EntityRef{Side: "p2", Name: "Snorlax"},
		},
		{
			name:  "nothing to go on",
			block: []string{"|-fieldstart|move: Electric Terrain"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := activeRoom(t)

			feed(r, tt.block...)

			terrain := r.State().Field.Terrain
			require.NotNil(t, terrain)
			assert.Equal(t, "Electric Terrain", terrain.Name)
			assert.Equal(t, tt.want, terrain.Source)
		})
	}
}

func TestAttributionDoesNotCrossBlocks(t *testing.T) {
	r, _, _ := activeRoom(t)

	feed(r, "|move|p2a: Snorlax|Psychic Terrain|")
	feed(r, "|-fieldstart|move: Psychic Terrain")

	require.NotNil(t, r.State().Field.Terrain)
	assert.Nil(t, r.State().Field.Terrain.Source)

	feed(r, "|-fieldend|move: Psychic Terrain")
	assert.Nil(t, r.State().Field.Terrain)
}

func TestExplicitOriginFallsBackToNameScan(t *testing.T) {
	r, _, snorlax := activeRoom(t)

	feed(r, "|-fieldstart|move: Grassy Terrain|[from] ability: Grassy Surge|[of] Snorlax")

	require.NotNil(t, r.State().Field.Terrain)
	assert.Equal(t, snorlax.Ref(), r.State().Field.Terrain.Source)
}

func TestPseudoWeather(t *testing.T) {
	r, _, _ := activeRoom(t)

	feed(r, "|move|p2a: Snorlax|Trick Room|", "|-fieldstart|move: Trick Room|[of] p2a: Snorlax")
	effect, ok := r.State().Field.PseudoWeather["Trick Room"]
	require.True(t, ok)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, effect.Source)

	feed(r, "|-fieldend|move: Trick Room")
	assert.NotContains(t, r.State().Field.PseudoWeather, "Trick Room")
}

func TestWeatherUpkeepNeverReattributes(t *testing.T) {
	r, _, _ := activeRoom(t)

	feed(r, "|move|p2a: Snorlax|Rain Dance|", "|-weather|RainDance")
	weather := r.State().Field.Weather
	require.NotNil(t, weather)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, weather.Source)

	feed(r, "|move|p1a: Pikachu|Rain Dance|", "|-weather|RainDance|[upkeep]")
	assert.Same(t, weather, r.State().Field.Weather)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, r.State().Field.Weather.Source)

	feed(r, "|-weather|Sandstorm|[upkeep]")
	assert.Equal(t, "RainDance", r.State().Field.Weather.Name)

	feed(r, "|-weather|none")
	assert.Nil(t, r.State().Field.Weather)
}

func TestWeatherFromAbility(t *testing.T) {
	r, _, snorlax := activeRoom(t)

	feed(r, "|-weather|SunnyDay|[from] ability: Drought|[of] p2a: Snorlax")

	weather := r.State().Field.Weather
	require.NotNil(t, weather)
	assert.Equal(t, "SunnyDay", weather.Name)
	assert.Equal(t, snorlax.Ref(), weather.Source)
	assert.Equal(t, "Drought", snorlax.Ability)
}

func TestFieldUpkeepSuppressed(t *testing.T) {
	r, _, _ := activeRoom(t)
	feed(r, "|-fieldstart|move: Misty Terrain|[of] p2a: Snorlax")

	feed(r, "|move|p1a: Pikachu|Misty Terrain|", "|-fieldstart|move: Misty Terrain|[upkeep]")

	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, r.State().Field.Terrain.Source)
}

func TestSideConditions(t *testing.T) {
	r, _, _ := activeRoom(t)
	own := r.State().P1

	feed(r, "|move|p2a: Snorlax|Spikes|p1a: Pikachu", "|-sidestart|p1: bot|Spikes")
	spikes, ok := own.Conditions["Spikes"]
	require.True(t, ok)
	assert.Equal(t, 1, spikes.Layers)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, spikes.Source)

	feed(r, "|-sidestart|p1: bot|Spikes")
	assert.Equal(t, 2, own.Conditions["Spikes"].Layers)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, own.Conditions["Spikes"].Source)

	feed(r, "|-sideend|p1: bot|Spikes|[of] p1a: Pikachu")
	assert.NotContains(t, own.Conditions, "Spikes")

	feed(r, "|move|p2a: Snorlax|Reflect|p2a: Snorlax", "|-sidestart|p2: foe|move: Reflect")
	reflect, ok := r.State().P2.Conditions["Reflect"]
	require.True(t, ok)
	assert.Equal(t, &game.EntityRef{Side: "p2", Name: "Snorlax"}, reflect.Source)
}

func TestFaint(t *testing.T) {
	r, pika, _ := activeRoom(t)

	feed(r, "|faint|p1a: Pikachu")

	assert.True(t, pika.Fainted)
	assert.Equal(t, 0, pika.HP)
	assert.False(t, pika.Alive())
}

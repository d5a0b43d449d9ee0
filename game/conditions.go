package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownName is returned when a status, weather or table entry is not part
// of the canonical name set.
var ErrUnknownName = errors.New("unknown name")

type Status string

const (
	StatusNone      Status = ""
	StatusBurn      Status = "brn"
	StatusParalysis Status = "par"
	StatusSleep     Status = "slp"
	StatusFreeze    Status = "frz"
	StatusPoison    Status = "psn"
	StatusToxic     Status = "tox"
)

var statuses = map[string]Status{
	"brn": StatusBurn,
	"par": StatusParalysis,
	"slp": StatusSleep,
	"frz": StatusFreeze,
	"psn": StatusPoison,
	"tox": StatusToxic,
}

func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	if st, ok := statuses[s]; ok {
		return st, nil
	}
	return StatusNone, fmt.Errorf("status %q: %w", s, ErrUnknownName)
}

type Weather string

const (
	WeatherRain        Weather = "RainDance"
	WeatherSun         Weather = "SunnyDay"
	WeatherSand        Weather = "Sandstorm"
	WeatherHail        Weather = "Hail"
	WeatherSnow        Weather = "Snow"
	WeatherHarshSun    Weather = "DesolateLand"
	WeatherHeavyRain   Weather = "PrimordialSea"
	WeatherStrongWinds Weather = "DeltaStream"
)

var weathers = map[string]Weather{
	string(WeatherRain):        WeatherRain,
	string(WeatherSun):         WeatherSun,
	string(WeatherSand):        WeatherSand,
	string(WeatherHail):        WeatherHail,
	string(WeatherSnow):        WeatherSnow,
	string(WeatherHarshSun):    WeatherHarshSun,
	string(WeatherHeavyRain):   WeatherHeavyRain,
	string(WeatherStrongWinds): WeatherStrongWinds,
}

func ParseWeather(s string) (Weather, error) {
	if w, ok := weathers[strings.TrimSpace(s)]; ok {
		return w, nil
	}
	return "", fmt.Errorf("weather %q: %w", s, ErrUnknownName)
}

type Terrain string

const (
	TerrainElectric Terrain = "Electric Terrain"
	TerrainGrassy   Terrain = "Grassy Terrain"
	TerrainPsychic  Terrain = "Psychic Terrain"
	TerrainMisty    Terrain = "Misty Terrain"
)

var terrains = []Terrain{TerrainElectric, TerrainGrassy, TerrainPsychic, TerrainMisty}

// TerrainMoves lists, per terrain, every move whose use sets it.
var TerrainMoves = map[Terrain][]string{
	TerrainElectric: {"Electric Terrain", "Z-Electric Terrain", "Max Lightning"},
	TerrainGrassy:   {"Grassy Terrain", "Z-Grassy Terrain", "Max Overgrowth"},
	TerrainPsychic:  {"Psychic Terrain", "Z-Psychic Terrain", "Max Mindstorm"},
	TerrainMisty:    {"Misty Terrain", "Z-Misty Terrain", "Max Starfall"},
}

// WeatherMoves lists, per weather, every move whose use sets it.
var WeatherMoves = map[Weather][]string{
	WeatherSun:  {"Sunny Day", "Z-Sunny Day", "Max Flare"},
	WeatherRain: {"Rain Dance", "Z-Rain Dance", "Max Geyser"},
	WeatherSand: {"Sandstorm", "Z-Sandstorm", "Max Rockfall"},
	WeatherHail: {"Hail", "Z-Hail", "Max Hailstorm"},
	WeatherSnow: {"Snowscape", "Chilly Reception"},
}

// TerrainOf reports which terrain a field status names, if any.
func TerrainOf(fieldStatus string) (Terrain, bool) {
	for _, t := range terrains {
		if strings.Contains(fieldStatus, string(t)) {
			return t, true
		}
	}
	return "", false
}

type FieldKind int

const (
	FieldPseudoWeather FieldKind = iota
	FieldTerrain
	FieldWeather
)

func (k FieldKind) String() string {
	switch k {
	case FieldTerrain:
		return "terrain"
	case FieldWeather:
		return "weather"
	default:
		return "pseudoweather"
	}
}

// ClassifyField sorts a field status name into terrain, weather or pseudo
// weather.
func ClassifyField(name string) FieldKind {
	if _, ok := TerrainOf(name); ok {
		return FieldTerrain
	}
	if _, err := ParseWeather(name); err == nil {
		return FieldWeather
	}
	return FieldPseudoWeather
}

// SourceMoves returns the moves that can produce the named field status.
func SourceMoves(name string) []string {
	if t, ok := TerrainOf(name); ok {
		return TerrainMoves[t]
	}
	if w, err := ParseWeather(name); err == nil {
		return WeatherMoves[w]
	}
	return nil
}

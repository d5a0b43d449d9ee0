package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

type RequestMove struct {
	Move     string `json:"move"`
	ID       string `json:"id"`
	PP       int    `json:"pp"`
	MaxPP    int    `json:"maxpp"`
	Target   string `json:"target"`
	Disabled bool   `json:"-"`
}

// UnmarshalJSON accepts both boolean and string "disabled" values; the server
// sends the disabling effect's name for some moves.
func (m *RequestMove) UnmarshalJSON(b []byte) error {
	type plain RequestMove
	var raw struct {
		plain
		Disabled json.RawMessage `json:"disabled"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = RequestMove(raw.plain)
	switch strings.TrimSpace(string(raw.Disabled)) {
	case "", "false", "null", `""`:
		m.Disabled = false
	default:
		m.Disabled = true
	}
	return nil
}

type RequestActive struct {
	Moves        []RequestMove     `json:"moves"`
	Trapped      bool              `json:"trapped"`
	MaybeTrapped bool              `json:"maybeTrapped"`
	CanMegaEvo   bool              `json:"canMegaEvo"`
	CanDynamax   bool              `json:"canDynamax"`
	CanZMove     []json.RawMessage `json:"canZMove"`
}

// ZMoveAt reports whether the move in slot i can be used as a Z-move.
func (a RequestActive) ZMoveAt(i int) bool {
	if i < 0 || i >= len(a.CanZMove) {
		return false
	}
	raw := strings.TrimSpace(string(a.CanZMove[i]))
	return raw != "" && raw != "null"
}

type RequestPokemon struct {
	Ident       string         `json:"ident"`
	Details     string         `json:"details"`
	Condition   string         `json:"condition"`
	Active      bool           `json:"active"`
	Stats       map[string]int `json:"stats"`
	Moves       []string       `json:"moves"`
	BaseAbility string         `json:"baseAbility"`
	Ability     string         `json:"ability"`
	Item        string         `json:"item"`
}

type RequestSide struct {
	Name    string           `json:"name"`
	ID      string           `json:"id"`
	Pokemon []RequestPokemon `json:"pokemon"`
}

// Request is the action-request payload carried by a "|request|" line.
type Request struct {
	Active      []RequestActive `json:"active"`
	Side        *RequestSide    `json:"side"`
	RQID        int             `json:"rqid"`
	ForceSwitch []bool          `json:"forceSwitch"`
	Wait        bool            `json:"wait"`
	TeamPreview bool            `json:"teamPreview"`
	MaxTeamSize int             `json:"maxTeamSize"`
}

// ParseRequest decodes a request payload. An empty or null payload yields a
// nil request and no error.
func ParseRequest(payload string) (*Request, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "null" {
		return nil, nil
	}
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// NeedsSwitch reports whether the request forces a switch.
func (r *Request) NeedsSwitch() bool {
	for _, f := range r.ForceSwitch {
		if f {
			return true
		}
	}
	return false
}

// NeedsMove reports whether the request asks for a move or switch choice.
func (r *Request) NeedsMove() bool {
	return len(r.Active) > 0 && !r.Wait
}

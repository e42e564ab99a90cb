// Package feed reconstructs the narrative event and chat feed from raw
// per-block log batches.
//
// Decoding is a pure computation: every call works only from the batches and
// lookup tables passed in, so concurrent decodes are safe. Malformed records
// degrade to warnings, never to a failed decode.
package feed

import (
	"log"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/blocktime"
	"cryptdelve.gg/internal/protocol"
)

// Event is one decoded narrative event.
type Event struct {
	LogIndex    uint64
	BlockNumber uint64
	// Timestamp is the estimated wall-clock time (unix ms) of the containing
	// block. Events in the same block share it; LogIndex breaks ties.
	Timestamp int64

	Type     protocol.LogType
	Attacker *protocol.Participant
	Defender *protocol.Participant

	AreaID  area.Key
	HasArea bool

	// ActorInitiated is set when the decode was given an actor character id
	// and the resolved attacker is that character.
	ActorInitiated bool

	Details     Details
	DisplayText string
}

// Details carries the type-specific payload of an event. Combat-shaped types
// fill the combat fields verbatim from the record; Ability stores the ability
// identifier in Value; synthesized Chat events store the message in Text.
type Details struct {
	Hit            bool
	Critical       bool
	DamageDone     int
	HealthHealed   int
	TargetDied     bool
	LootedWeaponID int
	LootedArmorID  int
	Experience     int
	Value          uint64
	Text           string
}

// ChatMessage is one decoded chat line.
type ChatMessage struct {
	LogIndex    uint64
	BlockNumber uint64
	Timestamp   int64
	Sender      protocol.Participant
	Text        string
}

// Roster holds the identity lookup tables supplied for the current poll.
type Roster struct {
	Combatants    []protocol.Participant
	NonCombatants []protocol.Participant
}

// Resolve looks up a participant by exact index match against the union of
// both tables. Index 0 means "no participant" and resolves to nothing.
func (r Roster) Resolve(index int) (protocol.Participant, bool) {
	if index == 0 {
		return protocol.Participant{}, false
	}
	for _, p := range r.Combatants {
		if p.Index == index {
			return p, true
		}
	}
	for _, p := range r.NonCombatants {
		if p.Index == index {
			return p, true
		}
	}
	return protocol.Participant{}, false
}

// Narrator turns a decoded event into user-facing text. The real templating
// lives outside this subsystem; a nil narrator leaves DisplayText empty.
type Narrator func(Event) string

// Decoder decodes raw log batches into sorted, deduplicated feeds.
type Decoder struct {
	AvgBlockMs int64
	Narrate    Narrator
	Log        *log.Logger
}

// NewDecoder returns a Decoder with the given average block interval. A zero
// avgBlockMs falls back to the reference deployment's interval.
func NewDecoder(avgBlockMs int64, logger *log.Logger) *Decoder {
	if avgBlockMs <= 0 {
		avgBlockMs = blocktime.DefaultAvgBlockMs
	}
	return &Decoder{AvgBlockMs: avgBlockMs, Log: logger}
}

func (d *Decoder) warnf(format string, args ...any) {
	if d.Log != nil {
		d.Log.Printf(format, args...)
	}
}

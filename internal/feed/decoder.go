package feed

import (
	"sort"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/blocktime"
	"cryptdelve.gg/internal/protocol"
)

// handler fills the type-specific parts of an event from its raw record.
type handler func(ev *Event, rec protocol.RawLogRecord)

// decodeCombat is the generic combat-shaped handler. Unknown log types fall
// back to it on purpose: new on-chain log types ship combat-shaped first.
func decodeCombat(ev *Event, rec protocol.RawLogRecord) {
	ev.Details.Hit = rec.Hit
	ev.Details.Critical = rec.Critical
	ev.Details.DamageDone = rec.DamageDone
	ev.Details.HealthHealed = rec.HealthHealed
	ev.Details.TargetDied = rec.TargetDied
	ev.Details.LootedWeaponID = rec.LootedWeaponID
	ev.Details.LootedArmorID = rec.LootedArmorID
	ev.Details.Experience = rec.Experience
}

var handlers = map[protocol.LogType]handler{
	protocol.LogCombat:           decodeCombat,
	protocol.LogInstigatedCombat: decodeCombat,
	protocol.LogEnteredArea: func(ev *Event, rec protocol.RawLogRecord) {
		ev.Defender = nil
	},
	protocol.LogLeftArea: func(ev *Event, rec protocol.RawLogRecord) {
		ev.Defender = nil
	},
	protocol.LogAbility: func(ev *Event, rec protocol.RawLogRecord) {
		ev.Details.Value = rec.Value
	},
	protocol.LogAscend: func(ev *Event, rec protocol.RawLogRecord) {
		ev.Defender = nil
		ev.Details.TargetDied = true
	},
}

// chatCursor walks a batch's chat strings. It advances once per Chat-typed
// record regardless of whether the record produced a message, keeping later
// chat records in the batch aligned with their strings.
type chatCursor struct {
	strings []string
	pos     int
}

func (c *chatCursor) take() (string, bool) {
	if c.pos >= len(c.strings) {
		c.pos++
		return "", false
	}
	s := c.strings[c.pos]
	c.pos++
	return s, true
}

// Decode turns raw batches into chronologically sorted, deduplicated event
// and chat feeds. Participants resolve against roster; actorID, when
// non-empty, marks events initiated by that character. Input order of batches
// does not affect the result.
func (d *Decoder) Decode(batches []protocol.LogBatch, roster Roster, refBlock uint64, refMs int64, actorID string) ([]Event, []ChatMessage) {
	avg := d.AvgBlockMs
	if avg <= 0 {
		avg = blocktime.DefaultAvgBlockMs
	}

	var events []Event
	var chats []ChatMessage
	seenEvents := make(map[uint64]struct{})
	seenChats := make(map[uint64]struct{})

	for _, batch := range batches {
		ts := blocktime.Estimate(refBlock, refMs, batch.BlockNumber, avg)
		cursor := &chatCursor{strings: batch.ChatStrings}

		for _, rec := range batch.Logs {
			attacker, attackerOK := d.resolveSide(roster, rec.MainParticipantIndex, rec, "main")
			defender, defenderOK := d.resolveSide(roster, rec.OtherParticipantIndex, rec, "other")

			ev := Event{
				LogIndex:    rec.Index,
				BlockNumber: batch.BlockNumber,
				Timestamp:   ts,
				Type:        rec.LogType,
			}
			if attackerOK {
				p := attacker
				ev.Attacker = &p
				ev.ActorInitiated = actorID != "" && p.ID == actorID
			}
			if defenderOK {
				p := defender
				ev.Defender = &p
			}

			if rec.LogType == protocol.LogChat {
				text, haveText := cursor.take()
				if !haveText {
					d.warnf("[feed] block %d log %d: chat record without chat string", batch.BlockNumber, rec.Index)
				}
				if !attackerOK {
					d.warnf("[feed] block %d log %d: chat sender index %d unresolved", batch.BlockNumber, rec.Index, rec.MainParticipantIndex)
				}
				// A chat with no text or no sender is dropped, but the cursor
				// already advanced, so later chats in the batch stay aligned.
				if !haveText || !attackerOK {
					continue
				}
				if _, dup := seenChats[rec.Index]; !dup {
					seenChats[rec.Index] = struct{}{}
					chats = append(chats, ChatMessage{
						LogIndex:    rec.Index,
						BlockNumber: batch.BlockNumber,
						Timestamp:   ts,
						Sender:      attacker,
						Text:        text,
					})
				}
				// The unified narrative feed carries chat too.
				ev.Details.Text = text
			} else {
				h, ok := handlers[rec.LogType]
				if !ok {
					h = decodeCombat
				}
				h(&ev, rec)
				d.tagArea(&ev, rec, batch.BlockNumber)
			}

			if _, dup := seenEvents[ev.LogIndex]; dup {
				continue
			}
			seenEvents[ev.LogIndex] = struct{}{}
			if d.Narrate != nil {
				ev.DisplayText = d.Narrate(ev)
			}
			events = append(events, ev)
		}
	}

	sortEvents(events)
	sort.SliceStable(chats, func(i, j int) bool {
		if chats[i].Timestamp != chats[j].Timestamp {
			return chats[i].Timestamp < chats[j].Timestamp
		}
		return chats[i].LogIndex < chats[j].LogIndex
	})
	return events, chats
}

func (d *Decoder) resolveSide(roster Roster, index int, rec protocol.RawLogRecord, side string) (protocol.Participant, bool) {
	if index == 0 {
		return protocol.Participant{}, false
	}
	p, ok := roster.Resolve(index)
	if !ok {
		// Data-quality warning only; the event is still emitted with the
		// side left unresolved.
		d.warnf("[feed] log %d (%s): %s participant index %d not in roster", rec.Index, rec.LogType, side, index)
		return protocol.Participant{}, false
	}
	return p, true
}

// tagArea attaches the packed cell key carried by movement records.
func (d *Decoder) tagArea(ev *Event, rec protocol.RawLogRecord, block uint64) {
	if rec.LogType != protocol.LogEnteredArea && rec.LogType != protocol.LogLeftArea {
		return
	}
	k := area.Key(rec.Value)
	if !area.Valid(k) {
		d.warnf("[feed] block %d log %d: area value %d out of key range", block, rec.Index, rec.Value)
		return
	}
	ev.AreaID = k
	ev.HasArea = true
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

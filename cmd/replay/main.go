package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/feed"
	"cryptdelve.gg/internal/persistence/capture"
	"cryptdelve.gg/internal/protocol"
)

func main() {
	var (
		capturePath = flag.String("capture", "", "path to batches .jsonl.zst capture")
		rosterPath  = flag.String("roster", "", "path to roster JSON ({combatants:[],noncombatants:[]}) (optional)")
		refBlock    = flag.Uint64("ref_block", 0, "reference block number")
		refMs       = flag.Int64("ref_ms", 0, "reference timestamp unix ms (default: now)")
		avgBlockMs  = flag.Int64("avg_block_ms", 500, "average block interval ms")
		actorID     = flag.String("actor", "", "actor character id (marks actor-initiated events)")
		areaFilter  = flag.String("area", "", "only print events in this area key (decimal)")
		stats       = flag.Bool("stats", false, "print per-area statistics after the feed")
	)
	flag.Parse()

	if *capturePath == "" {
		fmt.Fprintln(os.Stderr, "missing -capture")
		os.Exit(2)
	}
	if *refMs == 0 {
		*refMs = time.Now().UnixMilli()
	}

	batches, err := capture.ReadAll(*capturePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read capture:", err)
		os.Exit(1)
	}

	var roster feed.Roster
	if *rosterPath != "" {
		raw, err := os.ReadFile(*rosterPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read roster:", err)
			os.Exit(1)
		}
		var r struct {
			Combatants    []protocol.Participant `json:"combatants"`
			NonCombatants []protocol.Participant `json:"noncombatants"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			fmt.Fprintln(os.Stderr, "parse roster:", err)
			os.Exit(1)
		}
		roster = feed.Roster{Combatants: r.Combatants, NonCombatants: r.NonCombatants}
	}

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)
	decoder := feed.NewDecoder(*avgBlockMs, logger)
	decoder.Narrate = describe

	events, chats := decoder.Decode(batches, roster, *refBlock, *refMs, *actorID)
	fmt.Printf("capture: %d batches -> %d events, %d chats\n", len(batches), len(events), len(chats))

	if *areaFilter != "" {
		k, err := area.ParseKey(*areaFilter)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -area:", err)
			os.Exit(2)
		}
		events = feed.FilterByArea(events, k)
	}

	for _, ev := range events {
		fmt.Printf("%s block=%d #%d %s\n",
			time.UnixMilli(ev.Timestamp).UTC().Format(time.RFC3339),
			ev.BlockNumber, ev.LogIndex, ev.DisplayText)
	}
	for _, c := range chats {
		fmt.Printf("%s chat %s: %s\n",
			time.UnixMilli(c.Timestamp).UTC().Format(time.RFC3339), c.Sender.Name, c.Text)
	}

	if *stats {
		fmt.Println("per-area statistics:")
		for _, row := range feed.AreaStatistics(events) {
			d, x, y := area.Decode(row.AreaID)
			fmt.Printf("  area %s (depth=%d x=%d y=%d): %d events, %d..%d\n",
				row.AreaID, d, x, y, row.EventCount, row.EarliestStamp, row.LatestStamp)
		}
	}
}

// describe is a plain debug renderer. The production narrative templating
// lives in the UI layer.
func describe(ev feed.Event) string {
	name := func(p *protocol.Participant) string {
		if p == nil {
			return "someone"
		}
		return p.Name
	}
	switch ev.Type {
	case protocol.LogChat:
		return fmt.Sprintf("%s says %q", name(ev.Attacker), ev.Details.Text)
	case protocol.LogEnteredArea:
		return fmt.Sprintf("%s entered area %s", name(ev.Attacker), ev.AreaID)
	case protocol.LogLeftArea:
		return fmt.Sprintf("%s left area %s", name(ev.Attacker), ev.AreaID)
	case protocol.LogAbility:
		return fmt.Sprintf("%s used ability %d on %s", name(ev.Attacker), ev.Details.Value, name(ev.Defender))
	case protocol.LogAscend:
		return fmt.Sprintf("%s ascended", name(ev.Attacker))
	default:
		verb := "missed"
		if ev.Details.Hit {
			verb = fmt.Sprintf("hit for %d", ev.Details.DamageDone)
			if ev.Details.Critical {
				verb += " (crit)"
			}
		}
		s := fmt.Sprintf("%s %s %s", name(ev.Attacker), verb, name(ev.Defender))
		if ev.Details.TargetDied {
			s += ", killing them"
		}
		return s
	}
}

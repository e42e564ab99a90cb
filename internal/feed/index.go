package feed

import (
	"sort"

	"cryptdelve.gg/internal/area"
)

// Query helpers over an already-decoded event feed. All of them are pure:
// they never mutate the input slice and never fail on well-formed input.

// FilterByArea returns the events tagged with areaID, original order kept.
func FilterByArea(events []Event, areaID area.Key) []Event {
	out := make([]Event, 0)
	for _, ev := range events {
		if ev.HasArea && ev.AreaID == areaID {
			out = append(out, ev)
		}
	}
	return out
}

// FilterByAreas returns the events tagged with any of areaIDs. An empty
// areaIDs list matches nothing.
func FilterByAreas(events []Event, areaIDs []area.Key) []Event {
	out := make([]Event, 0)
	if len(areaIDs) == 0 {
		return out
	}
	want := make(map[area.Key]struct{}, len(areaIDs))
	for _, id := range areaIDs {
		want[id] = struct{}{}
	}
	for _, ev := range events {
		if !ev.HasArea {
			continue
		}
		if _, ok := want[ev.AreaID]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// GroupByArea buckets area-tagged events by area key. Events inside each
// bucket keep their original relative order.
func GroupByArea(events []Event) map[area.Key][]Event {
	groups := make(map[area.Key][]Event)
	for _, ev := range events {
		if ev.HasArea {
			groups[ev.AreaID] = append(groups[ev.AreaID], ev)
		}
	}
	return groups
}

// UniqueAreaIDs returns the distinct area keys present, ascending.
func UniqueAreaIDs(events []Event) []area.Key {
	seen := make(map[area.Key]struct{})
	out := make([]area.Key, 0)
	for _, ev := range events {
		if !ev.HasArea {
			continue
		}
		if _, ok := seen[ev.AreaID]; ok {
			continue
		}
		seen[ev.AreaID] = struct{}{}
		out = append(out, ev.AreaID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FilterByAreaAndTime returns the events in areaID whose timestamp lies in
// [startMs, endMs], bounds inclusive.
func FilterByAreaAndTime(events []Event, areaID area.Key, startMs, endMs int64) []Event {
	out := make([]Event, 0)
	for _, ev := range events {
		if ev.HasArea && ev.AreaID == areaID && ev.Timestamp >= startMs && ev.Timestamp <= endMs {
			out = append(out, ev)
		}
	}
	return out
}

// AreaStats aggregates the events of one area.
type AreaStats struct {
	AreaID        area.Key
	EventCount    int
	EarliestStamp int64
	LatestStamp   int64
}

// AreaStatistics returns one row per distinct area, ascending by area key.
func AreaStatistics(events []Event) []AreaStats {
	byArea := make(map[area.Key]*AreaStats)
	for _, ev := range events {
		if !ev.HasArea {
			continue
		}
		st, ok := byArea[ev.AreaID]
		if !ok {
			st = &AreaStats{AreaID: ev.AreaID, EarliestStamp: ev.Timestamp, LatestStamp: ev.Timestamp}
			byArea[ev.AreaID] = st
		}
		st.EventCount++
		if ev.Timestamp < st.EarliestStamp {
			st.EarliestStamp = ev.Timestamp
		}
		if ev.Timestamp > st.LatestStamp {
			st.LatestStamp = ev.Timestamp
		}
	}
	out := make([]AreaStats, 0, len(byArea))
	for _, st := range byArea {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaID < out[j].AreaID })
	return out
}

// FilterByPosition filters by a (depth, x, y) cell instead of a packed key.
func FilterByPosition(events []Event, depth, x, y int) ([]Event, error) {
	k, err := area.Encode(depth, x, y)
	if err != nil {
		return nil, err
	}
	return FilterByArea(events, k), nil
}

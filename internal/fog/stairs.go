package fog

import (
	"encoding/json"
	"sort"
)

// Stairs markers persist as "x,y,depth" strings, one set per direction,
// isolated per character+instance exactly like the revealed-area record.
type Stairs struct {
	Up   map[string]struct{}
	Down map[string]struct{}
}

// NewStairs returns an empty marker pair.
func NewStairs() Stairs {
	return Stairs{Up: make(map[string]struct{}), Down: make(map[string]struct{})}
}

type stairsEntry struct {
	Up   []string `json:"up"`
	Down []string `json:"down"`
}

type stairsEnvelope struct {
	Version   int                    `json:"version"`
	States    map[string]stairsEntry `json:"states"`
	UpdatedAt int64                  `json:"updated_at,omitempty"`
}

// SaveStairs persists the stairs markers for a character+instance.
func (s *Store) SaveStairs(characterID string, stairs Stairs, instanceID string) {
	env := stairsEnvelope{
		Version: s.version,
		States: map[string]stairsEntry{characterID: {
			Up:   sortedKeys(stairs.Up),
			Down: sortedKeys(stairs.Down),
		}},
		UpdatedAt: s.now(),
	}
	s.write(s.stairsKey(characterID, instanceID), env)
}

// LoadStairs returns the stored stairs markers, empty on any of the usual
// storage-malformation conditions.
func (s *Store) LoadStairs(characterID, instanceID string) Stairs {
	key := s.stairsKey(characterID, instanceID)
	stairs := NewStairs()

	raw, ok := s.kv.Get(key)
	if !ok {
		return stairs
	}
	var env stairsEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.warnf("[fog] %s: corrupt stairs payload, discarding: %v", key, err)
		s.kv.Delete(key)
		return stairs
	}
	if env.Version != s.version {
		s.warnf("[fog] %s: stairs schema version %d != %d, discarding", key, env.Version, s.version)
		s.kv.Delete(key)
		return stairs
	}
	entry := env.States[characterID]
	for _, c := range entry.Up {
		stairs.Up[c] = struct{}{}
	}
	for _, c := range entry.Down {
		stairs.Down[c] = struct{}{}
	}
	return stairs
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

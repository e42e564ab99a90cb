// Package fog persists the per-character, per-world-instance record of
// explored cells (the minimap's fog of war).
//
// Records live in an external string-keyed medium behind the kv.Store
// interface. Persistence is best-effort: corrupt or version-mismatched
// payloads read as empty and are deleted, and a quota-exhausted write triggers
// one oldest-half eviction pass before giving up. Reveal is read-modify-write
// and not atomic across concurrent writers to the same record;
// last-writer-wins is accepted.
package fog

import (
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/persistence/kv"
)

const (
	// DefaultPrefix namespaces this store's keys in the shared medium.
	// Callers scope per wallet by folding the wallet id into the prefix.
	DefaultPrefix = "fog"

	// SchemaVersion tags stored payloads. A bump discards all prior data for
	// a key on next load; there is no migration path.
	SchemaVersion = 1

	// DefaultMaxAreas caps the revealed-cell count of one record. The world
	// is 51 cells per axis on 51 floors, so the default never trims a
	// legitimate record.
	DefaultMaxAreas = WorldAxisCells * WorldAxisCells * WorldAxisCells

	// WorldAxisCells is the fixed world bound: coordinates run 0-50.
	WorldAxisCells = 51

	// defaultInstance keys single-instance deployments that predate
	// world-instance scoping.
	defaultInstance = "default"
)

// Options configures a Store. Zero values take the defaults above.
type Options struct {
	Prefix   string
	Version  int
	MaxAreas int
}

// Store reads and writes exploration records.
type Store struct {
	kv       kv.Store
	prefix   string
	version  int
	maxAreas int
	log      *log.Logger

	now func() int64
}

// New returns a Store over the given medium.
func New(medium kv.Store, opts Options, logger *log.Logger) *Store {
	s := &Store{
		kv:       medium,
		prefix:   opts.Prefix,
		version:  opts.Version,
		maxAreas: opts.MaxAreas,
		log:      logger,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.version == 0 {
		s.version = SchemaVersion
	}
	if s.maxAreas == 0 {
		s.maxAreas = DefaultMaxAreas
	}
	return s
}

// envelope is the stored payload shape. Area keys serialize as decimal
// strings so values never pass through a lossy JSON number.
type envelope struct {
	Version   int                 `json:"version"`
	States    map[string][]string `json:"states"`
	UpdatedAt int64               `json:"updated_at,omitempty"`
}

// normalizeInstance lower-cases a world-instance (contract) address and maps
// a missing one to the fixed single-instance segment.
func normalizeInstance(instanceID string) string {
	if instanceID == "" {
		return defaultInstance
	}
	return strings.ToLower(instanceID)
}

func (s *Store) recordKey(characterID, instanceID string) string {
	return s.prefix + ":" + normalizeInstance(instanceID) + ":" + characterID
}

func (s *Store) stairsKey(characterID, instanceID string) string {
	return s.prefix + ":stairs:" + normalizeInstance(instanceID) + ":" + characterID
}

// Load returns the revealed-area set for a character+instance. Absent,
// malformed and version-mismatched payloads all read as empty; the two
// latter also delete the offending key so it cannot resurface.
func (s *Store) Load(characterID, instanceID string) *Set {
	key := s.recordKey(characterID, instanceID)
	set := NewSet()

	raw, ok := s.kv.Get(key)
	if !ok {
		return set
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.warnf("[fog] %s: corrupt payload, discarding: %v", key, err)
		s.kv.Delete(key)
		return set
	}
	if env.Version != s.version {
		s.warnf("[fog] %s: schema version %d != %d, discarding", key, env.Version, s.version)
		s.kv.Delete(key)
		return set
	}
	for _, str := range env.States[characterID] {
		k, err := area.ParseKey(str)
		if err != nil {
			s.warnf("[fog] %s: bad area key %q skipped", key, str)
			continue
		}
		set.Add(k)
	}
	return set
}

// Save persists the revealed-area set for a character+instance.
func (s *Store) Save(characterID string, revealed *Set, instanceID string) {
	if revealed.Len() > s.maxAreas {
		over := revealed.Len() - s.maxAreas
		s.warnf("[fog] %s: %d cells over cap, trimming oldest %d", s.recordKey(characterID, instanceID), revealed.Len(), over)
		revealed.dropOldest(over)
	}
	keys := revealed.Keys()
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	env := envelope{
		Version:   s.version,
		States:    map[string][]string{characterID: strs},
		UpdatedAt: s.now(),
	}
	s.write(s.recordKey(characterID, instanceID), env)
}

// Reveal marks one cell explored and returns the resulting set. Revealing an
// already-revealed cell performs no write.
func (s *Store) Reveal(characterID string, areaID area.Key, instanceID string) *Set {
	set := s.Load(characterID, instanceID)
	if !set.Add(areaID) {
		return set
	}
	s.Save(characterID, set, instanceID)
	return set
}

// IsRevealed reports whether the character has explored the cell.
func (s *Store) IsRevealed(characterID string, areaID area.Key, instanceID string) bool {
	return s.Load(characterID, instanceID).Has(areaID)
}

// Clear wipes the character's exploration and stairs records for one
// instance. Other characters and other instances are untouched.
func (s *Store) Clear(characterID, instanceID string) {
	s.kv.Delete(s.recordKey(characterID, instanceID))
	s.kv.Delete(s.stairsKey(characterID, instanceID))
}

// write marshals and stores an envelope, running the quota-eviction retry on
// an exhausted medium. A second failure drops the write with a logged error;
// the caller's in-memory result still reflects the intended state.
func (s *Store) write(key string, env any) {
	b, err := json.Marshal(env)
	if err != nil {
		s.warnf("[fog] %s: marshal: %v", key, err)
		return
	}
	err = s.kv.Set(key, string(b))
	if err == nil {
		return
	}
	if !errors.Is(err, kv.ErrQuotaExceeded) {
		s.warnf("[fog] %s: write failed: %v", key, err)
		return
	}
	s.evictOldestHalf()
	if err := s.kv.Set(key, string(b)); err != nil {
		s.warnf("[fog] %s: write failed after eviction, data lost: %v", key, err)
	}
}

// evictOldestHalf deletes the older half of every record under this store's
// prefix, across all characters and instances. Age comes from the envelope's
// updated_at stamp; unreadable payloads count as oldest.
func (s *Store) evictOldestHalf() {
	keys := s.kv.Keys(s.prefix + ":")
	if len(keys) == 0 {
		return
	}
	type aged struct {
		key string
		at  int64
	}
	entries := make([]aged, 0, len(keys))
	for _, k := range keys {
		var at int64
		if raw, ok := s.kv.Get(k); ok {
			var probe struct {
				UpdatedAt int64 `json:"updated_at"`
			}
			if err := json.Unmarshal([]byte(raw), &probe); err == nil {
				at = probe.UpdatedAt
			}
		}
		entries = append(entries, aged{key: k, at: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at != entries[j].at {
			return entries[i].at < entries[j].at
		}
		return entries[i].key < entries[j].key
	})
	n := (len(entries) + 1) / 2
	for _, e := range entries[:n] {
		s.warnf("[fog] quota eviction: dropping %s", e.key)
		s.kv.Delete(e.key)
	}
}

func (s *Store) warnf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

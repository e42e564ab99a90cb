package fog

import (
	"encoding/json"
	"strings"
	"testing"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/persistence/kv"
)

// countingStore wraps the in-memory medium and counts writes.
type countingStore struct {
	*kv.Mem
	sets int
}

func (c *countingStore) Set(key, value string) error {
	c.sets++
	return c.Mem.Set(key, value)
}

func newTestStore(t *testing.T) (*Store, *kv.Mem) {
	t.Helper()
	mem := kv.NewMem(0)
	return New(mem, Options{}, nil), mem
}

func key(t *testing.T, depth, x, y int) area.Key {
	t.Helper()
	k, err := area.Encode(depth, x, y)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return k
}

func TestReveal_Monotonic(t *testing.T) {
	s, _ := newTestStore(t)
	keys := []area.Key{key(t, 1, 1, 1), key(t, 1, 2, 1), key(t, 2, 0, 0)}
	for i, k := range keys {
		s.Reveal("c1", k, "")
		for _, prev := range keys[:i+1] {
			if !s.IsRevealed("c1", prev, "") {
				t.Fatalf("after revealing %v, %v no longer revealed", k, prev)
			}
		}
	}
	s.Clear("c1", "")
	for _, k := range keys {
		if s.IsRevealed("c1", k, "") {
			t.Fatalf("%v still revealed after clear", k)
		}
	}
}

func TestReveal_IdempotentNoSecondWrite(t *testing.T) {
	cs := &countingStore{Mem: kv.NewMem(0)}
	s := New(cs, Options{}, nil)
	k := key(t, 1, 5, 5)

	s.Reveal("c1", k, "")
	writes := cs.sets
	set := s.Reveal("c1", k, "")
	if cs.sets != writes {
		t.Fatalf("second reveal wrote (%d -> %d sets)", writes, cs.sets)
	}
	if set.Len() != 1 {
		t.Fatalf("set len=%d want 1", set.Len())
	}
}

func TestInstanceIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	k := key(t, 1, 1, 1)

	s.Reveal("c1", k, "0xAAA")
	if s.IsRevealed("c1", k, "0xBBB") {
		t.Fatalf("instance 0xBBB sees 0xAAA's data")
	}
	if !s.IsRevealed("c1", k, "0xAAA") {
		t.Fatalf("instance 0xAAA lost its own data")
	}

	// Instance ids are case-insensitive.
	if !s.IsRevealed("c1", k, "0xaaa") {
		t.Fatalf("instance id should normalize case")
	}

	s.Reveal("c1", k, "0xBBB")
	s.Clear("c1", "0xBBB")
	if s.IsRevealed("c1", k, "0xBBB") {
		t.Fatalf("0xBBB survived its own clear")
	}
	if !s.IsRevealed("c1", k, "0xAAA") {
		t.Fatalf("clear of 0xBBB wiped 0xAAA")
	}
}

func TestCharacterIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	k := key(t, 1, 1, 1)
	s.Reveal("c1", k, "")
	if s.IsRevealed("c2", k, "") {
		t.Fatalf("c2 sees c1's data")
	}
	s.Clear("c2", "")
	if !s.IsRevealed("c1", k, "") {
		t.Fatalf("clear of c2 wiped c1")
	}
}

func TestDefaultInstanceSegment(t *testing.T) {
	s, mem := newTestStore(t)
	s.Reveal("c1", key(t, 1, 1, 1), "")
	if _, ok := mem.Get("fog:default:c1"); !ok {
		t.Fatalf("missing instance should map to the default segment; keys=%v", mem.Keys(""))
	}
}

func TestLoad_CorruptPayloadReadsEmptyAndDeletes(t *testing.T) {
	s, mem := newTestStore(t)
	if err := mem.Set("fog:default:c1", "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if set := s.Load("c1", ""); set.Len() != 0 {
		t.Fatalf("corrupt payload read %d cells", set.Len())
	}
	if _, ok := mem.Get("fog:default:c1"); ok {
		t.Fatalf("corrupt key not deleted")
	}
	// Subsequent calls behave like a fresh record.
	set := s.Reveal("c1", key(t, 1, 1, 1), "")
	if set.Len() != 1 {
		t.Fatalf("reveal after corruption: len=%d", set.Len())
	}
}

func TestLoad_VersionMismatchDiscards(t *testing.T) {
	s, mem := newTestStore(t)
	b, _ := json.Marshal(envelope{Version: 99, States: map[string][]string{"c1": {"330241"}}})
	if err := mem.Set("fog:default:c1", string(b)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if set := s.Load("c1", ""); set.Len() != 0 {
		t.Fatalf("version mismatch read %d cells", set.Len())
	}
	if _, ok := mem.Get("fog:default:c1"); ok {
		t.Fatalf("stale key not deleted")
	}
}

func TestLoad_MissingCharacterEntryReadsEmpty(t *testing.T) {
	s, mem := newTestStore(t)
	b, _ := json.Marshal(envelope{Version: SchemaVersion, States: map[string][]string{"other": {"1"}}})
	_ = mem.Set("fog:default:c1", string(b))
	if set := s.Load("c1", ""); set.Len() != 0 {
		t.Fatalf("read %d cells from foreign entry", set.Len())
	}
}

func TestLoad_SkipsBadAreaStrings(t *testing.T) {
	s, mem := newTestStore(t)
	b, _ := json.Marshal(envelope{Version: SchemaVersion, States: map[string][]string{"c1": {"330241", "bogus", "-3"}}})
	_ = mem.Set("fog:default:c1", string(b))
	set := s.Load("c1", "")
	if set.Len() != 1 || !set.Has(330241) {
		t.Fatalf("set=%v", set.Keys())
	}
}

func TestSave_SerializesDecimalStrings(t *testing.T) {
	s, mem := newTestStore(t)
	s.Reveal("c1", 330241, "")
	raw, ok := mem.Get("fog:default:c1")
	if !ok {
		t.Fatalf("record missing")
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if env.Version != SchemaVersion {
		t.Fatalf("version=%d", env.Version)
	}
	got := env.States["c1"]
	if len(got) != 1 || got[0] != "330241" {
		t.Fatalf("states=%v", got)
	}
}

func TestSave_TrimsOldestOverCap(t *testing.T) {
	mem := kv.NewMem(0)
	s := New(mem, Options{MaxAreas: 2}, nil)
	s.Reveal("c1", key(t, 1, 1, 1), "")
	s.Reveal("c1", key(t, 1, 2, 1), "")
	s.Reveal("c1", key(t, 1, 3, 1), "")

	set := s.Load("c1", "")
	if set.Len() != 2 {
		t.Fatalf("len=%d want 2", set.Len())
	}
	if set.Has(key(t, 1, 1, 1)) {
		t.Fatalf("oldest cell survived the cap")
	}
	if !set.Has(key(t, 1, 3, 1)) {
		t.Fatalf("newest cell missing")
	}
}

func TestWrite_QuotaEvictsOldestHalfAndRetries(t *testing.T) {
	// Each record takes 68 bytes here; three fit, the fourth trips the quota.
	mem := kv.NewMem(220)
	s := New(mem, Options{}, nil)
	var tick int64
	s.now = func() int64 { tick++; return tick }

	s.Reveal("c1", key(t, 1, 1, 1), "")
	s.Reveal("c2", key(t, 1, 1, 1), "")
	s.Reveal("c3", key(t, 1, 1, 1), "")
	s.Reveal("c4", key(t, 1, 1, 1), "")

	// The oldest records went first and the newest write landed.
	if !s.IsRevealed("c4", key(t, 1, 1, 1), "") {
		t.Fatalf("triggering write lost after eviction")
	}
	if s.IsRevealed("c1", key(t, 1, 1, 1), "") {
		t.Fatalf("oldest record survived eviction")
	}
	if mem.Len() >= 4 {
		t.Fatalf("nothing evicted: %d keys", mem.Len())
	}
}

func TestWrite_SecondQuotaFailureIsNonFatal(t *testing.T) {
	mem := kv.NewMem(10) // nothing fits, even after eviction
	s := New(mem, Options{}, nil)
	set := s.Reveal("c1", key(t, 1, 1, 1), "")
	// The in-memory result still reflects the intended state.
	if !set.Has(key(t, 1, 1, 1)) {
		t.Fatalf("returned set missing revealed cell")
	}
	if mem.Len() != 0 {
		t.Fatalf("unexpected persisted keys: %v", mem.Keys(""))
	}
}

func TestPrefixIsolation(t *testing.T) {
	mem := kv.NewMem(0)
	walletA := New(mem, Options{Prefix: "fog:0xw1"}, nil)
	walletB := New(mem, Options{Prefix: "fog:0xw2"}, nil)
	k := key(t, 1, 1, 1)

	walletA.Reveal("c1", k, "")
	if walletB.IsRevealed("c1", k, "") {
		t.Fatalf("wallet prefixes share storage")
	}
	for _, stored := range mem.Keys("") {
		if !strings.HasPrefix(stored, "fog:0xw1:") {
			t.Fatalf("unexpected key %q", stored)
		}
	}
}

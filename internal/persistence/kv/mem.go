package kv

import "strings"

// Mem is an in-memory Store with an optional byte quota. It backs unit tests
// and the embedded single-process mode.
type Mem struct {
	// MaxBytes caps the total size of stored keys+values; zero means no cap.
	MaxBytes int

	m    map[string]string
	used int
}

// NewMem returns an empty in-memory store.
func NewMem(maxBytes int) *Mem {
	return &Mem{MaxBytes: maxBytes, m: make(map[string]string)}
}

func (s *Mem) Get(key string) (string, bool) {
	v, ok := s.m[key]
	return v, ok
}

func (s *Mem) Set(key, value string) error {
	next := s.used + len(key) + len(value)
	if old, ok := s.m[key]; ok {
		next -= len(key) + len(old)
	}
	if s.MaxBytes > 0 && next > s.MaxBytes {
		return ErrQuotaExceeded
	}
	s.m[key] = value
	s.used = next
	return nil
}

func (s *Mem) Delete(key string) {
	if old, ok := s.m[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.m, key)
	}
}

func (s *Mem) Keys(prefix string) []string {
	out := make([]string, 0)
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Len reports the number of stored keys.
func (s *Mem) Len() int { return len(s.m) }

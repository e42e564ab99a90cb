package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{
		ErrProtoBadRequest,
		ErrBadBatch,
		ErrSchemaInvalid,
		ErrBadRequest,
		ErrBadCoordinate,
		ErrNoCharacter,
		ErrInternal,
	} {
		if !IsKnownCode(code) {
			t.Fatalf("code %q should be known", code)
		}
	}
	// Empty means "no error code" and is accepted.
	if !IsKnownCode("") {
		t.Fatalf("empty code should be accepted")
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatalf("unknown code accepted")
	}
}

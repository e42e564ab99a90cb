package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Ingest layer.
	ErrBadBatch      = "E_BAD_BATCH"
	ErrSchemaInvalid = "E_SCHEMA_INVALID"

	// Watch/session layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrBadCoordinate = "E_BAD_COORDINATE"
	ErrNoCharacter   = "E_NO_CHARACTER"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadBatch:        {},
	ErrSchemaInvalid:   {},
	ErrBadRequest:      {},
	ErrBadCoordinate:   {},
	ErrNoCharacter:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

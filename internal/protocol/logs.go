package protocol

// LogType is the numeric record-type enum carried by on-chain game logs.
type LogType uint8

const (
	LogCombat           LogType = 0
	LogInstigatedCombat LogType = 1
	LogChat             LogType = 2
	LogEnteredArea      LogType = 3
	LogLeftArea         LogType = 4
	LogAbility          LogType = 5
	LogAscend           LogType = 6
)

// String names known log types; unknown values keep their numeric form for
// diagnostics.
func (t LogType) String() string {
	switch t {
	case LogCombat:
		return "COMBAT"
	case LogInstigatedCombat:
		return "INSTIGATED_COMBAT"
	case LogChat:
		return "CHAT"
	case LogEnteredArea:
		return "ENTERED_AREA"
	case LogLeftArea:
		return "LEFT_AREA"
	case LogAbility:
		return "ABILITY"
	case LogAscend:
		return "ASCEND"
	}
	return "UNKNOWN"
}

// RawLogRecord is one compact on-chain log record as supplied by the network
// collaborator. Records carry no timestamp of their own; only the containing
// batch's block number does.
type RawLogRecord struct {
	LogType               LogType `json:"logType"`
	Index                 uint64  `json:"index"`
	MainParticipantIndex  int     `json:"mainParticipantIndex"`
	OtherParticipantIndex int     `json:"otherParticipantIndex"`
	Hit                   bool    `json:"hit"`
	Critical              bool    `json:"critical"`
	DamageDone            int     `json:"damageDone"`
	HealthHealed          int     `json:"healthHealed"`
	TargetDied            bool    `json:"targetDied"`
	LootedWeaponID        int     `json:"lootedWeaponId"`
	LootedArmorID         int     `json:"lootedArmorId"`
	Experience            int     `json:"experience"`
	Value                 uint64  `json:"value"`
}

// LogBatch groups the log records and chat strings of one block. Chat strings
// pair positionally with Chat-typed records in the order both appear.
type LogBatch struct {
	BlockNumber uint64         `json:"blockNumber"`
	Logs        []RawLogRecord `json:"logs"`
	ChatStrings []string       `json:"chatStrings"`
}

// Participant is one entry of an identity lookup table. Index 0 means
// "no participant".
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// IngestRequest is the body of POST /v1/batches: one poll's worth of batches
// plus the identity tables and reference time pair for that poll.
type IngestRequest struct {
	ReferenceBlock       uint64        `json:"reference_block"`
	ReferenceTimestampMs int64         `json:"reference_timestamp_ms"`
	Batches              []LogBatch    `json:"batches"`
	Combatants           []Participant `json:"combatants"`
	NonCombatants        []Participant `json:"noncombatants"`
}

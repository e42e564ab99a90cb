package protocol

// WATCH (client -> server): subscribe to one character's feed and map.
type WatchMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CharacterID     string `json:"character_id"`
	InstanceID      string `json:"instance_id,omitempty"`
	WalletID        string `json:"wallet_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	CharacterID     string `json:"character_id"`
	InstanceID      string `json:"instance_id"`
}

// FeedEvent is one decoded narrative event as sent to the UI.
type FeedEvent struct {
	LogIndex       uint64       `json:"log_index"`
	BlockNumber    uint64       `json:"block_number"`
	Timestamp      int64        `json:"timestamp_ms"`
	EventType      string       `json:"event_type"`
	Attacker       *Participant `json:"attacker,omitempty"`
	Defender       *Participant `json:"defender,omitempty"`
	AreaID         string       `json:"area_id,omitempty"`
	ActorInitiated bool         `json:"actor_initiated,omitempty"`
	DisplayText    string       `json:"display_text,omitempty"`
}

// FeedChat is one decoded chat message as sent to the UI.
type FeedChat struct {
	LogIndex    uint64      `json:"log_index"`
	BlockNumber uint64      `json:"block_number"`
	Timestamp   int64       `json:"timestamp_ms"`
	Sender      Participant `json:"sender"`
	Text        string      `json:"text"`
}

// FEED (server -> client): an ordered slice of new feed entries.
type FeedMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Events          []FeedEvent `json:"events"`
	Chats           []FeedChat  `json:"chats"`
}

// MAP (server -> client): fog-of-war snapshot for the minimap.
type MapMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	CharacterID     string   `json:"character_id"`
	InstanceID      string   `json:"instance_id"`
	Revealed        []string `json:"revealed"`
	StairsUp        []string `json:"stairs_up,omitempty"`
	StairsDown      []string `json:"stairs_down,omitempty"`
}

// REVEAL (client -> server): the player moved to a new cell.
type RevealMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Depth           int    `json:"depth"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

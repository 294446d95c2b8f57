package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	CatalogDigest   string `json:"catalog_digest"`
	BuildingCount   int    `json:"building_count"`
	Tier            int    `json:"tier"`
	MaxTier         int    `json:"max_tier"`
	Gold            int    `json:"gold"`
	BuildingMode    bool   `json:"building_mode"`
}

// CATALOG (server -> client): the building definitions, sent once after WELCOME.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`
	Digest          string      `json:"digest"`
	Data            interface{} `json:"data"`
}

// Loc addresses a construction area by host map and map event.
type Loc struct {
	MapID   int `json:"map_id"`
	EventID int `json:"event_id"`
}

// CMD (client -> server). Fields beyond Op are read per op.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Op              string `json:"op"`

	Loc        *Loc `json:"loc,omitempty"`
	MinTier    int  `json:"min_tier,omitempty"`
	BuildingID int  `json:"building_id,omitempty"`
	Quantity   int  `json:"quantity,omitempty"`
	Amount     int  `json:"amount,omitempty"`
	Tier       int  `json:"tier,omitempty"`
	Variable   int  `json:"variable,omitempty"`
	Value      int  `json:"value,omitempty"`
}

// RESULT (server -> client), one per CMD.
type ResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ID              string      `json:"id,omitempty"`
	Op              string      `json:"op"`
	OK              bool        `json:"ok"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

func OKResult(cmd CmdMsg, data interface{}) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: cmd.ID, Op: cmd.Op, OK: true, Data: data}
}

func ErrResult(cmd CmdMsg, code, message string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: cmd.ID, Op: cmd.Op, Code: code, Message: message}
}

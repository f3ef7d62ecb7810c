package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ActorName       string     `json:"actor_name"`
	Rank            string     `json:"rank,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ActorID         string         `json:"actor_id"`
	Rank            string         `json:"rank"`
	MaxBlocks       int            `json:"max_blocks"`
	Level           LevelParams    `json:"level"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Modes           []string       `json:"modes"`
	Brushes         []string       `json:"brushes"`
}

type LevelParams struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Length int    `json:"length"`
	Digest string `json:"digest"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	TuningDigest string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// FILL (client -> server). Args are the brush arguments; Mode may be
// given separately or as the last element of Args.
type FillMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id"`
	Pos             [3]int   `json:"pos"`
	Mode            string   `json:"mode,omitempty"`
	Args            []string `json:"args,omitempty"`
	Held            string   `json:"held,omitempty"`
}

// FILL_RESULT (server -> client)
type FillResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Accepted        bool   `json:"accepted"`
	OpID            string `json:"op_id,omitempty"`
	Status          string `json:"status,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Brush           string `json:"brush,omitempty"`
	Found           int    `json:"found"`
	Changed         int    `json:"changed"`
	Skipped         int    `json:"skipped"`
	Passes          int    `json:"passes,omitempty"`
	Min             [3]int `json:"min"`
	Max             [3]int `json:"max"`
	Notice          string `json:"notice,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// UNDO (client -> server)
type UndoMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
}

// UNDO_RESULT (server -> client)
type UndoResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Accepted        bool   `json:"accepted"`
	OpID            string `json:"op_id,omitempty"`
	Changed         int    `json:"changed"`
	Skipped         int    `json:"skipped"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// BLOCK_PATCH (server -> client): voxels changed by anyone's op.
type BlockPatchMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	LevelID         string      `json:"level_id"`
	Seq             uint64      `json:"seq"`
	Cells           []PatchCell `json:"cells"`
}

type PatchCell struct {
	Pos   [3]int `json:"pos"`
	Block uint8  `json:"block"`
	Ext   uint8  `json:"ext,omitempty"`
}

// ERROR (server -> client) for messages that cannot be answered in kind.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// Package protocol defines the wire message shapes exchanged with the relay.
package protocol

// Type values for the `type` field every frame carries.
const (
	TypeProtocolVersion = "protocol_version"
	TypeJoin            = "join"
	TypeSetBrailleInfo  = "set_braille_info"
	TypeChannelJoined   = "channel_joined"
	TypeCancel          = "cancel"
	TypeSpeak           = "speak"
	TypeTone            = "tone"
	TypeWave            = "wave"
	TypeKey             = "key"
)

const (
	ProtocolVersion     = 2
	ConnectionTypeValue = "master"
	BrailleDisplayName  = "noBraille"
	BrailleCellCount    = 0
)

// Envelope is the minimal shape used to discover a frame's type before
// unmarshaling the rest of its payload.
type Envelope struct {
	Type string `json:"type"`
}

// ProtocolVersionMsg is the first message sent after start().
type ProtocolVersionMsg struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// NewProtocolVersion builds the outbound protocol_version frame.
func NewProtocolVersion() ProtocolVersionMsg {
	return ProtocolVersionMsg{Type: TypeProtocolVersion, Version: ProtocolVersion}
}

// JoinMsg requests channel membership on the relay.
type JoinMsg struct {
	Type           string `json:"type"`
	Channel        string `json:"channel"`
	ConnectionType string `json:"connection_type"`
}

// NewJoin builds the outbound join frame for the given channel key.
func NewJoin(key string) JoinMsg {
	return JoinMsg{Type: TypeJoin, Channel: key, ConnectionType: ConnectionTypeValue}
}

// SetBrailleInfoMsg announces a null braille display, sent once handshake completes.
type SetBrailleInfoMsg struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	NumCells int    `json:"numCells"`
}

// NewSetBrailleInfo builds the outbound set_braille_info frame.
func NewSetBrailleInfo() SetBrailleInfoMsg {
	return SetBrailleInfoMsg{Type: TypeSetBrailleInfo, Name: BrailleDisplayName, NumCells: BrailleCellCount}
}

// KeyMsg reports a local key press or release to the peer.
type KeyMsg struct {
	Type     string `json:"type"`
	VKCode   uint32 `json:"vk_code"`
	Extended bool   `json:"extended"`
	Pressed  bool   `json:"pressed"`
	ScanCode uint16 `json:"scan_code"`
}

// NewKey builds an outbound key frame for one press/release edge.
func NewKey(vkCode uint32, scanCode uint16, extended, pressed bool) KeyMsg {
	return KeyMsg{
		Type:     TypeKey,
		VKCode:   vkCode,
		Extended: extended,
		Pressed:  pressed,
		ScanCode: scanCode,
	}
}

// SpeakMsg is the inbound speak request payload.
type SpeakMsg struct {
	Type     string        `json:"type"`
	Sequence []interface{} `json:"sequence"`
}

// ToneMsg is the inbound tone request payload.
type ToneMsg struct {
	Type   string `json:"type"`
	Hz     int    `json:"hz"`
	Length int    `json:"length"`
}

// WaveMsg is the inbound wave request payload.
type WaveMsg struct {
	Type     string `json:"type"`
	FileName string `json:"fileName"`
}

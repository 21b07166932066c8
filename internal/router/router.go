// Package router dispatches inbound relay frames to their handlers.
//
// Grounded on ConnectionManager::HandleIncomingMessage in
// original_source/src/ConnectionManager.cpp, generalized from one big
// if/else chain into a type-keyed dispatch table.
package router

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/relaykey/relaykey/internal/protocol"
)

// Sender enqueues one raw JSON payload (without trailing newline) for
// transmission. Implemented by the session engine.
type Sender interface {
	Send(payload []byte) bool
}

// HandshakeCompleter marks the session's handshake as finished. Implemented
// by the session engine.
type HandshakeCompleter interface {
	MarkHandshakeComplete()
}

// Speech is the opaque speech collaborator named in spec.md §1.
type Speech interface {
	Speak(text string, interrupt bool)
	Stop()
}

// Audio is the opaque audio collaborator named in spec.md §1.
type Audio interface {
	PlayTone(hz, lengthMS int)
	PlayWave(fileName string)
}

// Router parses and dispatches one inbound frame at a time.
type Router struct {
	sender    Sender
	completer HandshakeCompleter
	speech    Speech
	audio     Audio
	logger    *slog.Logger
}

// New constructs a Router with its collaborators.
func New(sender Sender, completer HandshakeCompleter, speech Speech, audio Audio, logger *slog.Logger) *Router {
	return &Router{sender: sender, completer: completer, speech: speech, audio: audio, logger: logger}
}

// SetSession wires the sender and handshake-completer collaborators after
// construction, for the supervisor's circular router<->session
// dependency: the session needs a Router at construction time, and the
// Router needs that same session as its Sender/HandshakeCompleter.
func (r *Router) SetSession(sender Sender, completer HandshakeCompleter) {
	r.sender = sender
	r.completer = completer
}

// Route parses raw as JSON and dispatches on its `type` field. Malformed
// frames are logged and dropped (spec.md §4.F); this never returns an
// error to the caller because a single bad frame must not interrupt the
// receive loop.
func (r *Router) Route(raw []byte) {
	var envelope protocol.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		r.logger.Warn("dropped malformed frame", "error", err.Error())
		return
	}

	switch envelope.Type {
	case protocol.TypeChannelJoined:
		r.handleChannelJoined()
	case protocol.TypeCancel:
		r.speech.Stop()
	case protocol.TypeSpeak:
		r.handleSpeak(raw)
	case protocol.TypeTone:
		r.handleTone(raw)
	case protocol.TypeWave:
		r.handleWave(raw)
	case protocol.TypeKey:
		// Remote-side echo; ignored by this client (spec.md §4.F).
	default:
		r.logger.Debug("dropped unknown frame type", "type", envelope.Type)
	}
}

func (r *Router) handleChannelJoined() {
	payload, err := json.Marshal(protocol.NewSetBrailleInfo())
	if err != nil {
		r.logger.Error("marshal set_braille_info failed", "error", err.Error())
		return
	}
	r.sender.Send(payload)
	r.completer.MarkHandshakeComplete()
	r.logger.Info("handshake complete")
}

func (r *Router) handleSpeak(raw []byte) {
	var msg protocol.SpeakMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("malformed speak frame", "error", err.Error())
		return
	}
	if msg.Sequence == nil {
		r.logger.Debug("speak frame missing sequence")
		return
	}

	var b strings.Builder
	for _, item := range msg.Sequence {
		text, ok := item.(string)
		if !ok {
			continue
		}
		b.WriteString(text)
		b.WriteByte(' ')
	}

	text := strings.TrimSuffix(b.String(), " ")
	if text == "" {
		return
	}
	r.speech.Speak(text, false)
}

func (r *Router) handleTone(raw []byte) {
	var msg protocol.ToneMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("malformed tone frame", "error", err.Error())
		return
	}
	r.audio.PlayTone(msg.Hz, msg.Length)
}

func (r *Router) handleWave(raw []byte) {
	var msg protocol.WaveMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("malformed wave frame", "error", err.Error())
		return
	}
	if strings.TrimSpace(msg.FileName) == "" {
		return
	}
	r.audio.PlayWave(msg.FileName)
}

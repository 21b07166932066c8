// Package forwarding implements the keyboard-forwarding state machine: a
// toggle chord arms/disarms local key capture, with a grace window after
// arming during which edges (including the chord's own modifier releases)
// are swallowed but neither tracked nor forwarded, and a guaranteed drain
// of every still-held key on disarm.
//
// Grounded on original_source/src/AppState.cpp/.h (g_sendingKeys,
// g_sendingKeysEnabledTime, g_releasingKeys, ToggleSendingKeys) and
// KeyboardHook.cpp's ProcessKeyEvent, which decides whether an edge is
// swallowed and forwarded, swallowed and dropped, or passed through.
package forwarding

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/relaykey/relaykey/internal/hook"
	"github.com/relaykey/relaykey/internal/keyboard"
	"github.com/relaykey/relaykey/internal/protocol"
)

const activationGrace = 500 * time.Millisecond

// Sender enqueues one outbound JSON payload. Implemented by the session
// engine.
type Sender interface {
	Send(payload []byte) bool
}

// Audio plays the arm/disarm cue tones.
type Audio interface {
	PlayTone(hz, lengthMS int)
}

// Controller owns the modifier ledger, pressed-key ledger, and activation
// timer behind one mutex, following the same mutex-guarded state
// discipline used throughout this codebase.
type Controller struct {
	mu sync.Mutex

	shortcut keyboard.ShortcutSpec
	mods     keyboard.ModifierState
	pressed  *keyboard.PressedSet

	active    bool
	since     time.Time
	releasing bool

	sender Sender
	audio  Audio
	logger *slog.Logger
}

// New constructs a Controller with the given toggle shortcut.
func New(shortcut keyboard.ShortcutSpec, sender Sender, audio Audio, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		shortcut: shortcut,
		pressed:  keyboard.NewPressedSet(),
		sender:   sender,
		audio:    audio,
		logger:   logger,
	}
}

// SetShortcut replaces the toggle chord.
func (c *Controller) SetShortcut(shortcut keyboard.ShortcutSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shortcut = shortcut
}

// SetSender wires the session as the frame sender after construction, for
// the supervisor's circular controller<->session dependency.
func (c *Controller) SetSender(sender Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = sender
}

// IsActive reports whether keys are currently being forwarded, i.e. the
// toggle fired and the 500ms grace window has elapsed.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSending()
}

func (c *Controller) isSending() bool {
	if !c.active {
		return false
	}
	return time.Since(c.since) >= activationGrace
}

// HandleKeyDown processes one key-down edge and reports whether the event
// should be swallowed (not passed to the rest of the OS).
func (c *Controller) HandleKeyDown(vkCode uint32, scanCode uint16, extended bool) (swallow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mods.Update(vkCode, true)

	if c.shortcut.Matches(vkCode, c.mods) {
		c.toggleLocked()
		c.mods.Reset()
		return true
	}

	if !c.active && !c.releasing {
		return false
	}
	if c.isSending() {
		c.pressed.Track(vkCode, scanCode, extended)
		c.sendKey(vkCode, scanCode, extended, true)
	}
	return true
}

// HandleKeyUp processes one key-up edge and reports whether the event
// should be swallowed.
func (c *Controller) HandleKeyUp(vkCode uint32, scanCode uint16, extended bool) (swallow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mods.Update(vkCode, false)

	if !c.active && !c.releasing {
		return false
	}
	if c.isSending() {
		c.pressed.Release(vkCode)
		c.sendKey(vkCode, scanCode, extended, false)
	}
	return true
}

// HandleEvent adapts one raw hook edge to HandleKeyDown/HandleKeyUp,
// matching hook.Handler's signature so a Controller can be installed
// directly as the platform hook's callback.
func (c *Controller) HandleEvent(ev hook.Event) (swallow bool) {
	if ev.Pressed {
		return c.HandleKeyDown(ev.VKCode, ev.ScanCode, ev.Extended)
	}
	return c.HandleKeyUp(ev.VKCode, ev.ScanCode, ev.Extended)
}

func (c *Controller) toggleLocked() {
	if c.active {
		c.drainLocked()
		c.active = false
		c.playTone(440, 100)
		c.logger.Info("keyboard forwarding disarmed")
		return
	}

	c.active = true
	c.since = time.Now()
	c.playTone(880, 100)
	c.logger.Info("keyboard forwarding armed")
}

// drainLocked releases every tracked key by emitting a release frame for
// it, then clears the ledger. Must be called with c.mu held.
func (c *Controller) drainLocked() {
	c.releasing = true
	for _, key := range c.pressed.All() {
		c.sendKey(key.VKCode, key.ScanCode, key.Extended, false)
	}
	c.pressed.Clear()
	c.releasing = false
}

// ForceRelease drains any held keys without a toggle cue, used when the
// connection drops or the process shuts down while forwarding is active
// (spec.md invariant I2: no key is left stuck held on the remote side).
func (c *Controller) ForceRelease() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active && c.pressed == nil {
		return
	}
	c.drainLocked()
	c.active = false
}

func (c *Controller) sendKey(vkCode uint32, scanCode uint16, extended, pressed bool) {
	if c.sender == nil {
		return
	}
	payload, err := json.Marshal(protocol.NewKey(vkCode, scanCode, extended, pressed))
	if err != nil {
		c.logger.Error("marshal key frame failed", "error", err.Error())
		return
	}
	c.sender.Send(payload)
}

func (c *Controller) playTone(hz, lengthMS int) {
	if c.audio == nil {
		return
	}
	c.audio.PlayTone(hz, lengthMS)
}

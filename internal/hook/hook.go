// Package hook captures raw keyboard edges from the OS, for the
// forwarding controller to classify and relay.
//
// Grounded on original_source/src/KeyboardHook.h/.cpp, whose Install,
// Uninstall, and RunMessageLoop bracket a low-level Windows keyboard hook;
// the POSIX branch of original_source/src/main.cpp never installs a hook
// at all, relying on connection polling instead. The platform split, and
// the pattern of a single Event struct handed synchronously to a Handler
// callback from inside the platform hook, are grounded on
// kidandcat-mousekeys/keyboard_hook.go and its per-OS implementations
// (keyboard_hook_windows.go, keyboard_hook_linux.go).
package hook

// Event is one raw key-down or key-up edge reported by the platform hook.
type Event struct {
	VKCode   uint32
	ScanCode uint16
	Extended bool
	Pressed  bool
}

// Handler classifies one edge and reports whether the OS should be
// stopped from seeing it, mirroring KeyboardHook::ProcessKeyEvent's
// return value (1 swallows, 0 passes the event to CallNextHookEx).
type Handler func(ev Event) (swallow bool)

// Hook captures keyboard edges until Stop is called. Start blocks,
// running the platform message loop, until Stop is called from another
// goroutine or the hook fails permanently.
type Hook interface {
	Start(handler Handler) error
	Stop() error
}

// Available reports whether this platform's hook can actually swallow key
// events (Windows's low-level hook can; the fallback cannot), used by the
// doctor and by the supervisor to decide whether to install the hook.
func Available() bool {
	return available
}

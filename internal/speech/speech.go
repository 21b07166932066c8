// Package speech wraps a platform text-to-speech command behind a small
// Initialize/Speak/Stop/Cleanup contract.
//
// Follows original_source/src/Speech.h/.cpp, which wraps the third-party
// SRAL engine behind the same four-call contract; SRAL has no equivalent
// in the Go ecosystem, so this speaks by shelling out to a platform TTS
// command (os/exec.CommandContext, one command per call, errors wrapped
// with the argv that produced them).
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// SpeakErr reports a failure invoking the platform speech command.
type SpeakErr struct {
	Argv []string
	Err  error
}

func (e *SpeakErr) Error() string {
	return fmt.Sprintf("speak %q: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *SpeakErr) Unwrap() error { return e.Err }

const speakTimeout = 10 * time.Second

// Backend speaks text through a platform TTS command. It degrades to a
// silent no-op when no such command is available, matching SRAL_Speak's
// best-effort behavior when no engine is installed.
type Backend struct {
	mu          sync.Mutex
	initialized bool
	enabled     bool
	logger      *slog.Logger

	speakArgv func(text string) []string

	current *exec.Cmd
}

// New constructs a Backend. logger defaults to slog.Default() when nil.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger, enabled: true, speakArgv: platformSpeakArgv}
}

// Initialize checks that a platform speech command resolves on PATH.
// Like Speech::Initialize, it is idempotent and cheap to call repeatedly.
func (b *Backend) Initialize() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return true
	}

	argv := b.speakArgv("")
	if len(argv) == 0 {
		b.logger.Warn("no speech command available for this platform")
		return false
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		b.logger.Warn("speech command not found", "command", argv[0])
		return false
	}

	b.initialized = true
	b.logger.Info("speech backend initialized", "command", argv[0])
	return true
}

// Cleanup stops any in-flight utterance and clears the initialized flag.
func (b *Backend) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killCurrentLocked()
	b.initialized = false
}

// IsInitialized reports whether Initialize has succeeded.
func (b *Backend) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// SetEnabled toggles speech output, used by the --no-speech flag.
func (b *Backend) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// IsEnabled reports the current enabled flag.
func (b *Backend) IsEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Speak utters text, optionally interrupting whatever is currently
// speaking. A no-op when uninitialized, disabled, or text is empty.
func (b *Backend) Speak(text string, interrupt bool) {
	b.mu.Lock()
	if !b.initialized || !b.enabled || text == "" {
		b.mu.Unlock()
		return
	}
	if interrupt {
		b.killCurrentLocked()
	}
	argv := b.speakArgv(text)
	b.mu.Unlock()

	if len(argv) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	b.mu.Lock()
	b.current = cmd
	b.mu.Unlock()

	if err := cmd.Start(); err != nil {
		cancel()
		b.logger.Error("speak failed to start", "error", (&SpeakErr{Argv: argv, Err: err}).Error())
		return
	}

	go func() {
		defer cancel()
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			b.logger.Debug("speak command exited with error", "error", err.Error())
		}
	}()
}

// Stop kills any in-flight utterance.
func (b *Backend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killCurrentLocked()
}

func (b *Backend) killCurrentLocked() {
	if b.current == nil || b.current.Process == nil {
		return
	}
	_ = b.current.Process.Kill()
	b.current = nil
}

// platformSpeakArgv returns the argv for speaking text on the running
// platform, or nil if none is known.
func platformSpeakArgv(text string) []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"say", text}
	case "windows":
		// PowerShell's System.Speech synthesizer stands in for SAPI; no
		// Go package in the example corpus wraps SAPI directly.
		script := fmt.Sprintf(
			"Add-Type -AssemblyName System.Speech; "+
				"(New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak(%q)",
			text,
		)
		return []string{"powershell", "-NoProfile", "-Command", script}
	default:
		return []string{"spd-say", "--", text}
	}
}

package speech

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBackend() *Backend {
	b := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.speakArgv = func(text string) []string { return []string{"echo", text} }
	return b
}

func TestInitializeRequiresResolvableCommand(t *testing.T) {
	b := newTestBackend()
	require.True(t, b.Initialize())
	require.True(t, b.IsInitialized())
}

func TestInitializeFailsWhenCommandMissing(t *testing.T) {
	b := newTestBackend()
	b.speakArgv = func(text string) []string { return []string{"definitely-not-a-real-command-xyz"} }
	require.False(t, b.Initialize())
	require.False(t, b.IsInitialized())
}

func TestSpeakNoopWhenUninitialized(t *testing.T) {
	b := newTestBackend()
	b.Speak("hello", false) // should not panic, should not start anything
	require.Nil(t, b.current)
}

func TestSpeakNoopWhenDisabled(t *testing.T) {
	b := newTestBackend()
	require.True(t, b.Initialize())
	b.SetEnabled(false)
	require.False(t, b.IsEnabled())
	b.Speak("hello", false)
	require.Nil(t, b.current)
}

func TestSpeakStartsCommand(t *testing.T) {
	b := newTestBackend()
	require.True(t, b.Initialize())
	b.Speak("hello world", false)

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.current != nil
	}, time.Second, 10*time.Millisecond)
}

func TestCleanupClearsInitializedFlag(t *testing.T) {
	b := newTestBackend()
	require.True(t, b.Initialize())
	b.Cleanup()
	require.False(t, b.IsInitialized())
}

func TestStopIsSafeWithNothingSpeaking(t *testing.T) {
	b := newTestBackend()
	require.True(t, b.Initialize())
	b.Stop() // should not panic
}

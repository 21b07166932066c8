package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseShortcutDefault(t *testing.T) {
	spec, err := ParseShortcut("ctrl+win+f11")
	require.NoError(t, err)
	require.Equal(t, DefaultShortcut(), spec)
}

func TestParseShortcutCaseInsensitiveAndSpaced(t *testing.T) {
	spec, err := ParseShortcut(" CTRL + Win + F11 ")
	require.NoError(t, err)
	require.Equal(t, DefaultShortcut(), spec)
}

func TestParseShortcutLetterAndDigitKeys(t *testing.T) {
	spec, err := ParseShortcut("alt+shift+o")
	require.NoError(t, err)
	require.True(t, spec.Alt)
	require.True(t, spec.Shift)
	require.Equal(t, uint32('O'), spec.Key)

	spec, err = ParseShortcut("ctrl+5")
	require.NoError(t, err)
	require.Equal(t, uint32('5'), spec.Key)
}

func TestParseShortcutNamedKey(t *testing.T) {
	spec, err := ParseShortcut("ctrl+space")
	require.NoError(t, err)
	require.Equal(t, uint32(VKSpace), spec.Key)
}

func TestParseShortcutRejectsUnknownKey(t *testing.T) {
	_, err := ParseShortcut("ctrl+win+notakey")
	require.Error(t, err)
}

func TestParseShortcutRejectsMissingKey(t *testing.T) {
	_, err := ParseShortcut("ctrl+win")
	require.Error(t, err)
}

func TestShortcutStringRoundTrips(t *testing.T) {
	spec := DefaultShortcut()
	reparsed, err := ParseShortcut(spec.String())
	require.NoError(t, err)
	require.Equal(t, spec, reparsed)
}

func TestShortcutMatchesRequiresExactModifiers(t *testing.T) {
	spec := DefaultShortcut()

	require.True(t, spec.Matches(spec.Key, ModifierState{Ctrl: true, Win: true}))
	require.False(t, spec.Matches(spec.Key, ModifierState{Ctrl: true, Win: true, Shift: true}))
	require.False(t, spec.Matches(spec.Key, ModifierState{Ctrl: true}))
	require.False(t, spec.Matches(VKEscape, ModifierState{Ctrl: true, Win: true}))
}

func TestModifierStateUpdateAndReset(t *testing.T) {
	var m ModifierState
	m.Update(VKLControl, true)
	m.Update(VKRWin, true)
	require.True(t, m.Ctrl)
	require.True(t, m.Win)

	m.Update(VKLControl, false)
	require.False(t, m.Ctrl)

	m.Reset()
	require.Equal(t, ModifierState{}, m)
}

func TestPressedSetTracksInsertionOrderAndIgnoresDuplicates(t *testing.T) {
	p := NewPressedSet()
	p.Track(1, 10, false)
	p.Track(2, 20, true)
	p.Track(1, 99, true) // duplicate vkCode: ignored

	all := p.All()
	require.Len(t, all, 2)
	require.Equal(t, uint32(1), all[0].VKCode)
	require.Equal(t, uint16(10), all[0].ScanCode)
	require.Equal(t, uint32(2), all[1].VKCode)
}

func TestPressedSetReleaseAndClear(t *testing.T) {
	p := NewPressedSet()
	p.Track(1, 10, false)
	p.Track(2, 20, false)
	p.Track(3, 30, false)

	p.Release(2)
	all := p.All()
	require.Len(t, all, 2)
	require.Equal(t, uint32(1), all[0].VKCode)
	require.Equal(t, uint32(3), all[1].VKCode)

	p.Release(99) // no-op
	require.Len(t, p.All(), 2)

	p.Clear()
	require.Empty(t, p.All())
}

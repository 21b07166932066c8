// Package audio plays tone cues and WAV files over the local PulseAudio
// server.
//
// Tone synthesis uses sine-plus-envelope generation over jfreymuth/pulse
// playback, generalized from a fixed set of named cues to arbitrary
// frequency/duration pairs as required by the wire protocol's tone
// messages. WAV loading follows original_source/src/Audio.cpp's PlayWave
// (the ordered search-path list and extension inference), with a reader
// for the canonical RIFF/WAVE PCM16 layout.
package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
)

const sampleRate = 16000

// SearchDirs lists directories checked, in order, for a bare wave file
// name, matching Audio::PlayWave's search list: the four fixed POSIX
// entries, plus "${ProgramFiles}/NVDA/waves" and
// "${ProgramFiles(x86)}/NVDA/waves" whenever those environment variables
// are set (normally only on Windows); the OS itself is not checked.
func SearchDirs() []string {
	dirs := []string{
		"sounds",
		"../../sounds",
		"../NVDARemote/addon/sounds",
		"../../NVDARemote/addon/sounds",
	}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		dirs = append(dirs, filepath.Join(pf, "NVDA", "waves"))
	}
	if pf86 := os.Getenv("ProgramFiles(x86)"); pf86 != "" {
		dirs = append(dirs, filepath.Join(pf86, "NVDA", "waves"))
	}
	return dirs
}

// PlaybackErr reports a failure producing or playing audio.
type PlaybackErr struct {
	Op  string
	Err error
}

func (e *PlaybackErr) Error() string { return fmt.Sprintf("audio %s: %v", e.Op, e.Err) }
func (e *PlaybackErr) Unwrap() error { return e.Err }

// Player plays tones and wave files through PulseAudio.
type Player struct {
	appName string
}

// New constructs a Player identified to PulseAudio as appName.
func New(appName string) *Player {
	return &Player{appName: appName}
}

// PlayTone synthesizes and plays a sine tone at hz for lengthMS
// milliseconds, with a short attack/release ramp to avoid clicks.
func (p *Player) PlayTone(hz, lengthMS int) {
	if hz <= 0 || lengthMS <= 0 {
		return
	}
	pcm := synthesizeTone(float64(hz), time.Duration(lengthMS)*time.Millisecond, 0.2)
	if err := p.playPCM(pcm, 1); err != nil {
		// Best-effort: a missing or unreachable audio server should not
		// interrupt keyboard forwarding.
		_ = err
	}
}

// PlayWave resolves fileName against the known sound directories (and
// infers a .wav extension when absent) and plays it. A no-op when the
// file cannot be found or decoded.
func (p *Player) PlayWave(fileName string) {
	path := resolveWavePath(fileName)
	if path == "" {
		return
	}
	pcm, channels, err := readWAV(path)
	if err != nil {
		return
	}
	_ = p.playPCM(pcm, channels)
}

func resolveWavePath(fileName string) string {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return ""
	}
	if filepath.Ext(fileName) == "" {
		fileName += ".wav"
	}
	if filepath.IsAbs(fileName) {
		if _, err := os.Stat(fileName); err == nil {
			return fileName
		}
		return ""
	}
	for _, dir := range SearchDirs() {
		candidate := filepath.Join(dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (p *Player) playPCM(pcm []int16, channels int) error {
	if len(pcm) == 0 {
		return nil
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(p.appName))
	if err != nil {
		return &PlaybackErr{Op: "connect", Err: err}
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(pcm) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, pcm[cursor:])
		cursor += n
		if cursor >= len(pcm) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(p.appName + " cue"),
	}
	if channels == 1 {
		opts = append(opts, pulse.PlaybackMono)
	} else {
		opts = append(opts, pulse.PlaybackStereo)
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		return &PlaybackErr{Op: "create stream", Err: err}
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return &PlaybackErr{Op: "play", Err: err}
	}
	return nil
}

// synthesizeTone renders a sine wave at hz for duration, with a short
// linear attack/release ramp, as int16 PCM at sampleRate.
func synthesizeTone(hz float64, duration time.Duration, volume float64) []int16 {
	n := int(math.Round(duration.Seconds() * sampleRate))
	if n <= 0 {
		return nil
	}

	ramp := n / 10
	maxRamp := sampleRate / 200 // 5ms
	if ramp > maxRamp {
		ramp = maxRamp
	}
	if ramp < 1 {
		ramp = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		releaseIndex := n - i - 1
		if releaseIndex < ramp {
			release := float64(releaseIndex) / float64(ramp)
			if release < envelope {
				envelope = release
			}
		}
		t := float64(i) / sampleRate
		sample := math.Sin(2 * math.Pi * hz * t)
		pcm[i] = int16(math.Round(sample * volume * envelope * 32767))
	}
	return pcm
}

package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorSplitsCompleteFrames(t *testing.T) {
	var acc Accumulator

	frames := acc.Feed([]byte("frame1\nframe2\r\nframe3\n"))
	require.Len(t, frames, 3)
	require.Equal(t, "frame1", string(frames[0]))
	require.Equal(t, "frame2", string(frames[1]))
	require.Equal(t, "frame3", string(frames[2]))
	require.Equal(t, 0, acc.Pending())
}

func TestAccumulatorBuffersPartialFrame(t *testing.T) {
	var acc Accumulator

	frames := acc.Feed([]byte("partial"))
	require.Empty(t, frames)
	require.Equal(t, 7, acc.Pending())

	frames = acc.Feed([]byte(" rest\n"))
	require.Len(t, frames, 1)
	require.Equal(t, "partial rest", string(frames[0]))
}

func TestAccumulatorSkipsEmptyLines(t *testing.T) {
	var acc Accumulator

	frames := acc.Feed([]byte("\n\nframe\n\n"))
	require.Len(t, frames, 1)
	require.Equal(t, "frame", string(frames[0]))
}

func TestAccumulatorAcrossMultipleFeeds(t *testing.T) {
	var acc Accumulator

	require.Empty(t, acc.Feed([]byte("frame1\nfra")))
	frames := acc.Feed([]byte("me2\n"))
	require.Len(t, frames, 1)
	require.Equal(t, "frame2", string(frames[0]))
}

func TestEncodeAppendsNewline(t *testing.T) {
	require.Equal(t, []byte("hello\n"), Encode([]byte("hello")))
}

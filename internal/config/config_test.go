package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHostBoundaries(t *testing.T) {
	require.NoError(t, ValidateHost("example.com"))
	require.Error(t, ValidateHost(""))
	require.NoError(t, ValidateHost(strings.Repeat("a", MaxHostLength)))
	require.Error(t, ValidateHost(strings.Repeat("a", MaxHostLength+1)))
	require.Error(t, ValidateHost("bad host"))
	require.Error(t, ValidateHost("bad\thost"))
}

func TestValidatePortBoundaries(t *testing.T) {
	require.Error(t, ValidatePort(0))
	require.NoError(t, ValidatePort(MinPort))
	require.NoError(t, ValidatePort(MaxPort))
	require.Error(t, ValidatePort(MaxPort+1))
}

func TestValidateKeyBoundaries(t *testing.T) {
	require.Error(t, ValidateKey(""))
	require.NoError(t, ValidateKey(strings.Repeat("k", MaxKeyLength)))
	require.Error(t, ValidateKey(strings.Repeat("k", MaxKeyLength+1)))
}

func TestValidateParamsChainsAllThree(t *testing.T) {
	require.NoError(t, ValidateParams(Params{Host: "h", Port: DefaultPort, Key: "k"}))
	require.Error(t, ValidateParams(Params{Host: "", Port: DefaultPort, Key: "k"}))
	require.Error(t, ValidateParams(Params{Host: "h", Port: 0, Key: "k"}))
	require.Error(t, ValidateParams(Params{Host: "h", Port: DefaultPort, Key: ""}))
}

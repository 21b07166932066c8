package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// DebugLevel selects how verbose the logger should be, set from -d/-v/-t.
// When several are given, the most detailed wins (trace over verbose over
// debug), whatever their order on the command line.
type DebugLevel int

const (
	// LevelQuiet is the default: no debug flag was given.
	LevelQuiet DebugLevel = iota
	LevelInfo
	LevelVerbose
	LevelTrace
)

// Options holds the parsed command-line arguments, before the
// has-connection-params / interactive-prompt decision in Resolve.
type Options struct {
	Host     string
	Port     int
	Key      string
	Shortcut string

	DebugLevel DebugLevel
	NoSpeech   bool
	Help       bool

	// HasConnectionParams is true once any of host/port/key/shortcut was
	// supplied on the command line, mirroring CommandLineArgs's field of
	// the same name: it gates whether missing host/key is an error versus
	// a cue to prompt interactively.
	HasConnectionParams bool
}

// Parse parses argv (excluding the program name) into Options. Unknown
// flags and invalid values are reported as errors rather than causing
// pflag to exit the process.
func Parse(argv []string) (Options, error) {
	fs := pflag.NewFlagSet("relaykey", pflag.ContinueOnError)
	fs.SetOutput(nullWriter{})

	host := fs.StringP("host", "h", "", "Server hostname or IP address")
	port := fs.IntP("port", "p", DefaultPort, "Server port")
	key := fs.StringP("key", "k", "", "Connection key/channel")
	shortcut := fs.StringP("shortcut", "s", "", "Toggle shortcut (default: ctrl+win+f11)")
	debug := fs.BoolP("debug", "d", false, "Enable debug logging (INFO level)")
	verbose := fs.BoolP("verbose", "v", false, "Enable verbose debug logging")
	trace := fs.BoolP("trace", "t", false, "Enable trace debug logging (most detailed)")
	noSpeech := fs.Bool("no-speech", false, "Disable speech synthesis")
	help := fs.Bool("help", false, "Show this help message")

	if err := fs.Parse(argv); err != nil {
		return Options{}, fmt.Errorf("parse arguments: %w", err)
	}

	opts := Options{
		Host:     *host,
		Port:     *port,
		Key:      *key,
		Shortcut: *shortcut,
		NoSpeech: *noSpeech,
		Help:     *help,
	}

	switch {
	case *trace:
		opts.DebugLevel = LevelTrace
	case *verbose:
		opts.DebugLevel = LevelVerbose
	case *debug:
		opts.DebugLevel = LevelInfo
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host", "port", "key", "shortcut":
			opts.HasConnectionParams = true
		}
	})

	if opts.HasConnectionParams {
		if opts.Host == "" {
			return opts, fmt.Errorf("host is required when using command line connection options")
		}
		if err := ValidateHost(opts.Host); err != nil {
			return opts, err
		}
		if opts.Key == "" {
			return opts, fmt.Errorf("connection key is required when using command line connection options")
		}
		if err := ValidateKey(opts.Key); err != nil {
			return opts, err
		}
		if err := ValidatePort(opts.Port); err != nil {
			return opts, err
		}
	}

	return opts, nil
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// HelpText renders usage text, grounded on original_source/src/main.cpp's
// printHelp.
func HelpText(binaryName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\n", AppName, AppDescription)
	fmt.Fprintf(&b, "Usage: %s [OPTIONS]\n", binaryName)
	fmt.Fprintf(&b, "       %s doctor [OPTIONS]\n", binaryName)
	fmt.Fprintf(&b, "       %s version\n\n", binaryName)
	b.WriteString("Commands:\n")
	b.WriteString("  doctor                Check configuration and connectivity without connecting\n")
	b.WriteString("  version               Print version information\n\n")
	b.WriteString("Connection Options:\n")
	b.WriteString("  -h, --host HOST       Server hostname or IP address\n")
	fmt.Fprintf(&b, "  -p, --port PORT       Server port (default: %d)\n", DefaultPort)
	b.WriteString("  -k, --key KEY         Connection key/channel\n")
	b.WriteString("  -s, --shortcut KEY    Set toggle shortcut (default: ctrl+win+f11)\n\n")
	b.WriteString("Debug Options:\n")
	b.WriteString("  -d, --debug           Enable debug logging (INFO level)\n")
	b.WriteString("  -v, --verbose         Enable verbose debug logging\n")
	b.WriteString("  -t, --trace           Enable trace debug logging (most detailed)\n\n")
	b.WriteString("Other Options:\n")
	b.WriteString("      --no-speech       Disable speech synthesis\n")
	b.WriteString("      --help            Show this help message\n\n")
	b.WriteString("Examples:\n")
	fmt.Fprintf(&b, "  %s -h example.com -k mykey\n", binaryName)
	fmt.Fprintf(&b, "  %s --host 192.168.1.100 --port %d --key shared_session\n", binaryName, DefaultPort)
	fmt.Fprintf(&b, "  %s --verbose --no-speech\n\n", binaryName)
	b.WriteString("Notes:\n")
	fmt.Fprintf(&b, "  - Host must be a valid hostname or IP address (max %d chars)\n", MaxHostLength)
	fmt.Fprintf(&b, "  - Port must be in range %d-%d\n", MinPort, MaxPort)
	fmt.Fprintf(&b, "  - Connection key must not exceed %d characters\n", MaxKeyLength)
	b.WriteString("  - On Windows, keyboard forwarding is available; elsewhere the client runs receive-only\n")
	return b.String()
}

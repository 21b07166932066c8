// Package doctor runs advisory readiness diagnostics for the configured
// connection, shortcut, audio search path, and platform hook.
//
// Each check is a self-contained Check/Report pair: connection
// reachability, shortcut validity, wave search path, and platform hook
// availability.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/relaykey/relaykey/internal/audio"
	"github.com/relaykey/relaykey/internal/config"
	"github.com/relaykey/relaykey/internal/hook"
	"github.com/relaykey/relaykey/internal/keyboard"
)

// termOutput detects the terminal's color profile once; termenv itself
// downgrades to plain text when stdout isn't a TTY, which is what keeps
// Report.String()'s output greppable in tests and log captures.
var termOutput = termenv.NewOutput(os.Stdout)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output, colorized green
// for passing checks and red for failing ones when stdout is a terminal.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		color := termOutput.Color("2")
		if !check.Pass {
			status = "FAIL"
			color = termOutput.Color("1")
		}
		line := fmt.Sprintf("[%s] %s: %s", status, check.Name, check.Message)
		b.WriteString(termOutput.String(line).Foreground(color).String())
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes shortcut/reachability/search-path/hook checks for params.
// It never establishes a forwarding session.
func Run(ctx context.Context, params config.Params) Report {
	checks := []Check{
		checkShortcut(params.Shortcut),
		checkReachable(ctx, params.Host, params.Port),
		checkWaveSearchPath(),
		checkHookAvailable(),
	}
	return Report{Checks: checks}
}

func checkShortcut(shortcut string) Check {
	if shortcut == "" {
		shortcut = keyboard.DefaultShortcut().String()
	}
	spec, err := keyboard.ParseShortcut(shortcut)
	if err != nil {
		return Check{Name: "shortcut", Pass: false, Message: err.Error()}
	}
	return Check{Name: "shortcut", Pass: true, Message: fmt.Sprintf("parses as %q", spec.String())}
}

func checkReachable(ctx context.Context, host string, port int) Check {
	if host == "" {
		return Check{Name: "reachability", Pass: false, Message: "no host configured"}
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return Check{Name: "reachability", Pass: false, Message: fmt.Sprintf("dial %s: %v", addr, err)}
	}
	_ = conn.Close()
	return Check{Name: "reachability", Pass: true, Message: fmt.Sprintf("%s is reachable", addr)}
}

func checkWaveSearchPath() Check {
	for _, dir := range audio.SearchDirs() {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return Check{Name: "wave_search_path", Pass: true, Message: fmt.Sprintf("found %s", dir)}
		}
	}
	return Check{Name: "wave_search_path", Pass: false, Message: "no sounds directory found on the search path"}
}

func checkHookAvailable() Check {
	if hook.Available() {
		return Check{Name: "keyboard_hook", Pass: true, Message: "low-level keyboard hook is available"}
	}
	return Check{Name: "keyboard_hook", Pass: false, Message: "no keyboard hook on this platform; running receive-only"}
}

package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Prompt reads connection parameters interactively when the command line
// supplied none, grounded on ConnectionManager::PromptForConnectionParams.
// Each read honors shutdown: the prompt returns early with an error as
// soon as shutdown is closed, the same guarantee
// GetLineWithShutdownCheck's polling loop gives the blocking-getline
// version it replaces.
type Prompt struct {
	in       *bufio.Scanner
	out      io.Writer
	shutdown <-chan struct{}
	lines    chan string
}

// NewPrompt constructs a Prompt over in/out. shutdown should be closed to
// abort any pending read.
func NewPrompt(in io.Reader, out io.Writer, shutdown <-chan struct{}) *Prompt {
	p := &Prompt{
		in:       bufio.NewScanner(in),
		out:      out,
		shutdown: shutdown,
		lines:    make(chan string),
	}
	go p.pump()
	return p
}

// pump feeds scanned lines to p.lines for the lifetime of the input
// stream; it is the Go equivalent of the original's non-blocking
// select()-gated stdin read, adapted to Go's blocking Scanner plus a
// unbuffered hand-off channel instead of a raw per-character poll.
func (p *Prompt) pump() {
	for p.in.Scan() {
		p.lines <- p.in.Text()
	}
	close(p.lines)
}

func (p *Prompt) readLine(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	select {
	case line, ok := <-p.lines:
		return line, ok
	case <-p.shutdown:
		return "", false
	}
}

// Params interactively collects host, port, key, and shortcut, retrying
// each field until it validates. Returns false if shutdown fires first.
func (p *Prompt) Params(defaultShortcut string) (Params, bool) {
	host, ok := p.requireField("Enter server host: ", ValidateHost)
	if !ok {
		return Params{}, false
	}

	port, ok := p.readPort()
	if !ok {
		return Params{}, false
	}

	key, ok := p.requireField("Enter connection key: ", ValidateKey)
	if !ok {
		return Params{}, false
	}

	shortcut, ok := p.readLine(fmt.Sprintf("Enter toggle shortcut [%s]: ", defaultShortcut))
	if !ok {
		return Params{}, false
	}
	shortcut = TrimWhitespace(shortcut)
	if shortcut == "" {
		shortcut = defaultShortcut
	}

	return Params{Host: host, Port: port, Key: key, Shortcut: shortcut}, true
}

func (p *Prompt) requireField(label string, validate func(string) error) (string, bool) {
	for {
		line, ok := p.readLine(label)
		if !ok {
			return "", false
		}
		value := TrimWhitespace(line)
		if err := validate(value); err != nil {
			fmt.Fprintf(p.out, "Error: %s\n\n", err.Error())
			continue
		}
		return value, true
	}
}

func (p *Prompt) readPort() (int, bool) {
	label := fmt.Sprintf("Enter server port [%d]: ", DefaultPort)
	for {
		line, ok := p.readLine(label)
		if !ok {
			return 0, false
		}
		value := TrimWhitespace(line)
		if value == "" {
			return DefaultPort, true
		}
		port, err := strconv.Atoi(value)
		if err != nil {
			fmt.Fprintf(p.out, "Error: %s\n\n", (&ConfigErr{Field: "port", Value: value, Msg: "must be a number"}).Error())
			continue
		}
		if err := ValidatePort(port); err != nil {
			fmt.Fprintf(p.out, "Error: %s\n\n", err.Error())
			continue
		}
		return port, true
	}
}

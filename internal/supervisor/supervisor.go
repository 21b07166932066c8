// Package supervisor drives the process lifecycle: parse arguments or
// prompt interactively, construct the session and its collaborators, and
// run the connect/handshake/forward/reconnect loop until shutdown.
//
// Follows a Runner{Stdout,Stderr,Logger}/Execute(ctx,args) int contract,
// with logging configured before config is dispatched. The reconnect loop
// follows original_source/src/main.cpp's control flow (2s sleep after a
// dropped connection, 5s between reconnect attempts, the Windows
// hook-install/message-loop/hook-uninstall cycle versus the POSIX
// connection-polling loop).
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/relaykey/relaykey/internal/audio"
	"github.com/relaykey/relaykey/internal/config"
	"github.com/relaykey/relaykey/internal/doctor"
	"github.com/relaykey/relaykey/internal/forwarding"
	"github.com/relaykey/relaykey/internal/hook"
	"github.com/relaykey/relaykey/internal/keyboard"
	"github.com/relaykey/relaykey/internal/logging"
	"github.com/relaykey/relaykey/internal/router"
	"github.com/relaykey/relaykey/internal/session"
	"github.com/relaykey/relaykey/internal/speech"
	"github.com/relaykey/relaykey/internal/transport"
	"github.com/relaykey/relaykey/internal/version"
)

const (
	reconnectInitialDelay = 2 * time.Second
	reconnectRetryDelay   = 5 * time.Second
	hookPollInterval      = 100 * time.Millisecond
)

// Runner bundles the process's output streams and an optional override
// logger, letting tests capture output and inject a logger without
// touching package state.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute constructs a Runner over stdout/stderr and runs it.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	if len(args) > 0 && args[0] == "doctor" {
		return RunDoctor(ctx, r.Stdout, r.Stderr, args[1:])
	}
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	opts, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, config.HelpText(config.AppName))
		return 1
	}

	if opts.Help {
		fmt.Fprint(r.Stdout, config.HelpText(config.AppName))
		return 0
	}

	logRuntime, err := logging.New(logLevelFor(opts.DebugLevel))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	params, ok := r.resolveParams(ctx, opts)
	if !ok {
		if ctx.Err() != nil {
			return 0
		}
		fmt.Fprintln(r.Stderr, "error: no connection parameters given")
		return 1
	}

	shortcut := keyboard.DefaultShortcut()
	if params.Shortcut != "" {
		parsed, err := keyboard.ParseShortcut(params.Shortcut)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		shortcut = parsed
	}

	speechBackend := speech.New(logger)
	if !opts.NoSpeech {
		if !speechBackend.Initialize() {
			logger.Warn("speech initialization failed, continuing without speech")
		}
	}
	speechBackend.SetEnabled(!opts.NoSpeech)
	defer speechBackend.Cleanup()

	audioPlayer := audio.New(config.AppName)
	forwarder := forwarding.New(shortcut, nil, audioPlayer, logger)

	msgRouter := router.New(nil, nil, speechBackend, audioPlayer, logger)
	sess := session.New(msgRouter, logger, nil)

	msgRouter.SetSession(sess, sess)
	forwarder.SetSender(sess)

	return r.run(ctx, sess, forwarder, params, logger, opts.HasConnectionParams)
}

// resolveParams returns command-line connection params when any were
// given, otherwise prompts for them interactively.
func (r Runner) resolveParams(ctx context.Context, opts config.Options) (config.Params, bool) {
	if opts.HasConnectionParams {
		return config.Params{
			Host:     opts.Host,
			Port:     opts.Port,
			Key:      opts.Key,
			Shortcut: opts.Shortcut,
		}, true
	}

	prompt := config.NewPrompt(os.Stdin, r.Stdout, ctx.Done())
	return prompt.Params(keyboard.DefaultShortcut().String())
}

func (r Runner) run(
	ctx context.Context,
	sess *session.Session,
	forwarder *forwarding.Controller,
	params config.Params,
	logger *slog.Logger,
	fatalOnFirstFailure bool,
) int {
	cfg := transport.Config{
		Host:               params.Host,
		Port:               params.Port,
		InsecureSkipVerify: true,
		DialTimeout:        10 * time.Second,
	}

	disconnected := make(chan struct{}, 1)
	sess.OnDisconnect(func() {
		forwarder.ForceRelease()
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})

	if err := sess.Connect(cfg); err != nil {
		logger.Error("connect failed", "error", err.Error())
		if fatalOnFirstFailure {
			return 1
		}
		if !sleepOrShutdown(ctx, reconnectInitialDelay) {
			return 0
		}
		if !r.reconnectUntilSuccess(ctx, sess, cfg, logger) {
			return 0
		}
	}

	for {
		if ctx.Err() != nil {
			sess.Disconnect()
			return 0
		}

		if err := sess.Start(params.Key); err != nil {
			logger.Error("handshake failed", "error", err.Error())
			sess.Disconnect()
			if !sleepOrShutdown(ctx, reconnectInitialDelay) {
				return 0
			}
			if !r.reconnectUntilSuccess(ctx, sess, cfg, logger) {
				return 0
			}
			continue
		}

		logger.Info("session ready", "host", params.Host, "port", params.Port)
		r.runForwardingLoop(ctx, forwarder, disconnected, logger)

		if ctx.Err() != nil {
			sess.Disconnect()
			return 0
		}

		logger.Info("connection lost, reconnecting", "delay", reconnectInitialDelay)
		if !sleepOrShutdown(ctx, reconnectInitialDelay) {
			return 0
		}
		if !r.reconnectUntilSuccess(ctx, sess, cfg, logger) {
			return 0
		}
	}
}

// reconnectUntilSuccess retries Connect every reconnectRetryDelay until it
// succeeds or shutdown is requested.
func (r Runner) reconnectUntilSuccess(ctx context.Context, sess *session.Session, cfg transport.Config, logger *slog.Logger) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if err := sess.Connect(cfg); err == nil {
			logger.Info("reconnected")
			return true
		}
		logger.Info("reconnect failed, retrying", "delay", reconnectRetryDelay)
		if !sleepOrShutdown(ctx, reconnectRetryDelay) {
			return false
		}
	}
}

// runForwardingLoop installs the platform hook (Windows) or just waits
// (everywhere else) until the session disconnects or shutdown is
// requested, mirroring main.cpp's per-platform inner loop.
func (r Runner) runForwardingLoop(ctx context.Context, forwarder *forwarding.Controller, disconnected <-chan struct{}, logger *slog.Logger) {
	if hook.Available() {
		r.runWithHook(ctx, forwarder, disconnected, logger)
		return
	}

	ticker := time.NewTicker(hookPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-disconnected:
			return
		case <-ticker.C:
		}
	}
}

func (r Runner) runWithHook(ctx context.Context, forwarder *forwarding.Controller, disconnected <-chan struct{}, logger *slog.Logger) {
	h := hook.New()
	started := make(chan error, 1)
	go func() { started <- h.Start(forwarder.HandleEvent) }()

	select {
	case <-ctx.Done():
	case <-disconnected:
	case err := <-started:
		if err != nil {
			logger.Error("keyboard hook failed", "error", err.Error())
		}
		return
	}
	_ = h.Stop()
	<-started
}

// sleepOrShutdown sleeps for d, returning false early if ctx is done.
func sleepOrShutdown(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func logLevelFor(level config.DebugLevel) slog.Level {
	switch level {
	case config.LevelInfo:
		return slog.LevelInfo
	case config.LevelVerbose:
		return slog.LevelDebug
	case config.LevelTrace:
		return logging.LevelTrace
	default:
		return logging.LevelSilent
	}
}

// RunDoctor runs the advisory diagnostics command and prints its report.
func RunDoctor(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	opts, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	params := config.Params{Host: opts.Host, Port: opts.Port, Key: opts.Key, Shortcut: opts.Shortcut}
	report := doctor.Run(ctx, params)
	fmt.Fprintln(stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"spectrum/cmd"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/internal/pipeline"
	"spectrum/internal/tui"
	"spectrum/pkg/build"
)

// logFile receives log output while the terminal display is active.
const logFile = "spectrum.log"

// main is the entry point of the analyzer. The program flow is divided into
// three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse the command line and load the configuration
//   - Initialize PortAudio when it is needed
//   - Execute one-off commands if requested
//   - Build the source, display and pipeline
//
// 2. Concurrent Phase (Hot Path):
//   - Capture, analysis and display run on their own goroutines
//   - The frame scheduler paces analysis at the configured frame rate
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop capture and presentation, close the source and display
//   - Log the final counters
func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil // --help or --version.
	}
	if level, ok := log.ParseLevel(cfg.LogLevelName()); ok {
		log.SetLevel(level)
	}
	if cfg.ConfigPath != "" {
		log.Infof("Config: loaded %s", cfg.ConfigPath)
	}

	usesPortAudio := cfg.Audio.Source == config.SourcePortAudio || cfg.Command == "list" || cfg.Interactive
	if usesPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	// One-off commands don't start the pipeline.
	if cfg.Command != "" {
		return executeCommand(cfg.Command)
	}

	if cfg.Interactive {
		sel, err := tui.PickDevice(cfg.Audio.SampleRate)
		if errors.Is(err, tui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		cfg.Audio.Source = config.SourcePortAudio
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The terminal display owns the screen; keep log lines in a file.
	if cfg.Display.Kind == config.DisplayTerminal {
		f, err := tea.LogToFile(logFile, "")
		if err != nil {
			return err
		}
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := pipeline.NewSource(cfg)
	if err != nil {
		return err
	}

	var p *pipeline.Pipeline
	status := func() string {
		if p == nil {
			return ""
		}
		return p.Stats().String()
	}
	// Quitting the terminal display ends the run after the current frame.
	quit := func() {
		if p == nil {
			stop()
			return
		}
		p.Stop()
	}
	disp, err := pipeline.NewDisplay(cfg, quit, status)
	if err != nil {
		src.Close()
		return err
	}

	p, err = pipeline.New(cfg, src, disp, pipeline.Options{})
	if err != nil {
		src.Close()
		disp.Close()
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	runErr := p.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := p.Close(); err != nil {
		log.Errorf("Error closing pipeline: %v", err)
	}
	return runErr
}

// executeCommand handles one-off commands that don't need the pipeline.
func executeCommand(command string) error {
	switch command {
	case "list":
		return audio.ListDevices(os.Stdout)
	}
	return fmt.Errorf("unknown command %q", command)
}

// SPDX-License-Identifier: MIT
// Package cmd parses the command line into a validated configuration.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"spectrum/internal/config"
	"spectrum/pkg/build"
)

// flagValues holds the raw flag values. Only flags the user set are copied
// over the loaded configuration.
type flagValues struct {
	configPath string
	verbose    bool
	logLevel   string

	source     string
	device     int
	sampleRate float64
	channels   int
	blockSize  int
	lowLatency bool
	wavPath    string
	frequency  float64

	window string

	display     string
	orientation int
	grouping    string
	aggregate   string
	ballistics  bool
	wsAddr      string
	udpTarget   string

	frameRate float64
	policy    string
	maxFrames uint64
}

// ParseArgs parses args (without the program name). It returns a nil config
// and nil error when cobra handled the invocation itself, as for --help and
// --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		fv          flagValues
		cfg         *config.Config
		command     string
		interactive bool
	)

	load := func(cmd *cobra.Command) error {
		c, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		applyFlags(c, cmd.Flags(), &fv)
		if err := c.Validate(); err != nil {
			return err
		}
		c.Command = command
		c.Interactive = interactive
		cfg = c
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd)
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n", buildInfo.Name))
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command = "list"
			return load(cmd)
		},
	}
	rootCmd.AddCommand(listCmd)

	registerFlags(rootCmd.PersistentFlags(), &fv)
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Choose the input device and sample rate from a list before starting")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func registerFlags(fs *pflag.FlagSet, fv *flagValues) {
	// General
	fs.StringVar(&fv.configPath, "config", "", "Path to a YAML config file (default: ./config.yaml or ./spectrum.yaml)")
	fs.BoolVarP(&fv.verbose, "verbose", "v", false, "Show verbose output")
	fs.StringVar(&fv.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	// Capture
	fs.StringVar(&fv.source, "source", config.DefaultSource, "Capture source: portaudio, wav or sine")
	fs.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	fs.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate, "Sample rate, measured in Hertz (Hz)")
	fs.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels, "Number of interleaved capture channels")
	fs.IntVarP(&fv.blockSize, "block-size", "b", config.DefaultBlockSize, "Frames per capture block (affects latency)")
	fs.BoolVarP(&fv.lowLatency, "low-latency", "l", false, "Use the device's low input latency")
	fs.StringVar(&fv.wavPath, "wav", "", "WAV file to replay (selects the wav source)")
	fs.Float64Var(&fv.frequency, "frequency", config.DefaultSineFrequency, "Tone frequency of the sine source in Hz")

	// Analysis
	fs.StringVar(&fv.window, "window", config.DefaultWindow, "Window function: hann, hamming, blackman, nuttall, ...")

	// Display
	fs.StringVar(&fv.display, "display", config.DefaultDisplay, "Display: terminal, websocket, udp, log or null")
	fs.IntVar(&fv.orientation, "orientation", config.DefaultOrientation, "Panel rotation in degrees: 0 or 180")
	fs.StringVar(&fv.grouping, "grouping", config.DefaultGrouping, "Bin grouping: linear or log")
	fs.StringVar(&fv.aggregate, "aggregate", config.DefaultAggregate, "Bin aggregation: max or mean")
	fs.BoolVar(&fv.ballistics, "ballistics", true, "Smooth falling bars")
	fs.StringVar(&fv.wsAddr, "ws-addr", config.DefaultWebSocketAddr, "Listen address of the websocket viewer")
	fs.StringVar(&fv.udpTarget, "udp-target", config.DefaultUDPTarget, "host:port of the UDP panel")

	// Scheduler
	fs.Float64VarP(&fv.frameRate, "frame-rate", "f", config.DefaultFrameRate, "Frames per second")
	fs.StringVar(&fv.policy, "policy", config.DefaultPolicy, "Deadline overrun policy: skip or catchup")
	fs.Uint64Var(&fv.maxFrames, "max-frames", 0, "Stop after this many frames (0 runs until interrupted)")
}

// applyFlags copies the flags the user set over cfg.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, fv *flagValues) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("verbose", func() { cfg.Debug = fv.verbose })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })

	set("source", func() { cfg.Audio.Source = fv.source })
	set("device", func() { cfg.Audio.InputDevice = fv.device })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("channels", func() { cfg.Audio.Channels = fv.channels })
	set("block-size", func() { cfg.Audio.BlockSize = fv.blockSize })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })
	set("wav", func() {
		cfg.Audio.WAVPath = fv.wavPath
		if !fs.Changed("source") {
			cfg.Audio.Source = config.SourceWAV
		}
	})
	set("frequency", func() { cfg.Audio.SineFrequency = fv.frequency })

	set("window", func() { cfg.Analysis.Window = fv.window })

	set("display", func() { cfg.Display.Kind = fv.display })
	set("orientation", func() { cfg.Display.Orientation = fv.orientation })
	set("grouping", func() { cfg.Display.Grouping = fv.grouping })
	set("aggregate", func() { cfg.Display.Aggregate = fv.aggregate })
	set("ballistics", func() { cfg.Display.Ballistics = fv.ballistics })
	set("ws-addr", func() { cfg.Display.WebSocketAddr = fv.wsAddr })
	set("udp-target", func() { cfg.Display.UDPTarget = fv.udpTarget })

	set("frame-rate", func() { cfg.Scheduler.FrameRate = fv.frameRate })
	set("policy", func() { cfg.Scheduler.Policy = fv.policy })
	set("max-frames", func() { cfg.Scheduler.MaxFrames = fv.maxFrames })
}

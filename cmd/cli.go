// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"dentvoice/internal/config"
	"dentvoice/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected by ParseArgs. The empty command runs the dictation UI.
const (
	CommandDictate = ""
	CommandList    = "list"
	CommandRender  = "render"
	CommandServe   = "serve"
)

// Options holds the parsed command line.
type Options struct {
	Command    string
	ConfigPath string
	DeviceID   int
	Mode       string
	Verbose    bool

	// Flags that were set explicitly and override the config file.
	DeviceSet bool
	ModeSet   bool

	// list
	Interactive bool

	// render
	Input     string
	OutputDir string
	Every     int
	Tail      int
}

// ParseArgs parses os.Args into Options.
func ParseArgs() (*Options, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	// Help and version return without selecting a command.
	ran := false
	selectCommand := func(name string) {
		options.Command = name
		ran = true
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selectCommand(CommandDictate)
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available input devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			selectCommand(CommandList)
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Pick a device and sample rate interactively")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render <file.wav>",
		Short: "Replay a WAV file through the waveform and write PNG frames",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			selectCommand(CommandRender)
			options.Input = args[0]
		},
	}
	renderCmd.Flags().StringVarP(&options.OutputDir, "output", "o", "frames",
		"Directory for the PNG frames")
	renderCmd.Flags().IntVarP(&options.Every, "every", "e", 1,
		"Write every Nth frame")
	renderCmd.Flags().IntVarP(&options.Tail, "tail", "t", 0,
		"Frames of processing animation rendered after the audio ends")
	rootCmd.AddCommand(renderCmd)

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Capture the microphone and publish waveform frames until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			selectCommand(CommandServe)
		},
	}
	rootCmd.AddCommand(serveCmd)

	// Global configuration
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&options.ConfigPath, "config", "",
		"Configuration file (default: ./"+config.DefaultPath+" when present)")
	flags.IntVarP(&options.DeviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.StringVarP(&options.Mode, "mode", "m", config.DefaultMode,
		"Waveform mode: static or scrolling")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}

	options.DeviceSet = flags.Changed("device")
	options.ModeSet = flags.Changed("mode")
	return options, nil
}

// Apply copies explicitly set flags over the loaded configuration and
// revalidates it.
func (o *Options) Apply(cfg *config.Config) error {
	if o.DeviceSet {
		cfg.Audio.InputDevice = o.DeviceID
	}
	if o.ModeSet {
		cfg.Waveform.Mode = o.Mode
	}
	if o.Verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	return cfg.Validate()
}

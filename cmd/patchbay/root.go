package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farbridge/patchbay"
)

// rootCmd is the base command; subcommands attach themselves in their own
// init functions.
var rootCmd = &cobra.Command{
	Use:   "patchbay",
	Short: "Node-based engine for audio-reactive visuals",
	Long: `patchbay runs dataflow patches: graphs of value, math, logic, audio,
and shader nodes evaluated once per frame and composited on the GPU.

Patches are JSON files; see the examples directory for starters.`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "patchbay:", err)
		os.Exit(1)
	}
}

func init() {
	// Environment overrides: PATCHBAY_LOG_LEVEL=debug etc.
	viper.SetEnvPrefix("PATCHBAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("log-json", false, "Emit logs as JSON")
	viper.BindPFlag("log-level", pf.Lookup("log-level"))
	viper.BindPFlag("log-json", pf.Lookup("log-json"))
}

// newLogger builds the process logger from the root flags.
func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if viper.GetBool("log-json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// loadGraph loads a patch file against the builtin node catalog.
func loadGraph(path string, log *slog.Logger) (*patchbay.Graph, *patchbay.Registry, error) {
	reg := patchbay.Builtins()
	g := patchbay.NewGraph(reg, log)
	if err := patchbay.LoadPatchFile(g, reg, path); err != nil {
		return nil, nil, err
	}
	return g, reg, nil
}

// audioFlags registers the audio source flags shared by run and render.
func audioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("audio", "pulse", "Audio source: silent, pulse")
	f.Float64("bpm", 120, "Tempo for the pulse source")
}

// audioSource builds the audio source a command's flags ask for.
func audioSource(cmd *cobra.Command) (patchbay.AudioSource, error) {
	kind, _ := cmd.Flags().GetString("audio")
	bpm, _ := cmd.Flags().GetFloat64("bpm")
	switch kind {
	case "silent":
		return patchbay.SilentSource{}, nil
	case "pulse":
		return &patchbay.PulseSource{BPM: bpm}, nil
	}
	return nil, fmt.Errorf("unknown audio source %q (want silent or pulse)", kind)
}

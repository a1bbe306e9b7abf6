package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/farbridge/patchbay"
	"github.com/farbridge/patchbay/view"
)

var runCmd = &cobra.Command{
	Use:   "run <patch.json>",
	Short: "Open a window and play a patch live",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.String("surface", patchbay.DefaultSurface, "Render surface to present")
	f.Bool("overlay", false, "Show FPS and tick stats in the corner")
	f.Int64("seed", 0, "Random node seed (0 seeds from the clock)")
	audioFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()
	g, _, err := loadGraph(args[0], log)
	if err != nil {
		return err
	}
	audio, err := audioSource(cmd)
	if err != nil {
		return err
	}
	surface, _ := cmd.Flags().GetString("surface")
	overlay, _ := cmd.Flags().GetBool("overlay")
	seed, _ := cmd.Flags().GetInt64("seed")

	eng := patchbay.NewEngine(g, log)
	return view.Run(eng, view.Config{
		Title:   "patchbay: " + filepath.Base(args[0]),
		Surface: surface,
		Audio:   audio,
		Overlay: overlay,
		Seed:    seed,
		Log:     log,
	})
}

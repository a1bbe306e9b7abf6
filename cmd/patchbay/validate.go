package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farbridge/patchbay"
)

var validateCmd = &cobra.Command{
	Use:   "validate <patch.json>",
	Short: "Check a patch file without rendering it",
	Long: `Validate loads a patch against the builtin node catalog and reports
what the engine would run: node and edge counts, the shader chain per
surface, and any feedback cycles. Exits nonzero when the file does not
load.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Report as JSON")
}

type surfaceReport struct {
	Surface string   `json:"surface"`
	Stages  []string `json:"stages"`
	Final   string   `json:"final,omitempty"`
	Cyclic  bool     `json:"cyclic,omitempty"`
}

type patchReport struct {
	Path     string          `json:"path"`
	Nodes    int             `json:"nodes"`
	Edges    int             `json:"edges"`
	Surfaces []surfaceReport `json:"surfaces"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	g, _, err := loadGraph(args[0], log)
	if err != nil {
		return err
	}

	report := patchReport{
		Path:  args[0],
		Nodes: g.Len(),
		Edges: len(g.Edges()),
	}
	for _, surface := range patchbay.Surfaces(g) {
		plan := patchbay.ResolveShaderPlan(g, surface, log)
		sr := surfaceReport{
			Surface: surface,
			Final:   string(plan.Final),
			Cyclic:  plan.Cyclic,
		}
		for _, id := range plan.Order {
			sr.Stages = append(sr.Stages, string(id))
		}
		report.Surfaces = append(report.Surfaces, sr)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("%s: %d nodes, %d edges\n", report.Path, report.Nodes, report.Edges)
	for _, sr := range report.Surfaces {
		fmt.Printf("  surface %q: %d stages", sr.Surface, len(sr.Stages))
		if sr.Final != "" {
			fmt.Printf(", final %s", sr.Final)
		} else {
			fmt.Printf(", no output connected")
		}
		if sr.Cyclic {
			fmt.Printf(" (feedback cycle)")
		}
		fmt.Println()
	}
	return nil
}

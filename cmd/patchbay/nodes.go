package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/farbridge/patchbay"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the builtin node catalog",
	Args:  cobra.NoArgs,
	RunE:  runNodes,
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	f := nodesCmd.Flags()
	f.Bool("json", false, "Report as JSON")
	f.String("category", "", "Only list one category (value, math, logic, utility, audio, shader, output)")
}

type handleReport struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
}

type nodeReport struct {
	Key      string         `json:"key"`
	Label    string         `json:"label"`
	Category string         `json:"category"`
	Inputs   []handleReport `json:"inputs,omitempty"`
	Outputs  []handleReport `json:"outputs,omitempty"`
}

func runNodes(cmd *cobra.Command, args []string) error {
	reg := patchbay.Builtins()
	category, _ := cmd.Flags().GetString("category")

	var reports []nodeReport
	for _, key := range reg.Keys() {
		spec, ok := reg.Lookup(key)
		if !ok {
			continue
		}
		if category != "" && spec.Category.String() != category {
			continue
		}
		nr := nodeReport{
			Key:      spec.Key,
			Label:    spec.Label,
			Category: spec.Category.String(),
		}
		for _, h := range spec.Inputs {
			nr.Inputs = append(nr.Inputs, handleReport{
				ID: string(h.ID), Label: h.Label, Type: h.Type.String(), Default: h.Default,
			})
		}
		for _, h := range spec.Outputs {
			nr.Outputs = append(nr.Outputs, handleReport{
				ID: string(h.ID), Label: h.Label, Type: h.Type.String(),
			})
		}
		reports = append(reports, nr)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for _, nr := range reports {
		fmt.Printf("%-14s %-18s [%s]\n", nr.Key, nr.Label, nr.Category)
		if len(nr.Inputs) > 0 {
			fmt.Printf("    in:  %s\n", joinHandles(nr.Inputs))
		}
		if len(nr.Outputs) > 0 {
			fmt.Printf("    out: %s\n", joinHandles(nr.Outputs))
		}
	}
	return nil
}

func joinHandles(hs []handleReport) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = fmt.Sprintf("%s(%s)", h.ID, h.Type)
	}
	return strings.Join(parts, ", ")
}

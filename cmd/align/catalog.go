package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"align-bot/internal/brand"
	"align-bot/internal/visual"
)

type presetRow struct {
	Archetype string `json:"archetype"`
	Preset    string `json:"preset"`
	Rule      string `json:"rule"`
}

func (c *cli) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List archetypes and the visual presets each allows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows []presetRow
			for _, a := range brand.Archetypes() {
				for _, p := range brand.Presets(a) {
					rows = append(rows, presetRow{Archetype: string(a), Preset: string(p), Rule: visual.Resolve(a, p)})
				}
			}
			if c.isJSON() {
				return printJSON(cmd.OutOrStdout(), rows)
			}

			out := cmd.OutOrStdout()
			for _, a := range brand.Archetypes() {
				fmt.Fprintf(out, "%s (%s)\n", a, brand.Describe(a))
				for i, p := range brand.Presets(a) {
					suffix := ""
					if i == 0 {
						suffix = " [default]"
					}
					fmt.Fprintf(out, "  %s%s\n", p, suffix)
				}
			}
			return nil
		},
	}
}

func (c *cli) ruleCmd() *cobra.Command {
	var archetype, preset string
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Print the camera rule for an archetype and preset",
		Long: `Print the photographic instruction the copywriter receives for a pair.
Pairs without a configured rule print the generic fallback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := brand.ParseArchetype(archetype)
			if err != nil {
				return err
			}
			p, err := brand.ParsePreset(preset)
			if err != nil {
				return err
			}
			rule, mapped := visual.Lookup(a, p)
			if !mapped {
				rule = visual.Fallback
			}
			if c.isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"rule": rule, "mapped": mapped})
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule)
			return nil
		},
	}
	cmd.Flags().StringVar(&archetype, "archetype", "", "brand archetype (SPACE, PRODUCT, SERVICE)")
	cmd.Flags().StringVar(&preset, "preset", "", "visual preset")
	_ = cmd.MarkFlagRequired("archetype")
	_ = cmd.MarkFlagRequired("preset")
	return cmd
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
	"align-bot/internal/pipeline"
)

// batchFile is the document read by the batch command. The brand applies to every
// entry.
type batchFile struct {
	Brand     yaml.Node    `yaml:"brand"`
	Campaigns []batchEntry `yaml:"campaigns"`
}

type batchEntry struct {
	Topic    string `yaml:"topic"`
	Context  string `yaml:"context"`
	Audience string `yaml:"audience"`
	Preset   string `yaml:"preset"`
}

func (c *cli) batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run many campaigns without review",
		Long: `Run every campaign in a YAML file, approving each strategy automatically.
Campaigns run concurrently; one failing does not stop the others.

File format:
  brand:
    name: Acme Audio
    archetype: PRODUCT
    constraints: No discounts
  campaigns:
    - topic: Summer Launch
      context: Drive pre-orders
      preset: STUDIO`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()

			reqs, err := readBatch(f)
			if err != nil {
				return err
			}
			stages, err := c.loadStages(cmd)
			if err != nil {
				return err
			}

			results := pipeline.RunBatch(cmd.Context(), stages, reqs, c.v.GetInt("concurrency"))
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}

			if c.isJSON() {
				if err := printJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				printBatch(cmd.OutOrStdout(), results)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d campaigns failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().Int("concurrency", 2, "campaigns run at once")
	_ = c.v.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))
	return cmd
}

// readBatch validates every entry up front so a typo fails before any model call.
func readBatch(r io.Reader) ([]campaign.Request, error) {
	var doc batchFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	if len(doc.Campaigns) == 0 {
		return nil, errors.New("batch file has no campaigns")
	}

	profile := brand.DefaultProfile()
	if doc.Brand.Kind != 0 {
		var buf bytes.Buffer
		if err := yaml.NewEncoder(&buf).Encode(&doc.Brand); err != nil {
			return nil, fmt.Errorf("decode brand: %w", err)
		}
		p, err := brand.DecodeProfile(&buf)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	reqs := make([]campaign.Request, 0, len(doc.Campaigns))
	for i, e := range doc.Campaigns {
		var preset brand.VisualPreset
		if e.Preset != "" {
			p, err := brand.ParsePreset(e.Preset)
			if err != nil {
				return nil, fmt.Errorf("campaign %d: %w", i+1, err)
			}
			preset = p
		}
		req, err := campaign.NewRequest(profile, preset, e.Topic, e.Context, e.Audience)
		if err != nil {
			return nil, fmt.Errorf("campaign %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func printBatch(w io.Writer, results []pipeline.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "#%d %s\n", r.Index+1, r.Request.Topic)
		if r.Err != nil {
			fmt.Fprintf(w, "  failed: %v\n", r.Err)
			continue
		}
		fmt.Fprintf(w, "  angle: %s\n", r.Strategy.StrategicAngle)
		fmt.Fprintf(w, "  headline: %s\n", r.Content.Headline)
		fmt.Fprintf(w, "  image: %s\n", imageLabel(*r.Content))
	}
}

func imageLabel(c campaign.Content) string {
	switch {
	case c.ImagePlaceholder:
		return c.ImageURL + " (placeholder)"
	case len(c.ImageURL) > 64:
		return c.ImageURL[:64] + "..."
	default:
		return c.ImageURL
	}
}

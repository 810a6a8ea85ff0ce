package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
	"align-bot/internal/pipeline"
)

var errAborted = errors.New("campaign aborted")

type runFlags struct {
	brandFile string
	preset    string
	topic     string
	context   string
	audience  string
	yes       bool
}

func (c *cli) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one campaign with an interactive review step",
		Long: `Run one campaign. The strategy is printed for review; answer
a to approve and generate, r to refine the input, or q to quit.
With --yes the strategy is approved without asking.`,
		Example: `  align run --brand acme.yaml --topic "Summer Launch" --context "Drive pre-orders"
  align run --topic "Open house" --context "Saturday viewing" --preset ambiance --yes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runCampaign(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.brandFile, "brand", "", "brand profile file (YAML or JSON)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "visual preset (defaults to the archetype's first)")
	cmd.Flags().StringVar(&f.topic, "topic", "", "campaign topic")
	cmd.Flags().StringVar(&f.context, "context", "", "campaign context")
	cmd.Flags().StringVar(&f.audience, "audience", "", "target audience")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "approve the strategy without review")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func (c *cli) runCampaign(cmd *cobra.Command, f runFlags) error {
	profile, err := readProfile(f.brandFile)
	if err != nil {
		return err
	}
	var preset brand.VisualPreset
	if f.preset != "" {
		if preset, err = brand.ParsePreset(f.preset); err != nil {
			return err
		}
	}
	req, err := campaign.NewRequest(profile, preset, f.topic, f.context, f.audience)
	if err != nil {
		return err
	}

	stages, err := c.loadStages(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ctrl := pipeline.New(ctx, stages)
	defer ctrl.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	ctrl.Start(req)
	for {
		if err := ctrl.Wait(ctx); err != nil {
			return err
		}
		snap := ctrl.Snapshot()

		switch snap.State {
		case pipeline.StateInput:
			return snap.Err

		case pipeline.StateDone:
			if c.isJSON() {
				return printJSON(out, snap)
			}
			printContent(out, *snap.Content)
			return nil

		case pipeline.StateReview:
			if snap.Err != nil {
				fmt.Fprintf(out, "Content generation failed: %v\nThe strategy is kept.\n\n", snap.Err)
				if f.yes {
					return snap.Err
				}
			}
			if f.yes {
				ctrl.Approve()
				continue
			}

			printStrategy(out, *snap.Strategy)
			answer, err := ask(in, out, "[a]pprove and generate, [r]efine input, [q]uit: ")
			if err != nil {
				return err
			}
			switch strings.ToLower(answer) {
			case "a", "approve":
				ctrl.Approve()
			case "r", "refine":
				ctrl.Refine()
				next, err := refine(in, out, snap.Request)
				if err != nil {
					return err
				}
				ctrl.Start(next)
			case "q", "quit":
				return errAborted
			default:
				fmt.Fprintln(out, "Please answer a, r or q.")
			}
		}
	}
}

// refine asks for a new topic and context. A blank answer keeps the old value.
func refine(in *bufio.Reader, out io.Writer, prev campaign.Request) (campaign.Request, error) {
	topic, err := ask(in, out, fmt.Sprintf("Topic [%s]: ", prev.Topic))
	if err != nil {
		return campaign.Request{}, err
	}
	ctx, err := ask(in, out, fmt.Sprintf("Context [%s]: ", prev.Context))
	if err != nil {
		return campaign.Request{}, err
	}
	audience, err := ask(in, out, fmt.Sprintf("Target audience [%s]: ", prev.TargetAudience))
	if err != nil {
		return campaign.Request{}, err
	}

	next := prev
	if topic != "" {
		next.Topic = topic
	}
	if ctx != "" {
		next.Context = ctx
	}
	if audience != "" {
		next.TargetAudience = audience
	}
	return next, nil
}

func ask(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printStrategy(w io.Writer, s campaign.Strategy) {
	fmt.Fprintf(w, "\nMARKET ANALYSIS\n%s\n\n", s.MarketAnalysis)
	fmt.Fprintf(w, "STRATEGIC ANGLE\n%s\n\n", s.StrategicAngle)
	fmt.Fprintf(w, "ALIGNMENT CHECK\n%s\n\n", s.AlignmentCheck)
	fmt.Fprintf(w, "TONE INSTRUCTION\n%s\n\n", s.ToneInstruction)
}

func printContent(w io.Writer, c campaign.Content) {
	fmt.Fprintf(w, "\n%s\n\n%s\n\n", c.Headline, c.Body)
	fmt.Fprintf(w, "Rationale: %s\n", c.Rationale)
	fmt.Fprintf(w, "Image prompt: %s\n", c.ImagePrompt)
	if c.ImagePlaceholder {
		fmt.Fprintf(w, "Image (placeholder): %s\n", c.ImageURL)
		return
	}
	if strings.HasPrefix(c.ImageURL, "data:") {
		fmt.Fprintf(w, "Image: inline %d bytes\n", len(c.ImageURL))
		return
	}
	fmt.Fprintf(w, "Image: %s\n", c.ImageURL)
}

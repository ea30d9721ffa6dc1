package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/maauso/caption-chunker/internal/caption"
	"github.com/maauso/caption-chunker/internal/chunk"
	"github.com/spf13/cobra"
)

// PlanCmd creates the plan command: a dry run over a single caption file.
func PlanCmd(env *Env) *cobra.Command {
	var targets []time.Duration

	cmd := &cobra.Command{
		Use:   "plan <caption-file>",
		Short: "Print the chunk windows of one caption file",
		Long: `Parse a WebVTT file and print the windows the planner would cut for each
target duration. Nothing is written.`,
		Example: `  chunker plan talk/talk.en.vtt
  chunker plan talk/talk.en.vtt -t 8s -t 30s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(env, args[0], targets)
		},
	}

	cmd.Flags().DurationSliceVarP(&targets, "target", "t", []time.Duration{8 * time.Second}, "Target chunk duration (repeatable)")

	return cmd
}

func runPlan(env *Env, path string, targets []time.Duration) error {
	for _, t := range targets {
		if t < time.Second {
			return fmt.Errorf("%w: %s", ErrInvalidTarget, t)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("read caption: %w", err)
	}

	report := caption.Parse(data)
	for _, issue := range report.Issues {
		fmt.Fprintf(env.Stderr, "warning: %s: %s\n", path, issue)
	}

	fmt.Fprintf(env.Stdout, "%s: %d cues, %d dropped\n", path, len(report.Cues), len(report.Issues))

	for _, target := range targets {
		chunks := chunk.Plan(report.Cues, target)
		fmt.Fprintf(env.Stdout, "\ntarget %s (ceiling %s): %d chunks\n", target, chunk.Ceiling(target), len(chunks))

		tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tSTART\tEND\tSPAN\tCUES")
		for _, c := range chunks {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n",
				c.Index,
				caption.FormatTimestamp(c.Start()),
				caption.FormatTimestamp(c.End()),
				c.Span(),
				len(c.Cues))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

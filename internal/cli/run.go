package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/maauso/caption-chunker/internal/job"
	"github.com/spf13/cobra"
)

// RunCmd creates the run command.
// The env parameter provides injectable dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var (
		flags  configFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Chunk every discovered track for each target duration",
		Long: `Discover tracks under the source root, plan caption windows for every
target duration, and write matching audio and caption pairs under the output root.

Outputs that already exist are left alone, so an interrupted run can simply be
started again. The command exits non-zero when any job or chunk failed.`,
		Example: `  chunker run --source data/audio --output data/chunks
  chunker run -s data/audio --captions data/transcripts -t 8,30 -w 4
  chunker run --json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChunking(cmd, env, &flags, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

// runChunking executes one run in the foreground and prints its report.
func runChunking(cmd *cobra.Command, env *Env, flags *configFlags, asJSON bool) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd, env, flags)
	if err != nil {
		return err
	}

	deps, err := env.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	run, err := deps.Orchestrator.CreateRun(ctx, cfg.TargetDurations(), 0)
	if err != nil {
		return err
	}

	report, err := deps.Orchestrator.Execute(ctx, run)
	if err != nil {
		return err
	}

	if err := printReport(env.Stdout, run.ID, report, asJSON); err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d failed, %d timed out, %d cancelled, %d chunks failed",
			ErrRunIncomplete, report.Failed, report.TimedOut, report.Cancelled, report.ChunksFailed)
	}
	return nil
}

type reportOutput struct {
	RunID string `json:"run_id"`
	job.Report
}

func printReport(w io.Writer, runID string, report job.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportOutput{RunID: runID, Report: report})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", runID)
	fmt.Fprintf(tw, "tracks\t%d\n", report.Tracks)
	fmt.Fprintf(tw, "jobs\t%d\n", report.Jobs)
	fmt.Fprintf(tw, "completed\t%d\n", report.Completed)
	fmt.Fprintf(tw, "failed\t%d\n", report.Failed)
	fmt.Fprintf(tw, "timed out\t%d\n", report.TimedOut)
	fmt.Fprintf(tw, "cancelled\t%d\n", report.Cancelled)
	fmt.Fprintf(tw, "audio written\t%d\n", report.AudioWritten)
	fmt.Fprintf(tw, "captions written\t%d\n", report.CaptionsWritten)
	fmt.Fprintf(tw, "chunks skipped\t%d\n", report.ChunksSkipped)
	fmt.Fprintf(tw, "chunks failed\t%d\n", report.ChunksFailed)
	fmt.Fprintf(tw, "parse issues\t%d\n", report.ParseIssues)
	return tw.Flush()
}

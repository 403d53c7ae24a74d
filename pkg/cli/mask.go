package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/secretmask/pkg/batch"
	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/metrics"
)

type maskOptions struct {
	path     string
	dir      string
	dumpConf bool
	workers  int
	gitleaks bool
}

func newMaskCmd(a *app) *cobra.Command {
	opts := &maskOptions{}

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Mask a resource file or every resource file below a directory",
		Example: `  secretmask mask -p must-gather/secrets/nova.yaml
  secretmask mask -d must-gather/ --dump-conf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.path == "" && opts.dir == "" {
				return usageError(errors.New("one of --path or --dir is required"))
			}
			if cmd.Flags().Changed("workers") && opts.workers < 1 {
				return usageError(fmt.Errorf("--workers must be at least 1, got %d", opts.workers))
			}
			return a.runMask(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "resource file to mask")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "directory to walk")
	cmd.Flags().BoolVar(&opts.dumpConf, "dump-conf", false, "also write each masked *.conf Secret entry next to its resource")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "files masked concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.gitleaks, "gitleaks", false, "run the gitleaks detector after the regex passes")

	return cmd
}

func (a *app) runMask(cmd *cobra.Command, opts *maskOptions) error {
	ctx := cmd.Context()

	dispatcher, err := a.newDispatcher(opts.gitleaks)
	if err != nil {
		return failure(err)
	}

	batchCfg := *a.cfg.Batch
	if opts.workers > 0 {
		batchCfg.Workers = opts.workers
	}

	runnerOpts := []batch.Option{
		batch.WithDumpConfig(opts.dumpConf || a.cfg.Masking.DumpConf),
		batch.WithObserver(metrics.ObserveReport),
	}

	history, err := a.openHistory(ctx)
	if err != nil {
		return failure(err)
	}
	defer closeHistory(history)
	if history != nil {
		runnerOpts = append(runnerOpts, batch.WithRecorder(database.NewRunStore(history.DB())))
	}

	runner := batch.NewRunner(dispatcher, &batchCfg, runnerOpts...)

	// Both targets are processed when given, file first.
	if opts.path != "" {
		summary, err := runner.RunFile(ctx, opts.path)
		if err != nil {
			return failure(err)
		}
		a.printSummary(summary)
		if summary.Failed() > 0 {
			return failure(summary.Reports[0].Err)
		}
	}

	if opts.dir != "" {
		summary, err := runner.Run(ctx, opts.dir)
		if err != nil {
			return failure(err)
		}
		metrics.ObserveRun(summary.Duration())
		a.printSummary(summary)
		if summary.Failed() > 0 {
			slog.Warn("Some files could not be masked", "dir", opts.dir, "failed", summary.Failed())
		}
	}

	return nil
}

func (a *app) printSummary(summary *batch.Summary) {
	fmt.Fprintf(a.stdout, "%s: %d file(s), %d failed, %d value(s) redacted, %d field error(s), run %s\n",
		summary.Root, summary.Files(), summary.Failed(), summary.Redacted(), summary.FieldErrors(), summary.RunID)
}

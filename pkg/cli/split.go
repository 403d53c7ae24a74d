package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/secretmask/pkg/split"
)

func newSplitCmd(a *app) *cobra.Command {
	var mask bool

	cmd := &cobra.Command{
		Use:   "split INPUT [OUTPUT_DIR]",
		Short: "Split a ConfigMapList dump into one file per ConfigMap",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := split.DefaultOutputDir
			if len(args) == 2 {
				outputDir = args[1]
			}
			return a.runSplit(args[0], outputDir, mask)
		},
	}

	cmd.Flags().BoolVar(&mask, "mask", false, "mask every written ConfigMap")
	return cmd
}

func (a *app) runSplit(input, outputDir string, mask bool) error {
	var masker split.Masker
	if mask {
		dispatcher, err := a.newDispatcher(false)
		if err != nil {
			return failure(err)
		}
		masker = dispatcher
	}

	result, err := split.ConfigMapList(input, outputDir, masker)
	if errors.Is(err, split.ErrUnexpectedKind) {
		slog.Warn("Nothing to split", "input", input, "error", err)
		return nil
	}
	if err != nil {
		return failure(err)
	}

	for _, path := range result.Files {
		fmt.Fprintln(a.stdout, path)
	}
	return nil
}

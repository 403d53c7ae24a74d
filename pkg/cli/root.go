// Package cli implements the secretmask command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/secretmask/pkg/config"
	"github.com/codeready-toolchain/secretmask/pkg/version"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type app struct {
	configDir string
	logLevel  string
	logFormat string

	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// Run executes the command line in os.Args and returns the process exit code.
func Run() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	cmd := newRootCommand(out, errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           version.AppName,
		Short:         "Mask credentials in Kubernetes resource dumps",
		Long:          "secretmask rewrites Secrets, ConfigMaps and custom resources in place so that passwords, keys and connection-string credentials are replaced with a fixed marker.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.GitCommit,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetVersionTemplate(version.AppName + " {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.configDir, "config-dir", getEnv("CONFIG_DIR", "."), "path to the configuration directory")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.init(cmd)
	}

	cmd.AddCommand(
		newMaskCmd(a),
		newSplitCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)

	return cmd
}

// init sets up logging, loads .env from the config directory and the
// configuration file.
func (a *app) init(cmd *cobra.Command) error {
	if err := setupLogging(a.logLevel, a.logFormat, a.stderr); err != nil {
		return usageError(err)
	}

	envPath := filepath.Join(a.configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	cfg, err := config.Initialize(cmd.Context(), a.configDir)
	if err != nil {
		return failure(err)
	}
	a.cfg = cfg
	return nil
}

// errUsage marks errors caused by invalid command line input.
var errUsage = errors.New("usage error")

func usageError(err error) error {
	return fmt.Errorf("%w: %w", errUsage, err)
}

// exitCode maps a command error to the process exit code. Errors from flag
// and argument parsing never pass through our own wrappers, so anything
// that is not a runtime failure from a command body is a usage error.
func exitCode(err error) int {
	var runErr *runtimeError
	switch {
	case errors.Is(err, errUsage):
		return ExitUsage
	case errors.As(err, &runErr):
		return ExitFailure
	default:
		return ExitUsage
	}
}

// runtimeError is returned by command bodies for failures that are not
// caused by the command line.
type runtimeError struct {
	err error
}

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func failure(err error) error {
	if err == nil {
		return nil
	}
	return &runtimeError{err: err}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Root command, global flags and per-invocation setup.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/threadkit/internal/api"
	"github.com/jeranaias/threadkit/internal/config"
	"github.com/jeranaias/threadkit/internal/logging"
	"github.com/jeranaias/threadkit/internal/threads"
)

// Build info, set via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// lenientConfig marks commands that still run when the config file is invalid,
// so a broken file can be repaired from the CLI.
const lenientConfig = "threadkit/lenient-config"

type globalOptions struct {
	configPath  string
	output      string
	baseURL     string
	logLevel    string
	noColor     bool
	timeout     time.Duration
	metricsFile string
}

// app holds the state shared by the commands of one invocation.
type app struct {
	opts globalOptions

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	client   *api.Client
	svc      *threads.Service
	printer  *printer
	registry *prometheus.Registry
}

// NewRootCommand builds the threadkit command tree reading from in and
// writing results to out and diagnostics to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root, _ := newRoot(in, out, errOut)
	return root
}

func newRoot(in io.Reader, out, errOut io.Writer) (*cobra.Command, *app) {
	a := &app{
		in:       in,
		out:      out,
		errOut:   errOut,
		registry: prometheus.NewRegistry(),
	}

	root := &cobra.Command{
		Use:     "threadkit",
		Short:   "Manage assistant threads and messages",
		Long:    "threadkit creates, inspects, updates and deletes conversation threads\nand posts messages to them through the remote assistant API.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(fmt.Sprintf("threadkit %s (commit %s, built %s)\n", Version, GitCommit, BuildDate))
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default $THREADKIT_HOME/config.toml)")
	flags.StringVarP(&a.opts.output, "output", "o", "", "output format: text, json or yaml")
	flags.StringVar(&a.opts.baseURL, "base-url", "", "API base URL")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "disable colored output")
	flags.DurationVar(&a.opts.timeout, "timeout", 0, "per-request timeout (e.g. 30s)")
	flags.StringVar(&a.opts.metricsFile, "metrics-textfile", "", "write request metrics to this file in Prometheus text format")

	root.AddCommand(
		newThreadCommand(a),
		newMessageCommand(a),
		newConfigCommand(a),
		newAuthCommand(a),
		newVersionCommand(a),
	)
	return root, a
}

// setup loads configuration, applies global flags and builds the API client.
func (a *app) setup(cmd *cobra.Command) error {
	lenient := cmd.Annotations[lenientConfig] == "true"

	cfg, loadErr := a.loadConfig()
	if cfg == nil {
		if !lenient {
			return &ConfigError{Path: a.opts.configPath, Err: loadErr}
		}
		cfg = config.Default()
	}

	if err := a.applyFlags(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logging.Init(cfg.Log.Level, cfg.Log.Format, a.errOut)
	if loadErr != nil {
		logging.L().Warn("config_load_failed", "error", loadErr)
	}

	color := !a.opts.noColor && ColorsEnabled(cfg.Output.Color, a.out)
	applyColorProfile(color)
	a.printer = &printer{
		out:     a.out,
		format:  strings.ToLower(cfg.Output.Format),
		color:   color,
		width:   terminalWidth(a.out),
		command: commandName(cmd),
	}

	metrics, err := api.NewMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	timeout := cfg.Timeout()
	if a.opts.timeout > 0 {
		timeout = a.opts.timeout
	}

	api.UserAgent = "threadkit/" + Version
	a.client = api.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(timeout).
		WithOrganization(cfg.API.Organization).
		WithBeta(cfg.BetaHeader()).
		WithLogger(logging.L()).
		WithMetrics(metrics)
	a.svc = threads.NewService(a.client)

	logging.L().Debug("client_ready",
		"base_url", a.client.BaseURL(),
		"key", a.client.APIKeyMasked(),
		"timeout", timeout.String())
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.opts.configPath != "" {
		return config.LoadFromPath(a.opts.configPath)
	}
	return config.Load()
}

// applyFlags overlays global flags on cfg and revalidates it.
func (a *app) applyFlags(cfg *config.Config) error {
	if a.opts.output != "" {
		cfg.Output.Format = a.opts.output
	}
	if a.opts.baseURL != "" {
		cfg.API.BaseURL = a.opts.baseURL
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.noColor {
		cfg.Output.Color = "never"
	}
	if a.opts.timeout < 0 || a.opts.timeout > config.MaxTimeoutSecs*time.Second {
		return NewValidationErrorWithExample("--timeout", a.opts.timeout.String(),
			fmt.Sprintf("must be between 0 and %ds", config.MaxTimeoutSecs), "--timeout 30s")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}
	return nil
}

// jsonMode reports whether errors should be written as JSON.
func (a *app) jsonMode() bool {
	if a.printer != nil {
		return a.printer.jsonMode()
	}
	if a.opts.output != "" {
		return strings.EqualFold(a.opts.output, FormatJSON)
	}
	return strings.EqualFold(os.Getenv("THREADKIT_OUTPUT"), FormatJSON)
}

func (a *app) writeMetrics() error {
	if a.opts.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func commandName(cmd *cobra.Command) string {
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root, a := newRoot(in, out, errOut)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if mErr := a.writeMetrics(); mErr != nil && err == nil {
		err = mErr
	}
	if err == nil {
		return ExitSuccess
	}

	if strings.HasPrefix(err.Error(), "unknown command") {
		err = &usageError{err: err}
	}
	name := ""
	if cmd != nil {
		name = commandName(cmd)
	}
	if a.jsonMode() {
		DisplayError(out, name, err, true)
	} else {
		DisplayError(errOut, name, err, false)
	}
	return GetExitCode(err)
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// lenient marks cmd as runnable with an invalid config file.
func lenient(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[lenientConfig] = "true"
	return cmd
}

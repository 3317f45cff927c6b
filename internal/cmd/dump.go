package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/planflat/internal/config"
	"github.com/harrison/planflat/internal/display"
	"github.com/harrison/planflat/internal/filelock"
	"github.com/harrison/planflat/internal/flatten"
	"github.com/harrison/planflat/internal/history"
	"github.com/harrison/planflat/internal/hook"
	"github.com/harrison/planflat/internal/logger"
	"github.com/harrison/planflat/internal/plan"
	"github.com/harrison/planflat/internal/publish"
)

// NewDumpCommand creates the dump command
func NewDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <plan-name-or-path>",
		Short: "Flatten a plan into its dump directory",
		Long: `Flatten a plan directory into <dump_dir>/<plan-name>.

The plan is given either as a directory path or as a name under plans_dir.
When the bare name is not found, each configured plan suffix is tried in
turn. An existing dump of the same plan is removed first.

After a successful dump the post command (if configured) runs with the
output directory as its argument. A failing post command only warns.

Examples:
  planflat dump 8-debug-script-bake-in
  planflat dump ./docs/plans/8-debug-script-bake-in
  planflat dump 8 --dry-run                  # Show the name mapping only
  planflat dump 8 --exclude '*.tmp' --table  # Skip temp files, print the mapping
  planflat dump 8 --post-command jk-gcm      # Run jk-gcm on the dump directory
  planflat dump 8 --manifest dump.yaml       # Record the mapping as YAML
  planflat dump 8 --publish                  # Upload the dump to S3`,
		Args: cobra.ExactArgs(1),
		RunE: runDump,
	}

	cmd.Flags().String("plans-dir", "", "Directory holding plans (default: docs/plans)")
	cmd.Flags().String("dump-dir", "", "Directory receiving dumps (default: scratch/dumps)")
	cmd.Flags().Bool("dry-run", false, "Resolve flat names without preparing or copying anything")
	cmd.Flags().String("post-command", "", "Command run on the output directory after the dump")
	cmd.Flags().Bool("no-post", false, "Skip the post command (overrides config)")
	cmd.Flags().Bool("publish", false, "Upload the dump to the configured S3 bucket")
	cmd.Flags().String("manifest", "", "Write a YAML manifest of the mapping to this path (- for stdout)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().StringSlice("exclude", nil, "Basename glob to skip (repeatable)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("table", false, "Print the relative path -> flat name table")
	cmd.Flags().BoolP("quiet", "q", false, "No console log output (warnings and tables still print)")

	return cmd
}

// dumpFlagOverrides collects the flags that were explicitly set.
func dumpFlagOverrides(cmd *cobra.Command) config.FlagOverrides {
	var o config.FlagOverrides
	flags := cmd.Flags()

	if flags.Changed("plans-dir") {
		v, _ := flags.GetString("plans-dir")
		o.PlansDir = &v
	}
	if flags.Changed("dump-dir") {
		v, _ := flags.GetString("dump-dir")
		o.DumpDir = &v
	}
	if flags.Changed("exclude") {
		v, _ := flags.GetStringSlice("exclude")
		o.Exclude = &v
	}
	if flags.Changed("post-command") {
		v, _ := flags.GetString("post-command")
		o.PostCommand = &v
	}
	if noPost, _ := flags.GetBool("no-post"); noPost {
		empty := ""
		o.PostCommand = &empty
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		v = strings.ToLower(v)
		o.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		o.LogDir = &v
	}
	if flags.Changed("publish") {
		v, _ := flags.GetBool("publish")
		o.Publish = &v
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		disabled := false
		o.History = &disabled
	}
	return o
}

// newRunLogger builds the console logger (a no-op when quiet) plus, when
// logDir is set, a per-run file logger. The returned close func is always
// safe to call.
func newRunLogger(out, errOut io.Writer, cfg *config.Config, quiet bool) (logger.Logger, func()) {
	var console logger.Logger = logger.NewConsoleLogger(out, cfg.LogLevel)
	if quiet {
		console = logger.NewNoOpLogger()
	}
	if cfg.LogDir == "" {
		return console, func() {}
	}

	fileLogger, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		display.Warning{
			Title:   "Run log disabled",
			Message: err.Error(),
		}.Display(errOut)
		return console, func() {}
	}
	return logger.NewMultiLogger(console, fileLogger), func() { fileLogger.Close() }
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(dumpFlagOverrides(cmd))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	showTable, _ := cmd.Flags().GetBool("table")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	quiet, _ := cmd.Flags().GetBool("quiet")

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	log, closeLog := newRunLogger(out, errOut, cfg, quiet)
	defer closeLog()
	log.LogTrace(fmt.Sprintf("Config: plans_dir=%s dump_dir=%s suffixes=%v exclude=%v post_command=%q post_shell=%s %v history=%t publish=%t",
		cfg.PlansDir, cfg.DumpDir, cfg.PlanSuffixes, cfg.Exclude, cfg.PostCommand,
		cfg.PostShell, cfg.PostShellArgs, cfg.History.Enabled, cfg.Publish.Enabled))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	source, err := plan.Locate(args[0], cfg.PlansDir, cfg.PlanSuffixes)
	if err != nil {
		return err
	}
	name := filepath.Base(source)
	log.LogInfo(fmt.Sprintf("Found plan directory: %s", source))
	log.LogInfo(fmt.Sprintf("Plan name: %s", name))

	var dest string
	if dryRun {
		if dest, err = plan.OutputDir(cfg.DumpDir, name); err != nil {
			return err
		}
	} else {
		lock, err := filelock.AcquireDump(cfg.DumpDir, name)
		if err != nil {
			return err
		}
		defer lock.Unlock()

		var cleared bool
		dest, cleared, err = plan.PrepareOutput(cfg.DumpDir, name)
		if err != nil {
			return err
		}
		if cleared {
			log.LogInfo(fmt.Sprintf("Cleared existing dump directory: %s", dest))
		}
	}
	log.LogInfo(fmt.Sprintf("Output directory: %s", dest))

	opts := []flatten.Option{flatten.WithLogger(log), flatten.WithExclude(cfg.Exclude)}
	if dryRun {
		opts = append(opts, flatten.WithDryRun())
	}
	summary, runErr := flatten.Flatten(ctx, source, dest, opts...)

	run := history.NewRun(name, source, dest, started, summary, runErr)
	if runErr != nil {
		recordRun(ctx, cfg, run, log)
		log.LogError(fmt.Sprintf("Dump of %s failed", name))
		return runErr
	}

	if summary.Empty() {
		display.WarnNoFiles(source).Display(errOut)
	} else if !dryRun && cfg.PostCommand != "" {
		runPostCommand(ctx, cfg, dest, log, errOut)
	}

	recordRun(ctx, cfg, run, log)

	if cfg.Publish.Enabled && !dryRun && !summary.Empty() {
		publishDump(ctx, cfg, name, run.ID, dest, summary, log, errOut)
	}

	if manifestPath != "" {
		if err := writeManifest(out, manifestPath, display.NewManifest(name, run.ID, summary, time.Now())); err != nil {
			return err
		}
	}

	if showTable || dryRun {
		display.MappingTable(out, summary.Files)
	}
	log.LogSummary(summary)
	return nil
}

func runPostCommand(ctx context.Context, cfg *config.Config, dest string, log logger.Logger, errOut io.Writer) {
	log.LogInfo(fmt.Sprintf("Running post command: %s", cfg.PostCommand))

	runner := hook.NewShellRunner(cfg.PostShell, "", cfg.PostShellArgs...)
	output, err := runner.Run(ctx, cfg.PostCommand, dest)
	if err != nil {
		display.WarnPostCommand(cfg.PostCommand, err, output).Display(errOut)
		return
	}

	log.LogInfo("Post command completed successfully")
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		log.LogInfo(fmt.Sprintf("Output: %s", trimmed))
	}
}

// recordRun stores run in the history database. History problems never fail
// the dump; they are logged as warnings.
func recordRun(ctx context.Context, cfg *config.Config, run *history.Run, log logger.Logger) {
	if !cfg.History.Enabled {
		return
	}

	dbPath, err := config.GetHistoryDBPath(cfg.History.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	defer store.Close()

	if err := store.Record(ctx, run); err != nil {
		log.LogWarn(fmt.Sprintf("History not recorded: %v", err))
		return
	}
	log.LogDebug(fmt.Sprintf("Recorded run %s", run.ID))

	if removed, err := store.Prune(ctx, cfg.History.KeepRuns); err != nil {
		log.LogWarn(fmt.Sprintf("History prune failed: %v", err))
	} else if removed > 0 {
		log.LogDebug(fmt.Sprintf("Pruned %d old runs", removed))
	}
}

func publishDump(ctx context.Context, cfg *config.Config, name, runID, dest string, summary *flatten.Summary, log logger.Logger, errOut io.Writer) {
	publisher, err := publish.New(publish.Config{
		Endpoint:  cfg.Publish.Endpoint,
		Region:    cfg.Publish.Region,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		Bucket:    cfg.Publish.Bucket,
		Prefix:    cfg.Publish.Prefix,
		UseSSL:    cfg.Publish.UseSSL,
	})
	if err != nil {
		display.WarnPublish(err).Display(errOut)
		return
	}

	result, err := publisher.Publish(ctx, name, runID, dest, summary.Files)
	if err != nil {
		display.WarnPublish(err).Display(errOut)
		return
	}
	log.LogInfo(fmt.Sprintf("Published %d files to %s", result.Objects, result.Location()))
}

func writeManifest(out io.Writer, path string, manifest display.Manifest) error {
	data, err := manifest.Render()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err := out.Write(data)
		return err
	}
	if err := filelock.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ExitCode maps a command error to the process exit status: 2 when the
// plan was not found, 3 when another dump holds the lock, 4 for flatten
// errors and 1 for anything else.
func ExitCode(err error) int {
	var fe *flatten.Error
	switch {
	case err == nil:
		return 0
	case errors.Is(err, plan.ErrPlanNotFound):
		return 2
	case errors.Is(err, filelock.ErrLocked):
		return 3
	case errors.As(err, &fe):
		return 4
	default:
		return 1
	}
}

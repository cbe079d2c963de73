package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/config"
	"github.com/steveyegge/inbox/internal/debug"
	"github.com/steveyegge/inbox/internal/eventbus"
	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/inboxapi"
	"github.com/steveyegge/inbox/internal/telemetry"
	"github.com/steveyegge/inbox/internal/types"
	"github.com/steveyegge/inbox/internal/ui"
)

// Version is set at build time.
var Version = "dev"

// backend builds the remote service and its detail fetcher.
type backend func(a *app) (inbox.Service, inbox.IssueDetail, error)

// app carries the global flags and per-invocation state shared by commands.
type app struct {
	cfgFile    string
	workspace  string
	project    string
	jsonOutput bool
	format     string
	verbose    bool
	quiet      bool
	logFile    string
	noPager    bool

	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	newBackend backend
	log        zerolog.Logger
	closeLog   func()

	// detail is the fetcher handed to the store, kept for show output.
	detail inbox.IssueDetail
	// lastRollback holds the failure message of the latest rolled back mutation.
	lastRollback string
}

func newApp() *app {
	return &app{
		out:        os.Stdout,
		errOut:     os.Stderr,
		now:        time.Now,
		newBackend: httpBackend,
		log:        zerolog.Nop(),
		closeLog:   func() {},
	}
}

// httpBackend talks to the configured REST API.
func httpBackend(a *app) (inbox.Service, inbox.IssueDetail, error) {
	base := config.GetString(config.KeyAPIURL)
	if base == "" {
		return nil, nil, fmt.Errorf("api.url is not configured (set it with 'inbox config set %s <url>' or %s)",
			config.KeyAPIURL, config.EnvKey(config.KeyAPIURL))
	}
	client := inboxapi.NewClient(base, config.GetString(config.KeyAPIToken)).
		WithMaxElapsed(config.GetMaxRetryElapsed()).
		WithLogger(debug.Component("api"))
	client.HTTPClient.Timeout = config.GetAPITimeout()
	return client, inboxapi.NewDetailClient(client), nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "inbox",
		Short:         "inbox - triage a project's incoming issues",
		Long:          `Review, accept, decline, snooze and de-duplicate the issues waiting in a project's inbox.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: .inbox/config.yaml, then ~/.config/inbox/config.yaml)")
	pf.StringVar(&a.workspace, "workspace", "", "Workspace slug (default: config 'workspace')")
	pf.StringVar(&a.project, "project", "", "Project id (default: config 'project')")
	pf.BoolVar(&a.jsonOutput, "json", false, "Output in JSON format (same as --format json)")
	pf.StringVar(&a.format, "format", "table", "Output format: table, json or yaml")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output (errors only)")
	pf.StringVar(&a.logFile, "log-file", "", "Write logs to this file (default: config 'log.file', else stderr)")
	pf.BoolVar(&a.noPager, "no-pager", false, "Do not pipe long output through a pager")

	rootCmd.AddGroup(&cobra.Group{ID: "triage", Title: "Triage:"})
	rootCmd.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})

	rootCmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newAcceptCmd(a),
		newDeclineCmd(a),
		newSnoozeCmd(a),
		newDuplicateCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// setup loads config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.InitializeWithFile(a.cfgFile); err != nil {
		return err
	}
	if a.workspace != "" {
		config.Set(config.KeyWorkspace, a.workspace)
	}
	if a.project != "" {
		config.Set(config.KeyProject, a.project)
	}
	if a.jsonOutput {
		a.format = formatJSON
	}
	if !validFormats[a.format] {
		return fmt.Errorf("invalid --format %q (valid: table, json, yaml)", a.format)
	}

	debug.SetVerbose(a.verbose)
	debug.SetQuiet(a.quiet)
	logFile := a.logFile
	if logFile == "" {
		logFile = config.GetString(config.KeyLogFile)
	}
	log, closeLog, err := debug.New(debug.Level(config.GetString(config.KeyLogLevel)), logFile)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	debug.SetLogger(log)
	a.log = log
	a.closeLog = closeLog

	if err := telemetry.Init(cmd.Context(), "inbox", Version); err != nil {
		cliLog := debug.Component("cli")
		cliLog.Warn().Err(err).Msg("telemetry disabled")
	}
	ui.ApplyColorProfile()
	return nil
}

func (a *app) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	telemetry.Shutdown(ctx)
	a.closeLog()
}

// scope returns the configured workspace and project.
func (a *app) scope() (types.Scope, error) {
	scope := config.GetScope()
	if err := scope.Validate(); err != nil {
		return scope, fmt.Errorf("%w (use --workspace/--project or 'inbox config set')", err)
	}
	return scope, nil
}

// newStore wires a store to the backend, the event bus and the config.
func (a *app) newStore(opts ...inbox.Option) (*inbox.Store, error) {
	scope, err := a.scope()
	if err != nil {
		return nil, err
	}
	svc, detail, err := a.newBackend(a)
	if err != nil {
		return nil, err
	}
	a.detail = detail

	bus := eventbus.New(debug.Component("bus"))
	bus.Register(&eventbus.LogHandler{Log: debug.Component("events")})
	bus.Subscribe("cli-rollback", func(_ context.Context, ev *eventbus.Event) error {
		a.lastRollback = ev.Error
		return nil
	}, eventbus.EventRolledBack)

	base := []inbox.Option{
		inbox.WithPageSize(config.GetPerPage()),
		inbox.WithLogger(debug.Component("store")),
		inbox.WithBus(bus),
		inbox.WithMeter(telemetry.Meter("")),
		inbox.WithTab(config.GetDefaultTab()),
		inbox.WithSorting(config.GetSorting()),
	}
	return inbox.NewStore(scope, telemetry.WrapService(svc), detail, append(base, opts...)...), nil
}

// loadIssue fetches one issue into a fresh store.
func (a *app) loadIssue(ctx context.Context, issueID string) (*inbox.Store, *inbox.Issue, error) {
	store, err := a.newStore()
	if err != nil {
		return nil, nil, err
	}
	rec := store.FetchByID(ctx, issueID)
	if rec == nil {
		return nil, nil, fmt.Errorf("could not load inbox issue %s", issueID)
	}
	return store, rec, nil
}

// rolledBack builds the error returned when a mutation was undone.
func (a *app) rolledBack(op, issueID string) error {
	msg := a.lastRollback
	if msg == "" {
		msg = "remote rejected the change"
	}
	return fmt.Errorf("%s %s rolled back: %s", op, issueID, msg)
}

// printf writes unless --quiet.
func (a *app) printf(format string, args ...interface{}) {
	if debug.IsQuiet() {
		return
	}
	fmt.Fprintf(a.out, format, args...)
}

func run(ctx context.Context, a *app, args []string) error {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	if err := run(ctx, a, os.Args[1:]); err != nil {
		if a.format == formatJSON {
			outputJSONError(a.errOut, err)
		} else {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
		}
		if errors.Is(err, context.Canceled) {
			stop()
			os.Exit(130)
		}
		stop()
		os.Exit(1)
	}
}

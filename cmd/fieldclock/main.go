// Package main provides the CLI entrypoint for fieldclock.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/fieldclock/internal/config"
	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/report"
	"github.com/verte-zerg/fieldclock/internal/session"
	"github.com/verte-zerg/fieldclock/internal/store"
	"github.com/verte-zerg/fieldclock/internal/tui"
	"github.com/verte-zerg/fieldclock/internal/webhook"
)

const (
	defaultDebounce    = "timer"
	defaultDebounceMs  = 2000
	defaultSuccessMs   = 3000
	defaultErrorMs     = 4000
	defaultHistoryDays = webhook.DefaultHistoryDays
	defaultTimeoutMs   = 0
	maxHistoryDays     = 366
	defaultEditReason  = "corrected from fieldclock"
	clockDisplayLayout = "3:04 PM"
)

var (
	rootConfigPath string
	rootDebug      bool
	rootTech       string
	rootBaseURL    string
	rootDebounce   string
	rootDebounceMs int
	rootDays       int
	rootTimeoutMs  int

	mileageDate  string
	mileageMiles string
	mileageDesc  string

	historyWeek bool

	editShift  string
	editField  string
	editOld    string
	editNew    string
	editReason string
)

// settings is the resolved configuration after file, env and flags.
type settings struct {
	Endpoints      webhook.Endpoints
	Debounce       session.DebouncePolicy
	DebounceWindow time.Duration
	SuccessTTL     time.Duration
	ErrorTTL       time.Duration
	HistoryDays    int
	Timeout        time.Duration
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fieldclock",
		Short:         "Clock in/out and log mileage for a field crew",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTUICmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/fieldclock/config.toml)")
	flags.BoolVar(&rootDebug, "debug", false, "write debug logs (TUI: to the state dir, CLI: to stderr)")
	flags.StringVar(&rootTech, "tech", "", "technician name")
	flags.StringVar(&rootBaseURL, "base-url", "", "base URL of the webhook endpoints")
	flags.StringVar(&rootDebounce, "debounce", defaultDebounce, "clock debounce policy: timer or completion")
	flags.IntVar(&rootDebounceMs, "debounce-ms", defaultDebounceMs, "debounce window in milliseconds (timer policy)")
	flags.IntVar(&rootDays, "days", defaultHistoryDays, "history window in days")
	flags.IntVar(&rootTimeoutMs, "timeout-ms", defaultTimeoutMs, "request timeout in milliseconds (0: none)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTechsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newClockCmd("in", "Clock in", model.ActionClockIn))
	rootCmd.AddCommand(newClockCmd("out", "Clock out", model.ActionClockOut))
	rootCmd.AddCommand(newMileageCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newEditCmd())

	return rootCmd
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := discardLogger()
	if rootDebug {
		logPath := config.DefaultLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := tea.LogToFile(logPath, "fieldclock")
		if err != nil {
			return fmt.Errorf("failed to open debug log: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close debug log: %v\n", cerr)
			}
		}()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	mgr := session.NewManager(session.NewDebounce(cfg.Debounce, cfg.DebounceWindow))
	snap, err := st.LoadSnapshot(context.Background())
	if err != nil {
		logErrf("ignoring unreadable local state: %v\n", err)
	} else if snap.Technician != "" {
		mgr.Restore(snap)
	}

	m := tui.NewModel(tui.Options{
		Remote:      newClient(cfg, logger),
		Store:       st,
		Manager:     mgr,
		Logger:      logger,
		Technician:  rootTech,
		HistoryDays: cfg.HistoryDays,
		SuccessTTL:  cfg.SuccessTTL,
		ErrorTTL:    cfg.ErrorTTL,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newTechsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "techs",
		Short: "List technicians",
		Args:  cobra.NoArgs,
		RunE:  runTechsCmd,
	}
}

func runTechsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	client := newClient(cfg, cliLogger())
	techs, err := client.Technicians(cmd.Context())
	if err != nil {
		logErrf("technician roster unavailable (%v); showing fallback\n", err)
	}
	lines := report.FormatTable([]string{"Name", "Rate", "Route mi"}, report.TechnicianRows(techs), map[int]bool{1: true, 2: true})
	return writeLines(cmd.OutOrStdout(), lines)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show clock status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(sess *cliSession) error {
				return writeLines(cmd.OutOrStdout(), []string{
					report.StatusLine(sess.mgr.Technician(), sess.mgr.Clock(), sess.mgr.Elapsed(time.Now()), time.Local),
				})
			})
		},
	}
}

func newClockCmd(use, short string, action model.ClockAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(sess *cliSession) error {
				return runClock(cmd, sess, action)
			})
		},
	}
}

func runClock(cmd *cobra.Command, sess *cliSession, action model.ClockAction) error {
	mgr := sess.mgr
	now := time.Now()
	var n session.Notice
	switch action {
	case model.ActionClockIn:
		if !mgr.CanClockIn() {
			return fmt.Errorf("%s is already clocked in since %s", mgr.Technician(), mgr.Clock().ClockInTime.Local().Format(clockDisplayLayout))
		}
		n = mgr.ClockIn(cmd.Context(), sess.client, now)
	default:
		if !mgr.CanClockOut() {
			return fmt.Errorf("%s is not clocked in", mgr.Technician())
		}
		n = mgr.ClockOut(cmd.Context(), sess.client, now)
	}
	return reportNotice(cmd, n)
}

func newMileageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mileage",
		Short: "Log a mileage entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := mileageDate
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			mc, err := session.NewMileageCommand(date, mileageMiles, mileageDesc)
			if err != nil {
				return err
			}
			return withSession(cmd, func(sess *cliSession) error {
				return reportNotice(cmd, sess.mgr.SubmitMileage(cmd.Context(), sess.client, mc, time.Now()))
			})
		},
	}
	cmd.Flags().StringVar(&mileageDate, "date", "", "entry date (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&mileageMiles, "miles", "", "miles driven")
	cmd.Flags().StringVar(&mileageDesc, "desc", "", "description")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent time and mileage entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(sess *cliSession) error {
				now := time.Now()
				view := sess.mgr.Ledger().HistoryView()
				if historyWeek {
					view = sess.mgr.Ledger().WeekView(now)
				}
				return report.WriteHistory(cmd.OutOrStdout(), view, sess.mgr.WeekTotal(now), report.TerminalWidth(os.Stdout))
			})
		},
	}
	cmd.Flags().BoolVar(&historyWeek, "week", false, "only the current week, oldest first")
	return cmd
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Correct a field of a recorded shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := model.EditRequest{
				ShiftID:  strings.TrimSpace(editShift),
				Field:    strings.TrimSpace(editField),
				OldValue: editOld,
				NewValue: editNew,
				Reason:   strings.TrimSpace(editReason),
			}
			if err := validateEdit(req); err != nil {
				return err
			}
			return withSession(cmd, func(sess *cliSession) error {
				return reportNotice(cmd, sess.mgr.EditEntry(cmd.Context(), sess.client, req))
			})
		},
	}
	cmd.Flags().StringVar(&editShift, "shift", "", "shift id")
	cmd.Flags().StringVar(&editField, "field", "", "field to change (clock_in, clock_out, hours_worked, date)")
	cmd.Flags().StringVar(&editOld, "old", "", "current value")
	cmd.Flags().StringVar(&editNew, "new", "", "new value")
	cmd.Flags().StringVar(&editReason, "reason", defaultEditReason, "reason for the change")
	return cmd
}

func validateEdit(req model.EditRequest) error {
	if req.ShiftID == "" {
		return fmt.Errorf("--shift must not be empty")
	}
	if req.Field == "" {
		return fmt.Errorf("--field must not be empty")
	}
	if req.NewValue == "" {
		return fmt.Errorf("--new must not be empty")
	}
	return nil
}

// cliSession is the state a one-shot subcommand works on: the local
// snapshot, refreshed from the remote status and history.
type cliSession struct {
	mgr    *session.Manager
	client *webhook.Client
}

func withSession(cmd *cobra.Command, fn func(*cliSession) error) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		logErrf("ignoring unreadable local state: %v\n", err)
		snap = model.Snapshot{}
	}

	tech, err := resolveTech(rootTech, snap.Technician)
	if err != nil {
		return err
	}
	// One call per process: release the flag on reconciliation.
	mgr := session.NewManager(session.NewDebounce(session.DebounceCompletion, cfg.DebounceWindow))
	if tech == snap.Technician {
		mgr.Restore(snap)
	} else {
		mgr.Select(tech)
		if err := st.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear local state: %w", err)
		}
	}

	client := newClient(cfg, cliLogger())
	ticket := mgr.StatusTicket()
	epoch := mgr.Epoch()
	status, statusErr := client.Status(ctx, tech)
	if statusErr != nil {
		logErrf("status unavailable, using local state: %v\n", statusErr)
	}
	mgr.ApplyStatus(ticket, status, statusErr, time.Now())
	history, historyErr := client.History(ctx, tech, cfg.HistoryDays)
	if historyErr != nil {
		logErrf("history unavailable: %v\n", historyErr)
	} else {
		mgr.ApplyHistory(epoch, history)
	}

	runErr := fn(&cliSession{mgr: mgr, client: client})
	if err := st.SaveSnapshot(ctx, mgr.Snapshot()); err != nil {
		logErrf("failed to save local state: %v\n", err)
	}
	return runErr
}

func resolveTech(flagTech, storedTech string) (string, error) {
	if tech := strings.TrimSpace(flagTech); tech != "" {
		return tech, nil
	}
	if storedTech != "" {
		return storedTech, nil
	}
	return "", fmt.Errorf("no technician selected; pass --tech <name>")
}

func reportNotice(cmd *cobra.Command, n session.Notice) error {
	switch n.Kind {
	case session.NoticeError:
		return fmt.Errorf("%s", n.Text)
	case session.NoticeSuccess:
		return writeLines(cmd.OutOrStdout(), []string{n.Text})
	default:
		return nil
	}
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	if err := config.LoadDotEnv(".env", filepath.Join(config.XDGConfigHome(), "fieldclock", ".env")); err != nil {
		return settings{}, err
	}
	fileCfg, err := config.LoadConfig(configPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(&fileCfg, os.LookupEnv); err != nil {
		return settings{}, err
	}

	applyStringConfig(cmd, "debounce", &rootDebounce, fileCfg.Session.Debounce)
	applyIntConfig(cmd, "debounce-ms", &rootDebounceMs, fileCfg.Session.DebounceMs)
	applyIntConfig(cmd, "days", &rootDays, fileCfg.Session.HistoryDays)
	applyIntConfig(cmd, "timeout-ms", &rootTimeoutMs, fileCfg.Session.TimeoutMs)
	if cmd.Flags().Changed("base-url") {
		base := rootBaseURL
		fileCfg.Endpoints.BaseURL = &base
	}

	successMs := defaultSuccessMs
	errorMs := defaultErrorMs
	if fileCfg.Session.SuccessToastMs != nil {
		successMs = *fileCfg.Session.SuccessToastMs
	}
	if fileCfg.Session.ErrorToastMs != nil {
		errorMs = *fileCfg.Session.ErrorToastMs
	}

	policy, err := session.ParseDebouncePolicy(rootDebounce)
	if err != nil {
		return settings{}, fmt.Errorf("invalid --debounce: %w", err)
	}
	cfg := settings{
		Endpoints:      config.ResolveEndpoints(fileCfg.Endpoints),
		Debounce:       policy,
		DebounceWindow: time.Duration(rootDebounceMs) * time.Millisecond,
		SuccessTTL:     time.Duration(successMs) * time.Millisecond,
		ErrorTTL:       time.Duration(errorMs) * time.Millisecond,
		HistoryDays:    rootDays,
		Timeout:        time.Duration(rootTimeoutMs) * time.Millisecond,
	}
	if err := validateSettings(cfg); err != nil {
		return settings{}, err
	}
	return cfg, nil
}

func validateSettings(cfg settings) error {
	if cfg.DebounceWindow <= 0 {
		return fmt.Errorf("--debounce-ms must be > 0")
	}
	if cfg.SuccessTTL <= 0 || cfg.ErrorTTL <= 0 {
		return fmt.Errorf("toast durations must be > 0")
	}
	if cfg.HistoryDays <= 0 || cfg.HistoryDays > maxHistoryDays {
		return fmt.Errorf("--days must be between 1 and %d", maxHistoryDays)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("--timeout-ms must be >= 0")
	}
	missing := missingEndpoints(cfg.Endpoints)
	if len(missing) > 0 {
		return fmt.Errorf("no URL configured for %s; set --base-url, FIELDCLOCK_BASE_URL or [endpoints] in %s",
			strings.Join(missing, ", "), configPath())
	}
	return nil
}

func missingEndpoints(e webhook.Endpoints) []string {
	var missing []string
	for _, ep := range []struct {
		name string
		url  string
	}{
		{config.PathTechnicians, e.Technicians},
		{config.PathClock, e.Clock},
		{config.PathStatus, e.Status},
		{config.PathMileage, e.Mileage},
		{config.PathHistory, e.History},
		{config.PathEdit, e.Edit},
	} {
		if ep.url == "" {
			missing = append(missing, ep.name)
		}
	}
	return missing
}

func newClient(cfg settings, logger *slog.Logger) *webhook.Client {
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return webhook.New(cfg.Endpoints, webhook.WithHTTPClient(hc), webhook.WithLogger(logger))
}

func cliLogger() *slog.Logger {
	if !rootDebug {
		return discardLogger()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func configPath() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	return config.DefaultConfigPath()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# fieldclock configuration
# Uncomment a value to enable it. FIELDCLOCK_* environment variables override
# config values; CLI flags override both.

[endpoints]
# base-url = "https://hooks.example.com/webhook"  # Endpoints default to <base-url>/<name>
# technicians = ""         # Full URL of the technician roster endpoint
# clock = ""               # Full URL of the clock in/out endpoint
# status = ""              # Full URL of the clock status endpoint
# mileage = ""             # Full URL of the mileage endpoint
# history = ""             # Full URL of the history endpoint
# edit = ""                # Full URL of the edit endpoint

[session]
# debounce = %q        # Clock debounce policy: timer or completion
# debounce-ms = %d        # Debounce window for the timer policy
# success-toast-ms = %d   # How long success messages stay visible
# error-toast-ms = %d     # How long error messages stay visible
# history-days = %d         # History window in days
# timeout-ms = %d            # Request timeout (0: none)
`,
		defaultDebounce,
		defaultDebounceMs,
		defaultSuccessMs,
		defaultErrorMs,
		defaultHistoryDays,
		defaultTimeoutMs,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

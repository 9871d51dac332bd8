package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/evigo/internal/config"
	"github.com/muurk/evigo/internal/logging"
	"github.com/muurk/evigo/internal/protocol"
	"github.com/muurk/evigo/internal/session"
	"github.com/muurk/evigo/internal/tui"
)

// Command flags
var (
	accountEmail  string
	endpoint      string
	watchSeconds  int
	dashboardMode bool
)

func init() {
	// Common flags for all commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&accountEmail, "email", "", "Account email (overrides config and EVIGO_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Dashboard WebSocket URL (default: production cloud)")

	// Watch flags also live on root so bare 'evigo' behaves like 'evigo watch'
	for _, flags := range []*cobra.Command{rootCmd, watchCmd} {
		flags.Flags().IntVar(&watchSeconds, "duration", 0, "Stop after this many seconds (0 = run until interrupted)")
		flags.Flags().BoolVar(&dashboardMode, "dashboard", false, "Render a full-screen live dashboard instead of line output")
	}

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(devicesCmd)
}

// watchCmd streams live telemetry for the first charger
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live charger telemetry",
	Long: `Connect to the dashboard cloud, authenticate, open the first
charger's status page, and print telemetry updates as they arrive.

The password is taken from ` + config.PasswordEnvVar + ` or prompted at the
terminal. It is never written to the config file.`,
	Example: `  # Watch until Ctrl-C
  evigo watch

  # Watch for two minutes with the full-screen dashboard
  evigo watch --dashboard --duration 120

  # Non-interactive use
  EVIGO_EMAIL=me@example.com EVIGO_PASSWORD=secret evigo watch`,
	RunE: runWatch,
}

// devicesCmd lists the chargers registered to the account
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List chargers registered to the account",
	Long: `Authenticate against the dashboard cloud and print the account's
charger list, then disconnect without opening a status page.`,
	RunE: runDevices,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	registry := loadRegistry()
	cfg, err := buildSessionConfig(registry)
	if err != nil {
		return err
	}
	rememberEmail(registry, cfg.Email)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seconds := watchSeconds
	if seconds == 0 && registry.Preferences != nil {
		seconds = registry.Preferences.WatchSeconds
	}
	if seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
		defer cancel()
	}

	if dashboardMode {
		return runDashboard(ctx, cfg)
	}

	cfg.OnWidgetUpdate = func(upd *protocol.WidgetUpdate) {
		fmt.Printf("%s  [%s] %s = %s\n",
			time.Now().Format("15:04:05"), upd.DeviceID, upd.WidgetName, upd.Value)
	}

	fmt.Printf("Connecting as %s...\n", cfg.Email)
	s := session.New(cfg, logging.GetLogger())
	err = s.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	fmt.Println("\nDisconnected.")
	return nil
}

// runDashboard drives the handshake step by step so the TUI can show
// progress, then hands every telemetry sample to the running program.
func runDashboard(ctx context.Context, cfg session.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewDashboard(), tea.WithAltScreen())

	cfg.OnWidgetUpdate = func(upd *protocol.WidgetUpdate) {
		p.Send(tui.UpdateMsg{Update: upd})
	}
	s := session.New(cfg, logging.GetLogger())

	go func() {
		defer s.Close()

		if err := dashboardHandshake(s, p); err != nil {
			p.Send(tui.DoneMsg{Err: err})
			return
		}

		for ctx.Err() == nil {
			if err := s.Keepalive(); err != nil {
				p.Send(tui.DoneMsg{Err: err})
				return
			}
			if _, err := s.Listen(session.SteadyListenTimeout); err != nil {
				p.Send(tui.DoneMsg{Err: err})
				return
			}
		}
		p.Send(tui.DoneMsg{})
	}()

	final, err := p.Run()

	// Unblock the session goroutine when the user quit the dashboard.
	cancel()
	_ = s.Close()

	if err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	if m, ok := final.(tui.DashboardModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func dashboardHandshake(s *session.Session, p *tea.Program) error {
	p.Send(tui.StatusMsg("connecting"))
	if err := s.Connect(); err != nil {
		return err
	}
	p.Send(tui.StatusMsg("negotiating"))
	if err := s.Initialize(); err != nil {
		return err
	}
	p.Send(tui.StatusMsg("logging in"))
	if err := s.Login(); err != nil {
		return err
	}
	p.Send(tui.StatusMsg("querying devices"))
	if err := s.QueryDevices(); err != nil {
		return err
	}

	device := s.Devices()[0]
	if device.DeviceID == nil {
		return fmt.Errorf("charger %q has no device ID", device.Name)
	}
	p.Send(tui.StatusMsg("opening " + device.Name))
	page, err := s.OpenDevicePage(*device.DeviceID)
	if err != nil {
		return err
	}
	s.ExtractWidgetMappings(0, page)

	email := ""
	if user := s.User(); user != nil {
		email = user.Email
	}
	p.Send(tui.ConnectedMsg{Email: email, Device: device.Name})
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeFromEnv(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	registry := loadRegistry()
	cfg, err := buildSessionConfig(registry)
	if err != nil {
		return err
	}
	rememberEmail(registry, cfg.Email)

	s := session.New(cfg, logging.GetLogger())
	defer s.Close()

	if err := s.Connect(); err != nil {
		return err
	}
	if err := s.Initialize(); err != nil {
		return err
	}
	if err := s.Login(); err != nil {
		return err
	}
	if err := s.QueryDevices(); err != nil {
		return err
	}

	devices := s.Devices()
	fmt.Printf("Found %d charger(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Name)
		if device.DeviceID != nil {
			fmt.Printf("   Device ID: %d\n", *device.DeviceID)
		}
		if device.Status != "" {
			fmt.Printf("   Status:    %s\n", device.Status)
		}
		fmt.Println()
	}

	fmt.Println("Use 'evigo watch' to stream live telemetry for the first charger")
	return nil
}

// loadRegistry reads the config file, falling back to defaults when it
// is missing or unreadable.
func loadRegistry() *config.Registry {
	registry, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("failed to load config, using defaults", zap.Error(err))
		return config.NewRegistry()
	}
	return registry
}

// buildSessionConfig resolves credentials and endpoint overrides into a
// ready session configuration, prompting for the password if needed.
func buildSessionConfig(registry *config.Registry) (session.Config, error) {
	creds := config.ResolveCredentials(registry, accountEmail, "")

	if creds.Email == "" && creds.SessionID == "" {
		return session.Config{}, fmt.Errorf(
			"no account configured; pass --email, set %s, or add it to the config file",
			config.EmailEnvVar)
	}
	if creds.Password == "" && creds.SessionID == "" {
		password, err := promptPassword(creds.Email)
		if err != nil {
			return session.Config{}, err
		}
		creds.Password = password
	}
	if !creds.Valid() {
		return session.Config{}, fmt.Errorf("incomplete credentials for %s", creds.Email)
	}

	wsURL := endpoint
	if wsURL == "" && registry.Preferences != nil {
		wsURL = registry.Preferences.Endpoint
	}

	return session.Config{
		Email:     creds.Email,
		Password:  creds.Password,
		SessionID: creds.SessionID,
		WSURL:     wsURL,
	}, nil
}

// promptPassword reads the password from the terminal without echo.
func promptPassword(email string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password not set; set %s or run from a terminal", config.PasswordEnvVar)
	}

	fmt.Printf("Password for %s: ", email)
	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// rememberEmail stores the account email for the next run. Save errors
// only warn; the session proceeds regardless.
func rememberEmail(registry *config.Registry, email string) {
	if email == "" {
		return
	}
	if registry.Account != nil && registry.Account.Email == email {
		return
	}
	registry.Account = &config.Account{Email: email}
	if err := registry.Save(); err != nil {
		logging.Warn("failed to save config", zap.Error(err))
	}
}

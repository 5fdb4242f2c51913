// Package main provides the CLI entry point for navctl.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fieldstone/navctl/internal/config"
	"github.com/fieldstone/navctl/internal/creds"
	"github.com/fieldstone/navctl/internal/launcher"
	"github.com/fieldstone/navctl/internal/logging"
	"github.com/fieldstone/navctl/internal/logs"
	"github.com/fieldstone/navctl/internal/menu"
	oshelpers "github.com/fieldstone/navctl/internal/os"
	"github.com/fieldstone/navctl/internal/ports"
	"github.com/fieldstone/navctl/internal/tui"
	"github.com/fieldstone/navctl/internal/version"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "navctl",
		Short: "Name & Address Validator launcher",
		Long: `navctl installs and operates the Name & Address Validator services:
the web UI and the validation API.

Start the interactive menu:
  navctl

Or use CLI commands:
  navctl run both
  navctl creds
  navctl status --json`,
		Run: runRoot,
	}

	runCmd = &cobra.Command{
		Use:       "run {ui|api|both}",
		Short:     "Start validator services",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"ui", "api", "both"},
		Run:       runRun,
	}

	menuCmd = &cobra.Command{
		Use:   "menu",
		Short: "Show the numbered menu and read a choice from stdin",
		Run:   runMenu,
	}

	credsCmd = &cobra.Command{
		Use:   "creds",
		Short: "Resolve USPS credentials, prompting if absent",
		Run:   runCreds,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show credential and port status",
		Run:   runStatus,
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Stop validator processes and free their ports",
		Run:   runCleanup,
	}

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Build the service binaries into the managed bin directory",
		Run:   runInstall,
	}

	logsCmd = &cobra.Command{
		Use:   "logs {ui|api}",
		Short: "Tail service logs",
		Args:  cobra.ExactArgs(1),
		Run:   runLogs,
	}

	systemdCmd = &cobra.Command{
		Use:   "systemd",
		Short: "Systemd unit management",
	}

	systemdInstallCmd = &cobra.Command{
		Use:   "install {ui|api}",
		Short: "Generate a systemd unit for a service",
		Args:  cobra.ExactArgs(1),
		Run:   runSystemdInstall,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if jsonOutput {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(data))
				return
			}
			fmt.Printf("navctl %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	runCmd.Flags().Int("port", 0, "Override the service port")
	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(credsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(installCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 50, "Number of lines to show")
	rootCmd.AddCommand(logsCmd)

	systemdInstallCmd.Flags().String("user", "", "System user to run as")
	systemdInstallCmd.Flags().Bool("dry-run", false, "Print the unit instead of writing it")
	systemdInstallCmd.MarkFlagRequired("user")
	systemdCmd.AddCommand(systemdInstallCmd)
	rootCmd.AddCommand(systemdCmd)

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.InitWithWriter(os.Stderr, level, cfg.LogFormat)
	return cfg, logger
}

// resolveCreds resolves credentials, prompting interactively when attached
// to a terminal. Missing credentials are never an error here: the services
// degrade to name-only validation.
func resolveCreds(cfg *config.Config, logger *slog.Logger, interactive bool) creds.Resolution {
	resolver := creds.NewResolver(cfg.CredFile, cfg.SecretsFile, logger)

	if interactive && term.IsTerminal(int(os.Stdin.Fd())) {
		resolution, err := resolver.EnsureInteractive(creds.NewTerminalPrompter())
		if err != nil {
			logger.Warn("credential prompt failed", "error", err)
			return resolver.Resolve()
		}
		return resolution
	}
	return resolver.Resolve()
}

func newLauncher(cfg *config.Config, logger *slog.Logger, interactive bool) *launcher.Launcher {
	resolution := resolveCreds(cfg, logger, interactive)
	return launcher.New(cfg, resolution, terminalConflictPrompter{}, logger)
}

// terminalConflictPrompter asks on stdin whether to kill a port occupant.
type terminalConflictPrompter struct{}

func (terminalConflictPrompter) ConfirmKill(service launcher.ServiceName, port int, occ *ports.Occupant) bool {
	fmt.Printf("Kill %s (pid %d) to free port %d for %s? [y/N]: ", occ.Command, occ.PID, port, service)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRoot(cmd *cobra.Command, args []string) {
	cfg, logger := setup()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Piped input: fall back to the numbered menu.
		runMenuWith(cfg, logger)
		return
	}

	l := newLauncher(cfg, logger, true)
	status := ""
	for _, p := range l.Status().Ports {
		if p.InUse {
			status = fmt.Sprintf("Port %d (%s) already in use", p.Port, p.Service)
			break
		}
	}

	action, chosen, err := tui.Run(status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !chosen {
		return
	}
	executeAction(cfg, logger, l, action)
}

func runMenu(cmd *cobra.Command, args []string) {
	cfg, logger := setup()
	runMenuWith(cfg, logger)
}

// runMenuWith prints the numbered menu, reads one choice, and runs it.
// Anything that is not a listed number exits with status 1.
func runMenuWith(cfg *config.Config, logger *slog.Logger) {
	fmt.Print(menu.Render())

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "Error: no input")
		os.Exit(1)
	}

	action, err := menu.Dispatch(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	l := newLauncher(cfg, logger, true)
	executeAction(cfg, logger, l, action)
}

func executeAction(cfg *config.Config, logger *slog.Logger, l *launcher.Launcher, action menu.Action) {
	ctx, cancel := signalContext()
	defer cancel()

	var err error
	switch action {
	case menu.ActionRunUI:
		_, err = l.Launch(ctx, launcher.ServiceUI, 0, true)
	case menu.ActionRunAPI:
		_, err = l.Launch(ctx, launcher.ServiceAPI, 0, true)
	case menu.ActionRunBoth:
		err = l.RunBoth(ctx)
	case menu.ActionInstall:
		err = l.Install(ctx)
	case menu.ActionCredentials:
		resolution := resolveCreds(cfg, logger, true)
		printCreds(resolution)
	case menu.ActionStatus:
		printStatus(l)
	case menu.ActionCleanup:
		l.Cleanup(ctx)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) {
	cfg, logger := setup()
	port, _ := cmd.Flags().GetInt("port")

	l := newLauncher(cfg, logger, true)

	ctx, cancel := signalContext()
	defer cancel()

	var err error
	switch args[0] {
	case "ui":
		_, err = l.Launch(ctx, launcher.ServiceUI, port, true)
	case "api":
		_, err = l.Launch(ctx, launcher.ServiceAPI, port, true)
	case "both":
		err = l.RunBoth(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printCreds(resolution creds.Resolution) {
	if jsonOutput {
		out := map[string]any{
			"available": resolution.Available,
			"source":    resolution.Source.String(),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}
	if resolution.Available {
		fmt.Printf("USPS credentials: present (%s)\n", resolution.Source)
	} else {
		fmt.Println("USPS credentials: absent (address validation disabled)")
	}
}

func runCreds(cmd *cobra.Command, args []string) {
	cfg, logger := setup()
	printCreds(resolveCreds(cfg, logger, true))
}

func printStatus(l *launcher.Launcher) {
	status := l.Status()
	if jsonOutput {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Print(status.Render())
	for _, service := range []string{"ui", "api"} {
		fmt.Printf("Unit validator-%s: %s\n", service, logs.UnitState(service))
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, logger := setup()
	printStatus(newLauncher(cfg, logger, false))
}

func runCleanup(cmd *cobra.Command, args []string) {
	cfg, logger := setup()

	ctx, cancel := signalContext()
	defer cancel()

	report := newLauncher(cfg, logger, false).Cleanup(ctx)
	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
	}
}

func runInstall(cmd *cobra.Command, args []string) {
	cfg, logger := setup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := newLauncher(cfg, logger, false).Install(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runLogs(cmd *cobra.Command, args []string) {
	cfg, _ := setup()
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")

	service := args[0]
	if service != "ui" && service != "api" {
		fmt.Fprintf(os.Stderr, "Error: unknown service %q\n", service)
		os.Exit(1)
	}

	source, err := logs.Open(service, cfg.LogDir(), follow, lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer source.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ch, err := source.Lines(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for line := range ch {
		fmt.Println(line)
	}
}

func runSystemdInstall(cmd *cobra.Command, args []string) {
	cfg, _ := setup()
	user, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	service := args[0]
	if service != "ui" && service != "api" {
		fmt.Fprintf(os.Stderr, "Error: unknown service %q\n", service)
		os.Exit(1)
	}

	binary := filepath.Join(cfg.BinDir(), "validator-"+service)
	port := cfg.APIPort
	if service == "ui" {
		port = cfg.UIPort
	}

	unitCfg := oshelpers.DefaultSystemdConfig(service, user, binary, port)
	unitCfg.EnvFile = cfg.CredFile

	unitPath, content, err := oshelpers.WriteSystemdUnit(unitCfg, dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dryRun {
		fmt.Println(content)
		return
	}
	fmt.Println(oshelpers.SystemdInstructions(unitPath))
}

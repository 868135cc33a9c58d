// Package main is the CLI entry point for blockd.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/focusshield/blockd/internal/autostart"
	"github.com/focusshield/blockd/internal/browser"
	"github.com/focusshield/blockd/internal/config"
	"github.com/focusshield/blockd/internal/daemon"
	"github.com/focusshield/blockd/internal/domain"
	"github.com/focusshield/blockd/internal/enforce"
	"github.com/focusshield/blockd/internal/hosts"
	"github.com/focusshield/blockd/internal/infra"
	"github.com/focusshield/blockd/internal/store"
	"github.com/focusshield/blockd/internal/urlpolicy"
	"github.com/focusshield/blockd/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "1.0.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// app bundles the wired components behind each command.
type app struct {
	cfg        config.Config
	store      *store.FileStore
	hosts      *hosts.Writer
	urls       *urlpolicy.Writer
	enforcer   *enforce.AppEnforcer
	recycler   *browser.Recycler
	reconciler *usecase.Reconciler
	inventory  domain.ProcessInventory
	lock       *daemon.FileLock
	autostart  *autostart.Manager
	logger     *zap.Logger
}

// newApp wires every component from one immutable config.
func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	inventory := infra.NewProcessInventory()
	control := infra.NewProcessControl()
	resolver := infra.NewResolverCache()
	specStore := store.New(cfg.SpecPath)

	hostsWriter := hosts.NewWriter(cfg.HostsPath, cfg.RedirectIP, cfg.MarkerStart, cfg.MarkerEnd, resolver, logger)
	urlWriter := urlpolicy.NewWriter(infra.NewRegistryPolicyBackend(), cfg.Vendors, logger)
	appEnforcer := enforce.New(inventory, control, logger)
	recycler := browser.New(cfg, inventory, control, logger)

	reconciler := usecase.NewReconciler(specStore, hostsWriter, urlWriter, appEnforcer, recycler, logger)
	lock := daemon.NewFileLock(cfg.LockPath, inventory, control, logger)
	runner := &infra.RealCommandRunner{}
	auto := autostart.NewManager(cfg.TaskName, runner, autostart.NewRegistryRunKey(), logger)

	return &app{
		cfg:        cfg,
		store:      specStore,
		hosts:      hostsWriter,
		urls:       urlWriter,
		enforcer:   appEnforcer,
		recycler:   recycler,
		reconciler: reconciler,
		inventory:  inventory,
		lock:       lock,
		autostart:  auto,
		logger:     logger,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "blockd",
	Short: "Website & app blocker",
	Long: `blockd blocks distracting websites via the hosts file and browser
URL policies, and kills blocked applications. A background daemon
re-applies everything on a fixed interval so edits don't stick.`,
	Version: Version,
}

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Apply the full block list now",
	Long: `Applies the configured block list to all three surfaces: hosts
file, browser URL policies, and running apps. Running browsers are
restarted so the new policy governs already-open tabs.`,
	RunE: requireAdmin(runBlock),
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Remove all blocks",
	RunE:  requireAdmin(runUnblock),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is currently blocked",
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List everything in the block list config",
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add a domain to the block list (www. pair added automatically)",
	Args:  cobra.ExactArgs(1),
	RunE:  requireAdmin(runAdd),
}

var removeCmd = &cobra.Command{
	Use:   "remove <domain>",
	Short: "Remove a domain from the block list",
	Args:  cobra.ExactArgs(1),
	RunE:  requireAdmin(runRemove),
}

var addURLCmd = &cobra.Command{
	Use:   "addurl <pattern>",
	Short: "Add a URL pattern to the browser policy block list",
	Args:  cobra.ExactArgs(1),
	RunE:  requireAdmin(runAddURL),
}

var removeURLCmd = &cobra.Command{
	Use:   "removeurl <pattern>",
	Short: "Remove a URL pattern from the browser policy block list",
	Args:  cobra.ExactArgs(1),
	RunE:  requireAdmin(runRemoveURL),
}

var addAppCmd = &cobra.Command{
	Use:   "addapp <name.exe>",
	Short: "Add an app to the blocked apps list",
	Long: `Adds a process image name to the blocked apps list and kills it
immediately if running. Use 'blockd listapps' to find the exact name.`,
	Args: cobra.ExactArgs(1),
	RunE: requireAdmin(runAddApp),
}

var removeAppCmd = &cobra.Command{
	Use:   "removeapp <name.exe>",
	Short: "Remove an app from the blocked apps list",
	Args:  cobra.ExactArgs(1),
	RunE:  requireAdmin(runRemoveApp),
}

var killAppsCmd = &cobra.Command{
	Use:   "killapps",
	Short: "Kill all blocked apps that are currently running",
	RunE:  requireAdmin(runKillApps),
}

var listAppsCmd = &cobra.Command{
	Use:   "listapps",
	Short: "List currently running processes",
	RunE:  runListApps,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the reconciliation loop",
	Long: `Runs the reconciliation loop: every interval the block list is
re-read and re-applied to the hosts file, browser policies, and
running apps. Takes over from any daemon already running.

With --detach the loop is spawned in the background and this
command returns immediately.`,
	RunE: requireAdmin(runDaemon),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE:  requireAdmin(runStop),
}

var autostartCmd = &cobra.Command{
	Use:       "autostart <install|uninstall|status>",
	Short:     "Manage the run-at-logon registration",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "status"},
	RunE:      runAutostart,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blockd %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	},
}

var detach bool

func init() {
	daemonCmd.Flags().BoolVar(&detach, "detach", false, "Run the daemon in the background")

	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(addURLCmd)
	rootCmd.AddCommand(removeURLCmd)
	rootCmd.AddCommand(addAppCmd)
	rootCmd.AddCommand(removeAppCmd)
	rootCmd.AddCommand(killAppsCmd)
	rootCmd.AddCommand(listAppsCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(versionCmd)
}

// requireAdmin wraps a command handler with the elevation check.
// Mutating the hosts file, HKLM policy keys, or other processes needs
// administrator rights; re-launch through UAC when we don't have them.
func requireAdmin(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if !infra.IsElevated() {
			fmt.Println("Requesting administrator privileges...")
			if err := infra.RelaunchElevated(); err != nil {
				return fmt.Errorf("elevation request failed: %w", err)
			}
			return nil
		}
		return run(cmd, args)
	}
}

func runBlock(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	result := a.reconciler.RunOnce(context.Background(), true)
	for _, cycleErr := range result.Errors {
		fmt.Printf("Error: %v\n", cycleErr)
	}

	fmt.Printf("Blocked %d sites.\n", result.DomainsWritten)
	for _, outcome := range result.VendorOutcomes {
		if outcome.Err == nil {
			fmt.Printf("Wrote %d URL patterns for %s.\n", outcome.Written, outcome.Vendor)
		}
	}
	if result.AppsKilled > 0 {
		fmt.Printf("Killed %d blocked app(s).\n", result.AppsKilled)
	}
	for _, name := range result.Recycled {
		fmt.Printf("Restarted %s so the new policy applies.\n", name)
	}
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	if err := a.reconciler.Teardown(); err != nil {
		return err
	}
	fmt.Println("All sites and URLs unblocked.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), zap.NewNop())
	if err != nil {
		return err
	}

	blocked, err := a.hosts.Blocked()
	if err != nil {
		return err
	}
	if len(blocked) > 0 {
		fmt.Println("Currently blocked sites:")
		for _, site := range blocked {
			fmt.Printf("  - %s\n", site)
		}
	} else {
		fmt.Println("No sites are currently blocked.")
	}

	spec, err := a.store.Load()
	if err != nil {
		return err
	}
	if len(spec.URLPatterns) > 0 {
		fmt.Println("\nBlocked URL patterns:")
		for _, pattern := range spec.URLPatterns {
			fmt.Printf("  - %s\n", pattern)
		}
	}
	if len(spec.ProcessNames) > 0 {
		fmt.Println("\nBlocked apps (killed when detected):")
		for _, name := range spec.ProcessNames {
			fmt.Printf("  - %s\n", name)
		}
	} else {
		fmt.Println("\nNo apps are being blocked.")
	}

	if holder, err := a.lock.Holder(); err == nil && holder != nil {
		if a.inventory.IsRunning(holder.PID) {
			fmt.Printf("\nDaemon: RUNNING (pid %d)\n", holder.PID)
		} else {
			fmt.Println("\nDaemon: NOT RUNNING (stale lock)")
		}
	} else {
		fmt.Println("\nDaemon: NOT RUNNING")
	}

	fmt.Printf("\nConfig file: %s\n", a.store.Path())
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), zap.NewNop())
	if err != nil {
		return err
	}

	spec, err := a.store.Load()
	if err != nil {
		return err
	}

	fmt.Println("Blocked sites:")
	for _, site := range spec.Domains {
		fmt.Printf("  - %s\n", site)
	}
	fmt.Println("\nBlocked URL patterns:")
	for _, pattern := range spec.URLPatterns {
		fmt.Printf("  - %s\n", pattern)
	}
	fmt.Println("\nBlocked apps:")
	for _, name := range spec.ProcessNames {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	added, err := a.store.AddDomain(args[0])
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Added '%s' to block list.\n", args[0])
	} else {
		fmt.Printf("'%s' is already in the block list.\n", args[0])
	}

	// Re-apply so the new entry takes effect immediately.
	return reapplyHosts(a)
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	removed, err := a.store.RemoveDomain(args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Removed '%s' from block list.\n", args[0])
	} else {
		fmt.Printf("'%s' was not in the block list.\n", args[0])
	}

	return reapplyHosts(a)
}

func reapplyHosts(a *app) error {
	spec, err := a.store.Load()
	if err != nil {
		return err
	}
	count, err := a.hosts.Apply(spec.Domains)
	if err != nil {
		return err
	}
	fmt.Printf("Blocked %d sites.\n", count)
	return nil
}

func runAddURL(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	added, err := a.store.AddURL(args[0])
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Added '%s' to URL block list.\n", args[0])
	} else {
		fmt.Printf("'%s' is already in the URL block list.\n", args[0])
	}

	return reapplyURLs(a)
}

func runRemoveURL(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	removed, err := a.store.RemoveURL(args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Removed '%s' from URL block list.\n", args[0])
	} else {
		fmt.Printf("'%s' was not in the URL block list.\n", args[0])
	}

	return reapplyURLs(a)
}

func reapplyURLs(a *app) error {
	spec, err := a.store.Load()
	if err != nil {
		return err
	}
	for _, outcome := range a.urls.Apply(spec.URLPatterns) {
		if outcome.Err != nil {
			fmt.Printf("Warning: %s policy not written: %v\n", outcome.Vendor, outcome.Err)
		} else {
			fmt.Printf("Wrote %d URL patterns for %s.\n", outcome.Written, outcome.Vendor)
		}
	}
	return nil
}

func runAddApp(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	added, err := a.store.AddApp(args[0])
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Added '%s' to blocked apps.\n", args[0])
	} else {
		fmt.Printf("'%s' is already in the blocked apps list.\n", args[0])
	}

	spec, err := a.store.Load()
	if err != nil {
		return err
	}
	if killed := a.enforcer.Enforce(spec.ProcessNames); killed > 0 {
		fmt.Printf("Killed %d blocked app(s).\n", killed)
	}
	return nil
}

func runRemoveApp(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	removed, err := a.store.RemoveApp(args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Removed '%s' from blocked apps.\n", args[0])
	} else {
		fmt.Printf("'%s' was not in the blocked apps list.\n", args[0])
	}
	return nil
}

func runKillApps(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	spec, err := a.store.Load()
	if err != nil {
		return err
	}
	if len(spec.ProcessNames) == 0 {
		fmt.Println("No apps in the block list.")
		return nil
	}

	killed := a.enforcer.Enforce(spec.ProcessNames)
	if killed == 0 {
		fmt.Println("No blocked apps are currently running.")
	} else {
		fmt.Printf("Killed %d blocked app(s).\n", killed)
	}
	return nil
}

func runListApps(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), zap.NewNop())
	if err != nil {
		return err
	}

	running, err := a.inventory.Snapshot()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(running))
	for name := range running {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Currently running processes:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("\nTotal: %d processes\n", len(names))
	fmt.Println("\nUse the exact process name with 'addapp' to block it.")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if detach {
		if err := daemon.SpawnDetached(); err != nil {
			return fmt.Errorf("spawning background daemon: %w", err)
		}
		fmt.Println("Daemon started in the background. Use 'blockd stop' to stop it.")
		return nil
	}

	cfg := config.Default()
	logger := daemonLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	loop := daemon.NewLoop(daemon.LoopConfig{Interval: a.cfg.Interval}, a.reconciler, a.lock, logger)
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	holder, err := a.lock.Holder()
	if err != nil {
		return err
	}
	if holder == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	if a.inventory.IsRunning(holder.PID) {
		control := infra.NewProcessControl()
		if err := control.KillPID(holder.PID); err != nil {
			return fmt.Errorf("stopping daemon pid %d: %w", holder.PID, err)
		}
		fmt.Printf("Daemon stopped (pid %d).\n", holder.PID)
	} else {
		fmt.Println("Daemon was not running (stale lock removed).")
	}

	return a.lock.Release()
}

func runAutostart(cmd *cobra.Command, args []string) error {
	a, err := newApp(config.Default(), cliLogger())
	if err != nil {
		return err
	}

	switch args[0] {
	case "status":
		if a.autostart.IsInstalled() {
			fmt.Println("Autostart: ACTIVE")
		} else {
			fmt.Println("Autostart: not configured")
		}
		return nil

	case "install":
		return requireAdmin(func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return err
			}
			if err := a.autostart.Install(execPath); err != nil {
				return err
			}
			fmt.Println("blockd added to startup. The daemon will run at logon.")
			return nil
		})(cmd, args)

	case "uninstall":
		return requireAdmin(func(cmd *cobra.Command, args []string) error {
			if err := a.autostart.Uninstall(); err != nil {
				return err
			}
			fmt.Println("blockd removed from startup.")
			return nil
		})(cmd, args)

	default:
		return fmt.Errorf("unknown autostart action: %s", args[0])
	}
}

// cliLogger is used by one-shot commands: human-readable, stderr only.
func cliLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// daemonLogger writes structured logs to the configured log file so
// the detached daemon stays observable.
func daemonLogger(logPath string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{logPath}
	zcfg.ErrorOutputPaths = []string{logPath}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

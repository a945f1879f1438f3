package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/newsd/internal/config"
	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/tui"
	"github.com/pders01/newsd/internal/validation"
)

var (
	cfgFile  string
	logLevel string
	quiet    bool

	dashServe bool
	configOut string
)

var rootCmd = &cobra.Command{
	Use:          "newsd",
	Short:        "Personalized news aggregation service",
	Long:         "newsd serves personalized headlines from a shared, periodically refreshed news cache.",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the refresh scheduler",
	RunE:  runServe,
}

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Watch the news cache in a terminal dashboard",
	RunE:  runDash,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsd %s\n", Version)
		fmt.Println("Personalized news aggregation service")
		fmt.Println("github.com/pders01/newsd")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configOut
		if path == "" {
			home, _ := os.UserHomeDir()
			path = filepath.Join(home, ".config", "newsd", "config.toml")
		}
		path, err := validation.NewFilePathValidator().ValidateFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid output path: %v\n", err)
			os.Exit(1)
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")

	dashCmd.Flags().BoolVar(&dashServe, "serve", true, "Also run the HTTP API and scheduler in this process")
	configGenCmd.Flags().StringVarP(&configOut, "output", "o", "", "Destination (default ~/.config/newsd/config.toml)")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(serveCmd, dashCmd, versionCmd, configCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// setupLogging configures the logger. When the terminal belongs to the
// dashboard, logs only go to a configured file.
func setupLogging(cfg *config.Config, terminalBusy bool) error {
	level := logging.ParseLogLevel(cfg.Log.Level)
	if terminalBusy && cfg.Log.File == "" {
		level = logging.LevelOff
	}
	if err := logging.Setup(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}); err != nil {
		return err
	}

	if level != logging.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !quiet {
		tui.ShowBanner(Version)
	}
	if err := setupLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Run(ctx)
}

func runDash(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, true); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if !dashServe {
		return tui.Run(ctx, st.cache, cfg, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.Run(gctx) })
	g.Go(func() error {
		// quitting the dashboard stops the service too
		defer cancel()
		return tui.Run(gctx, st.cache, cfg, nil)
	})
	return g.Wait()
}

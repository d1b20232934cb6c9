package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fetchd-app/fetchd/internal/config"
	"github.com/fetchd-app/fetchd/internal/server"
	"github.com/fetchd-app/fetchd/internal/service"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	flagConfig string
	flagPort   int
	flagDir    string
	flagDebug  bool
)

// rootCmd runs the daemon when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:     "fetchd",
	Short:   "A multi-download HTTP fetcher service",
	Long: `fetchd is a long-running local download service. Submit URLs and each
resource is downloaded as an independently controllable task that can be
started, paused, resumed, inspected and deleted, with live progress
published to subscribers.

Running fetchd without a subcommand starts the daemon; the other commands
talk to it over its local REST API.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func runDaemon() error {
	settings, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if flagDir != "" {
		settings.Download.Dir = flagDir
		if err := os.MkdirAll(flagDir, 0o755); err != nil {
			return fmt.Errorf("creating download directory: %w", err)
		}
	}
	if _, err := config.InitLogger(settings.Logging, flagDebug); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	acquired, err := AcquireLock()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !acquired {
		fmt.Fprintln(os.Stderr, "Error: fetchd is already running.")
		fmt.Fprintln(os.Stderr, "Use 'fetchd add <url>' to hand a download to the active instance.")
		os.Exit(1)
	}
	defer ReleaseLock()

	port := settings.Server.Port
	if flagPort > 0 {
		port = flagPort
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		if flagPort > 0 {
			return fmt.Errorf("could not bind to port %d: %w", port, err)
		}
		// Configured port taken, fall back to the next free one.
		port, ln = findAvailablePort(port + 1)
		if ln == nil {
			return fmt.Errorf("could not find an available port")
		}
	}

	saveActivePort(port)
	defer removeActivePort()

	svc := service.New(settings)
	srv := server.New(svc, Version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	fmt.Printf("fetchd %s listening on 127.0.0.1:%d\n", Version, port)
	fmt.Printf("downloads go to %s\n", settings.Download.Dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	fmt.Println("\nshutting down...")
	svc.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// findAvailablePort tries ports starting from 'start' until one is free.
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

// saveActivePort writes the active port to ~/.fetchd/port so the CLI and
// shells can discover the daemon.
func saveActivePort(port int) {
	portFile := filepath.Join(config.FetchdDir(), "port")
	_ = os.WriteFile(portFile, []byte(fmt.Sprintf("%d", port)), 0o644)
}

func removeActivePort() {
	_ = os.Remove(filepath.Join(config.FetchdDir(), "port"))
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to settings file (default ~/.fetchd/settings.yaml)")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port to listen on (default from settings, next free on conflict)")
	rootCmd.Flags().StringVarP(&flagDir, "dir", "o", "", "Download directory override")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Log to stderr instead of the log file")
	rootCmd.SetVersionTemplate("fetchd version {{.Version}}\n")
}

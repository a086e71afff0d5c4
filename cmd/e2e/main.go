package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brighthorizons-e2e/internal/di"
	"brighthorizons-e2e/internal/domain/entity"
	"brighthorizons-e2e/internal/fixture"
	"brighthorizons-e2e/internal/infrastructure/env"
	"brighthorizons-e2e/internal/infrastructure/logger"
	reportpkg "brighthorizons-e2e/internal/infrastructure/report"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bh-e2e",
	Short: "End-to-end browser checks for the Bright Horizons site",
	Long: `bh-e2e drives a real browser through the Bright Horizons home page:
it checks the footer sections, searches for an article and verifies the
first search result. Settings come from the environment (and .env), and
flags override them.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the home page scenario once",
	RunE:  runScenario,
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Serve the local replica site",
	RunE:  runFixture,
}

var (
	browserFlag    string
	baseURLFlag    string
	headlessFlag   bool
	termFlag       string
	reportFlag     string
	useFixtureFlag bool
	slowMoFlag     time.Duration
	addrFlag       string
)

func init() {
	runCmd.Flags().StringVar(&browserFlag, "browser", "", "chromium, firefox, webkit or edge (overrides BROWSER)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "site under test (overrides BASE_URL)")
	runCmd.Flags().BoolVar(&headlessFlag, "headless", false, "run without a window (overrides HEADLESS)")
	runCmd.Flags().StringVar(&termFlag, "term", "", "search term to verify")
	runCmd.Flags().StringVar(&reportFlag, "report", "", "write the JSON report to this path")
	runCmd.Flags().BoolVar(&useFixtureFlag, "fixture", false, "run against an in-process replica site")
	runCmd.Flags().DurationVar(&slowMoFlag, "slow-mo", 0, "delay every browser action")

	fixtureCmd.Flags().StringVar(&addrFlag, "addr", "127.0.0.1:8089", "listen address")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fixtureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func settingsFromFlags(cmd *cobra.Command) env.Settings {
	s := env.LoadSettings(env.NewEnvService())
	flags := cmd.Flags()
	if flags.Changed("browser") {
		s.Browser = entity.ParseBrowserKind(browserFlag)
	}
	if flags.Changed("base-url") {
		s.BaseURL = baseURLFlag
	}
	if flags.Changed("headless") {
		s.Headless = headlessFlag
	}
	return s
}

func runScenario(cmd *cobra.Command, args []string) error {
	s := settingsFromFlags(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, s.RunTimeout)
	defer cancel()

	if useFixtureFlag {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("fixture listen: %w", err)
		}
		srv := &http.Server{Handler: fixture.NewServer(fixture.Options{}), ReadHeaderTimeout: 5 * time.Second}
		go srv.Serve(ln)
		defer srv.Close()
		s.BaseURL = "http://" + ln.Addr().String()
	}

	opts := []di.Option{di.WithSlowMotion(slowMoFlag)}
	if termFlag != "" {
		opts = append(opts, di.WithSearchTerm(termFlag))
	}

	container, err := di.NewContainer(ctx, s, opts...)
	if err != nil {
		return err
	}
	defer container.Close()

	container.Logger.Info("Scenario started", "browser", s.Browser, "baseURL", s.BaseURL)
	report, runErr := container.Scenario.Execute(ctx)

	if report != nil {
		if summary, err := reportpkg.Summary(report, ""); err == nil {
			fmt.Fprint(cmd.OutOrStdout(), summary)
		}
		if reportFlag != "" {
			if err := reportpkg.WriteJSON(reportFlag, report); err != nil {
				container.Logger.Error("Report not written", "path", reportFlag, "error", err)
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	container.Logger.Info("Scenario completed", "duration", report.Duration)
	return nil
}

func runFixture(cmd *cobra.Command, args []string) error {
	s := env.LoadSettings(env.NewEnvService())
	log, err := logger.NewLoggerAdapter(logger.Config{Level: s.LogLevel, JSON: s.CI})
	if err != nil {
		return err
	}
	defer log.Close()

	srv := &http.Server{
		Addr:              addrFlag,
		Handler:           fixture.NewServer(fixture.Options{RequestLog: true, JSONLog: s.CI, Logger: log}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("Fixture site listening", "addr", "http://"+addrFlag)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

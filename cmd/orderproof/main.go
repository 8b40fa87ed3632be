package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"orderproof/browser"
	"orderproof/config"
	"orderproof/console"
	"orderproof/ledger"
	"orderproof/models"
	"orderproof/pipeline"
	"orderproof/publish"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded:", err)
	}

	defaultCfg := config.DefaultConfig()
	ledgerDefault := defaultCfg.LedgerPath
	if value, ok := config.EnvString("ORDERPROOF_LEDGER"); ok {
		ledgerDefault = value
	}
	screenshotsDefault := defaultCfg.ScreenshotDir
	if value, ok := config.EnvString("ORDERPROOF_SCREENSHOTS"); ok {
		screenshotsDefault = value
	}
	profileDefault := defaultCfg.ProfileDir
	if value, ok := config.EnvString("ORDERPROOF_PROFILE"); ok {
		profileDefault = value
	}
	navTimeoutDefault := defaultCfg.NavTimeout
	if value, ok, err := config.EnvDuration("ORDERPROOF_NAV_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ORDERPROOF_NAV_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		navTimeoutDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("ORDERPROOF_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	folderDefault := defaultCfg.DriveFolderID
	if value, ok := config.EnvString("ORDERPROOF_FOLDER_ID"); ok {
		folderDefault = value
	}
	verboseDefault := false
	if value, ok, err := config.EnvBool("ORDERPROOF_VERBOSE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid ORDERPROOF_VERBOSE: %v\n", err)
		os.Exit(1)
	} else if ok {
		verboseDefault = value
	}

	ledgerPath := flag.String("ledger", ledgerDefault, "Path to the xlsx evidence report")
	screenshotDir := flag.String("screenshots", screenshotsDefault, "Directory for captured screenshots")
	profileDir := flag.String("profile", profileDefault, "Persistent browser profile directory")
	folderID := flag.String("folder-id", folderDefault, "Google Drive folder id for uploads")
	credentialsFile := flag.String("credentials", defaultCfg.CredentialsFile, "OAuth client secrets file")
	tokenFile := flag.String("token", defaultCfg.TokenFile, "Stored OAuth token file")
	captureMode := flag.String("mode", defaultCfg.CaptureMode, "Default screenshot mode: full or viewport")
	askMode := flag.Bool("ask-mode", true, "Ask the operator for the screenshot mode per order")
	navTimeout := flag.Duration("nav-timeout", navTimeoutDefault, "Navigation budget per page load")
	loginURL := flag.String("login-url", defaultCfg.PortalLoginURL, "Portal login URL")
	ordersURL := flag.String("orders-url", defaultCfg.OrdersURL, "Portal orders page URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	checkBrowser := flag.Bool("check-browser", false, "Probe the Chrome remote-debugging port and exit")
	debugAddr := flag.String("debug-addr", defaultCfg.DebugAddr, "Chrome remote-debugging address for -check-browser")
	verbose := flag.Bool("v", verboseDefault, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.LedgerPath = *ledgerPath
	cfg.ScreenshotDir = *screenshotDir
	cfg.ProfileDir = *profileDir
	cfg.DriveFolderID = *folderID
	cfg.CredentialsFile = *credentialsFile
	cfg.TokenFile = *tokenFile
	cfg.CaptureMode = *captureMode
	cfg.NavTimeout = *navTimeout
	cfg.PortalLoginURL = *loginURL
	cfg.OrdersURL = *ordersURL
	cfg.MetricsAddr = *metricsAddr
	cfg.DebugAddr = *debugAddr
	cfg.Verbose = *verbose
	if value, ok := config.EnvString("ORDERPROOF_USERNAME"); ok {
		cfg.Username = value
	}
	if value, ok := config.EnvString("ORDERPROOF_PASSWORD"); ok {
		cfg.Password = value
	}

	os.Exit(run(cfg, *checkBrowser, *askMode))
}

// run holds the whole pipeline so deferred teardown executes before the
// process exits. Exit code 0 means the teardown path completed, regardless
// of per-order failures.
func run(cfg *config.Config, checkBrowser, askMode bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if checkBrowser {
		info, err := browser.ProbeDebugPort(ctx, nil, cfg.DebugAddr)
		if err != nil {
			slog.Error("debug port not reachable", slog.String("addr", cfg.DebugAddr), slog.Any("error", err))
			return 1
		}
		fmt.Printf("Chrome is listening on %s\n", cfg.DebugAddr)
		fmt.Printf("  Browser:   %s\n", info.Browser)
		fmt.Printf("  WebSocket: %s\n", info.WebSocketURL)
		return 0
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	cons := console.New(os.Stdin, os.Stdout)

	// Drive authorization first: it may need the operator, and a broken
	// token should abort before any browser opens.
	httpClient, err := publish.OAuthClient(ctx, cfg.CredentialsFile, cfg.TokenFile, func(ctx context.Context, authURL string) (string, error) {
		fmt.Println("\nAuthorization required. Visit this URL:")
		fmt.Println("\n" + authURL + "\n")
		return cons.Ask(ctx, "Enter the authorization code: ")
	})
	if err != nil {
		slog.Error("drive authorization failed", slog.Any("error", err))
		return 1
	}
	publisher, err := publish.NewDrivePublisher(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		slog.Error("creating drive publisher", slog.Any("error", err))
		return 1
	}

	// The ledger opens before the browser: a corrupt report file must stop
	// the run before any side effects.
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		slog.Error("opening ledger", slog.String("path", cfg.LedgerPath), slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := led.Close(); err != nil {
			slog.Error("close ledger", slog.Any("error", err))
		}
	}()
	if led.Created() {
		slog.Info("created new ledger", slog.String("path", cfg.LedgerPath))
	} else {
		slog.Info("resuming existing ledger",
			slog.String("path", cfg.LedgerPath),
			slog.Int("next_seq", led.NextSeq()),
		)
	}

	sess, err := browser.Open(ctx, browser.Options{
		ProfileDir: cfg.ProfileDir,
		UserAgent:  cfg.UserAgent,
		NavTimeout: cfg.NavTimeout,
	})
	if err != nil {
		slog.Error("opening browser session", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Error("close session", slog.Any("error", err))
		}
	}()

	metrics := pipeline.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	mode := models.Viewport
	if cfg.CaptureMode == "full" {
		mode = models.FullPage
	}

	orch, err := pipeline.NewOrchestrator(pipeline.Options{
		Prompter:      cons,
		Navigator:     sess,
		Capturer:      pipeline.ArtifactCapturer{Shooter: sess, Dir: cfg.ScreenshotDir},
		Publisher:     publisher,
		Ledger:        led,
		Metrics:       metrics,
		DriveFolderID: cfg.DriveFolderID,
		CaptureMode:   mode,
		AskMode:       askMode,
		LoginURL:      cfg.PortalLoginURL,
		PortalHost:    hostOf(cfg.OrdersURL),
	})
	if err != nil {
		slog.Error("building orchestrator", slog.Any("error", err))
		return 1
	}

	if err := orch.Login(ctx); err != nil {
		if isOperatorStop(err) {
			slog.Warn("run stopped during login", slog.Any("error", err))
			return 0
		}
		slog.Error("login failed", slog.Any("error", err))
		return 1
	}

	if err := sess.Navigate(ctx, cfg.OrdersURL); err != nil {
		var navTimeoutErr browser.ErrNavigationTimeout
		if !errors.As(err, &navTimeoutErr) {
			slog.Error("opening orders page", slog.Any("error", err))
			return 1
		}
		slog.Warn("orders page load timed out, navigate manually before entering ids")
	}

	orderIDs, err := cons.ReadOrderIDs(ctx)
	if err != nil {
		if isOperatorStop(err) {
			slog.Warn("run stopped before processing", slog.Any("error", err))
			return 0
		}
		slog.Error("reading order ids", slog.Any("error", err))
		return 1
	}
	if len(orderIDs) == 0 {
		slog.Info("no orders to process")
		return 0
	}

	summary, err := orch.Run(ctx, orderIDs)
	if err != nil {
		slog.Error("run ended with an error", slog.Any("error", err))
	}
	printSummary(summary, cfg.LedgerPath)
	return 0
}

func printSummary(summary *models.RunSummary, ledgerPath string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Run complete")
	fmt.Printf("  Succeeded:   %d\n", len(summary.Succeeded))
	fmt.Printf("  Failed:      %d\n", len(summary.Failed))
	if len(summary.Skipped) > 0 {
		fmt.Printf("  Skipped:     %d (duplicates)\n", len(summary.Skipped))
	}
	if summary.Aborted {
		fmt.Println("  Aborted:     yes")
	}
	fmt.Printf("  Duration:    %v\n", summary.EndTime.Sub(summary.StartTime).Round(time.Second))
	fmt.Printf("  Ledger:      %s\n", ledgerPath)
	if len(summary.Failed) > 0 {
		fmt.Printf("  Failed orders (re-run the pipeline with these): %s\n",
			strings.Join(summary.FailedIDs(), ", "))
		for _, f := range summary.Failed {
			fmt.Printf("    %s  [%s]  %s\n", f.OrderID, f.State, f.Cause)
		}
	}
	fmt.Println(separator)
}

func isOperatorStop(err error) bool {
	var aborted console.ErrAborted
	return errors.As(err, &aborted) || errors.Is(err, context.Canceled)
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/parlaywatch/parlaywatch/internal/app"
	"github.com/parlaywatch/parlaywatch/internal/config"
	"github.com/parlaywatch/parlaywatch/internal/logger"
)

// ANSI escape codes
const (
	reset = "\033[0m"
	cyan  = "\033[36m"
	green = "\033[32m"
	bold  = "\033[1m"
)

var (
	version = "dev"
)

// showBanner prints the startup banner with the address players join on
func showBanner(baseURL string) {
	border := strings.Repeat("═", 44)
	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	fmt.Printf("  %s║%s%s%-44s%s%s║%s\n", cyan, reset, bold, "  ParlayWatch "+version, reset, cyan, reset)
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)
	fmt.Printf("  %sPlayers join at%s %s\n\n", green, reset, baseURL)
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal("Failed to load .env: ", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	baseURL := flag.String("baseurl", cfg.BaseURL, "Public base URL for join links (detected if not set)")
	logLevel := flag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("logformat", cfg.LogFormat, "Log format (text, json)")
	httpLogging := flag.Bool("httplog", cfg.HTTPLogging, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ParlayWatch - Watch-party prediction game server

Usage:
  parlaywatch [options]

Options:
  -port int         HTTP server port (default 8080, PARLAYWATCH_PORT)
  -db string        SQLite database path (default "parlaywatch.db", PARLAYWATCH_DB)
  -baseurl string   Public base URL for join links (PARLAYWATCH_BASE_URL)
  -loglevel string  Log level: debug, info, warn, error (PARLAYWATCH_LOG_LEVEL)
  -logformat string Log format: text, json (PARLAYWATCH_LOG_FORMAT)
  -httplog          Log every HTTP request (PARLAYWATCH_HTTP_LOGGING)
  -version          Show version and exit
  -help             Show this help message

Default room settings are read from PARLAYWATCH_ROOM_* variables.
A .env file in the working directory is loaded first if present.

Examples:
  parlaywatch                               # Run on port 8080 with parlaywatch.db
  parlaywatch -port 9000 -db /data/pw.db    # Custom port and database
  parlaywatch -baseurl http://tv.local:8080 # Fixed join URL for QR codes

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("parlaywatch %s\n", version)
		os.Exit(0)
	}

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.BaseURL = *baseURL

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(*logLevel),
		Format: *logFormat,
	})
	if *httpLogging {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	showBanner(a.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		appLog.Error("Server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}

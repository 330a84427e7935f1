// ABOUTME: Entry point for the wpembed oEmbed provider.
// ABOUTME: Wires together config, store, site key, WordPress.org client and HTTP handlers with CLI commands.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/2389/wpembed/internal/assets"
	"github.com/2389/wpembed/internal/config"
	apierrors "github.com/2389/wpembed/internal/errors"
	"github.com/2389/wpembed/internal/httpserver"
	"github.com/2389/wpembed/internal/logging"
	"github.com/2389/wpembed/internal/metrics"
	"github.com/2389/wpembed/internal/oembed"
	"github.com/2389/wpembed/internal/sitekey"
	"github.com/2389/wpembed/internal/store"
	"github.com/2389/wpembed/internal/wporg"

	limits "github.com/2389/wpembed/internal/middleware"
)

var (
	cfg        config.Config
	debugLevel int

	// accessLog receives one line per request.
	accessLog = log.New(os.Stdout, "", log.LstdFlags)
)

func main() {
	config.LoadEnvFiles()

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wpembed",
		Short: "oEmbed provider for WordPress.org plugin pages",
		Long: `wpembed turns links to WordPress.org plugin pages into rich embeds.

Paste http://wordpress.org/extend/plugins/<slug>/ into any oEmbed consumer
registered against this site and it renders the plugin's name, author,
description and download stats.

Quick Start:
  wpembed serve               # Start the provider on port 9000
  wpembed key show            # Print the site key consumers must send
  wpembed lookup akismet      # Fetch plugin info straight from WordPress.org`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg.DBPath, err = validateAndCleanDBPath(cfg.DBPath)
			if err != nil {
				return err
			}
			cfg.Debug, err = wporg.ParseDebugLevel(debugLevel)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPath, "db", "d", cfg.DBPath, "Database path")
	rootCmd.PersistentFlags().StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "WordPress.org plugin-information endpoint")
	rootCmd.PersistentFlags().DurationVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout, "Plugin lookup timeout (minimum 10s)")
	rootCmd.PersistentFlags().IntVar(&debugLevel, "debug", int(cfg.Debug), "API debug output: 0 off, 1 calls, 2 calls and responses")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the oEmbed provider on the specified port.

The server provides:
  • oEmbed endpoint at http://localhost:PORT/?wpdotorg_oembed=KEY&url=URL&format=json
  • Embed stylesheet at http://localhost:PORT/assets/wpdotorg-embed.css
  • Health check at http://localhost:PORT/healthz
  • Prometheus metrics at http://localhost:PORT/metrics

Environment Variables:
  WPEMBED_PORT          Server port (default: 9000)
  WPEMBED_DB_PATH       Database path
  WPEMBED_HOME_URL      Public URL of this site (default: http://localhost:PORT/)
  WPEMBED_API_URL       WordPress.org plugin-information endpoint
  WPEMBED_API_TIMEOUT   Plugin lookup timeout (default and minimum: 10s)
  WPEMBED_DEBUG         API debug output (0, 1 or 2)
  WPEMBED_RATE_LIMIT    oEmbed requests per minute per client IP (default: 60)
  WPEMBED_RATE_BURST    Extra burst allowance per client IP (default: 10)
  WPEMBED_TRUST_PROXY   Take client IPs from X-Forwarded-For/X-Real-IP (default: false)`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&cfg.HomeURL, "home-url", cfg.HomeURL, "Public URL of this site")
	serveCmd.Flags().BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "Trust X-Forwarded-For/X-Real-IP from a reverse proxy")

	rootCmd.AddCommand(serveCmd, newKeyCmd(), newLookupCmd(), newEmbedCmd(), newLogsCmd())
	return rootCmd
}

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}
	cleanPath = filepath.Clean(cleanPath)

	if cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	// Create the key up front so consumers can be configured before the first request.
	keys := sitekey.NewKeeper(s)
	if _, err := keys.Key(cmd.Context()); err != nil {
		return err
	}

	logs := logging.NewRequestLogs(s)
	defer logs.Wait()

	srv := httpserver.New(":"+cfg.Port, newServer(cfg, s, logs), cfg.APITimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Printf("wpembed listening on %s", srv.Addr())
	log.Printf("Database: %s", cfg.DBPath)
	log.Printf("Embedding %s for %s", oembed.PluginProviderPattern, cfg.SiteURL())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// newServer builds the router. Request logs are written through logs; wait on
// it before closing s.
func newServer(cfg config.Config, s *store.Store, logs *logging.RequestLogs) http.Handler {
	keys := sitekey.NewKeeper(s)
	client := newPluginClient(cfg)
	endpoint := oembed.NewHandler(keys, client)
	limiter := limits.NewIPRateLimiter(cfg.RateLimit, time.Minute, cfg.RateBurst, 10*time.Minute)

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.AccessLog(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(logs.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "Not found")
	})
	r.MethodNotAllowed(methodNotAllowed)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Favicon
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Handle("/metrics", metrics.Handler())
	assets.RegisterRoutes(r)

	// Requests carrying the marker go to the oEmbed endpoint whatever the method.
	site := r.With(oembed.Dispatch(limits.RateLimit(limiter)(endpoint)))
	site.Get("/", landing)
	site.Post("/", methodNotAllowed)

	return r
}

func newPluginClient(cfg config.Config) *wporg.Client {
	return wporg.NewClient(wporg.Options{
		Endpoint: cfg.APIURL,
		Timeout:  cfg.APITimeout,
		Debug:    cfg.Debug,
	})
}

func landing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "wpembed: oEmbed provider for WordPress.org plugin pages")
	fmt.Fprintf(w, "Stylesheet: %s\n", assets.StylesheetPath)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.ErrMethodNotAllowed, "Method not allowed")
}

// openStore opens the configured database for one-shot commands.
func openStore() (*store.Store, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

func isLookupFailure(err error) bool {
	return errors.Is(err, wporg.ErrLookupFailed)
}

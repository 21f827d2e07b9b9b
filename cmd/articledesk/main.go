package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"articledesk/internal/config"
	"articledesk/internal/events"
	"articledesk/internal/imagestore"
	"articledesk/internal/preview"
	"articledesk/internal/server"
	"articledesk/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    config.Config
	logger = zap.NewNop()

	addr       string
	dbDriver   string
	dbDSN      string
	imageStore string
	redisURL   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "articledesk",
	Short:         "articledesk - article administration API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger, err = cfg.NewLogger()
		return err
	},
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	override("addr", &cfg.Addr, addr)
	override("db-driver", &cfg.DBDriver, dbDriver)
	override("db-dsn", &cfg.DBDSN, dbDSN)
	override("image-store", &cfg.ImageStore, imageStore)
	override("redis-url", &cfg.RedisURL, redisURL)
	override("log-level", &cfg.LogLevel, logLevel)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Setup Signal Handling (Ctrl+C)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var opts []server.Option
		images, err := openImages(&opts)
		if err != nil {
			return err
		}
		if c, ok := images.(interface{ Close() error }); ok {
			defer c.Close()
		}

		publisher, err := openEvents(ctx)
		if err != nil {
			return err
		}
		if c, ok := publisher.(interface{ Close() error }); ok {
			defer c.Close()
		}

		opts = append(opts,
			server.WithEvents(publisher),
			server.WithScraper(preview.NewReadability(cfg.PreviewTimeout)),
			server.WithMaxUploadBytes(cfg.MaxUploadBytes),
			server.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout),
		)
		srv := server.NewServer(st, images, logger, opts...)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start(cfg.Addr)
		}()

		select {
		case err := <-errChan:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-sigChan:
			logger.Info("Shutting down...")
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("Goodbye!")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the articles table if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		logger.Info("Schema is up to date", zap.String("driver", st.Dialect().Name))
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [url]",
	Short: "Print the title, summary and image suggested for a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := preview.NewReadability(cfg.PreviewTimeout).Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func openStore(ctx context.Context) (*store.SQLStore, error) {
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func openImages(opts *[]server.Option) (imagestore.Store, error) {
	switch cfg.ImageStore {
	case config.ImageStoreCloudinary:
		logger.Info("Using Cloudinary image store", zap.String("folder", cfg.CloudinaryFolder))
		return imagestore.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	default:
		b, err := imagestore.OpenBadger(cfg.BadgerPath, cfg.ImagesBaseURL(), logger)
		if err != nil {
			return nil, err
		}
		*opts = append(*opts, server.WithImageSource(b))
		logger.Info("Using Badger image store", zap.String("path", cfg.BadgerPath))
		return b, nil
	}
}

func openEvents(ctx context.Context) (events.Publisher, error) {
	if cfg.RedisURL == "" {
		logger.Info("No Redis configured, article events are disabled")
		return events.Nop{}, nil
	}
	return events.NewRedis(ctx, cfg.RedisURL, cfg.EventsStream, cfg.EventsMaxLen)
}

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&addr, "addr", ":8000", "Address to listen on")
	pf.StringVar(&dbDriver, "db-driver", "sqlite", "Database driver (sqlite or postgres)")
	pf.StringVar(&dbDSN, "db-dsn", "", "Database connection string")
	pf.StringVar(&imageStore, "image-store", config.ImageStoreBadger, "Image store (badger or cloudinary)")
	pf.StringVar(&redisURL, "redis-url", "", "Redis URL for article events")
	pf.StringVar(&logLevel, "log-level", "info", "Log level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(previewCmd)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// VibeForge Daemon - serves the content-rewards platform over HTTP
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibeforge/vibeforge/internal/api"
	"github.com/vibeforge/vibeforge/internal/config"
	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/journal"
	"github.com/vibeforge/vibeforge/internal/logging"
	"github.com/vibeforge/vibeforge/internal/metrics"
	"github.com/vibeforge/vibeforge/internal/platform"
	"github.com/vibeforge/vibeforge/internal/storage"
)

var (
	// Flags
	configPath string
	dataDir    string
	port       int
	logLevel   string

	// Version
	version = "0.1.0-alpha"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibeforge",
		Short: "VibeForge Daemon - content rewards platform",
		Long: `VibeForge mints content items, rewards likes and shares with tokens,
and keeps a live leaderboard of creators and items.

State lives in memory; every accepted mutation is written to a
hash-chained audit journal.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <data-dir>/config.yaml)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory")

	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(configCmd())
	return root
}

// loadConfig applies command-line flags over the loaded configuration
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if dataDir != "" {
		os.Setenv(config.EnvPrefix+"_DATA_DIR", dataDir)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Server.Port = port
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

// daemon holds everything serve starts
type daemon struct {
	server  *api.Server
	journal *journal.Store
	db      *storage.DB
	log     *logging.Logger
}

// newDaemon builds the platform and its HTTP surface from cfg
func newDaemon(cfg *config.Config) (*daemon, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log := logging.Setup(level, cfg.Logging.Format, os.Stderr)

	d := &daemon{log: log}

	if cfg.Journal.Enabled {
		dbCfg := storage.Config{InMemory: cfg.Journal.InMemory, Path: cfg.JournalPath()}
		db, err := storage.Open(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		d.db = db
		d.journal = journal.NewStore(db.Conn())

		if err := d.journal.Verify(); err != nil {
			log.WithError(err).Warn("journal chain verification failed")
		}
		if n, err := d.journal.Count(); err == nil {
			log.Info("journal open at %s (%d entries)", db.Path(), n)
		}
	} else {
		log.Info("journal disabled")
	}

	p, err := platform.New(cfg.Economy.Policy(),
		platform.WithLogger(log),
		platform.WithAnonymous(core.Identity(cfg.Economy.AnonymousIdentity)),
	)
	if err != nil {
		d.close()
		return nil, err
	}

	d.server = api.New(api.Config{
		Addr:           cfg.Addr(),
		Platform:       p,
		Journal:        d.journal,
		Metrics:        metrics.New(),
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	return d, nil
}

func (d *daemon) close() {
	if d.journal != nil {
		d.journal.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

func serve(cfg *config.Config) error {
	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		d.log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.server.Stop(ctx); err != nil {
			d.log.WithError(err).Error("shutdown")
		}
	}()

	// Start server (blocks)
	return d.server.Start()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show VibeForge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibeforge %s\n", version)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal(cfg.DefaultPath())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			path := configPath
			if path == "" {
				path = cfg.DefaultPath()
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(showCmd, initCmd)
	return cmd
}

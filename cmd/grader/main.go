package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/udovin/grader/internal/api"
	"github.com/udovin/grader/internal/broker"
	"github.com/udovin/grader/internal/config"
	"github.com/udovin/grader/internal/core"
	"github.com/udovin/grader/internal/db"
	"github.com/udovin/grader/internal/judge"
	"github.com/udovin/grader/internal/managers"
	"github.com/udovin/grader/internal/migrations"
	"github.com/udovin/grader/internal/notify"
	"github.com/udovin/grader/internal/pkg/logs"
)

func resolveFile(files ...string) (string, error) {
	for _, file := range files {
		if len(file) == 0 {
			continue
		}
		if _, err := os.Stat(file); err == nil {
			return file, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", os.ErrNotExist
}

// loadEnv loads variables from env files if they exist.
func loadEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot load %q: %w", file, err)
		}
	}
	return nil
}

// getConfig reads config with filename from '--config' flag.
func getConfig(cmd *cobra.Command) (config.Config, error) {
	if err := loadEnv(".env"); err != nil {
		return config.Config{}, err
	}
	flagFilename, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	envFilename := os.Getenv("GRADER_CONFIG")
	resolved, err := resolveFile(flagFilename, envFilename)
	if err != nil {
		return config.Config{}, err
	}
	return config.LoadFromFile(resolved)
}

func isServerError(err error) bool {
	return err != nil && err != http.ErrServerClosed
}

func newServer(logger *logs.Logger) *echo.Echo {
	srv := echo.New()
	srv.Logger = logger
	srv.HideBanner, srv.HidePort = true, true
	srv.Pre(middleware.RemoveTrailingSlash())
	srv.Use(middleware.Recover(), middleware.Gzip())
	return srv
}

func newNotifier(c *core.Core) (notify.Notifier, func(), error) {
	if c.Config.Redis == nil {
		return notify.NewNopNotifier(), func() {}, nil
	}
	client, err := notify.NewRedisClient(*c.Config.Redis)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewRedisNotifier(client), func() {
		if err := client.Close(); err != nil {
			c.Logger().Warn("Cannot close redis client", err)
		}
	}, nil
}

// serverMain starts grader server.
//
// Simply speaking this function does following things:
//  1. Setup Core instance and broker client.
//  2. Start judge result consumer and watchdog if judge is configured.
//  3. Setup Echo server instance and register API view.
func serverMain(cmd *cobra.Command, _ []string) {
	cfg, err := getConfig(cmd)
	if err != nil {
		panic(err)
	}
	if cfg.Server == nil && cfg.Judge == nil {
		panic("section 'server' or 'judge' should be configured")
	}
	if cfg.Broker == nil {
		panic("section 'broker' should be configured")
	}
	c, err := core.NewCore(cfg)
	if err != nil {
		panic(err)
	}
	c.SetupAllStores()
	client, err := broker.Dial(*cfg.Broker, c.Logger())
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			c.Logger().Error(err)
		}
	}()
	notifier, closeNotifier, err := newNotifier(c)
	if err != nil {
		panic(err)
	}
	defer closeNotifier()
	if err := c.Start(); err != nil {
		panic(err)
	}
	// Tasks use broker and notifier, so core is stopped before them.
	defer c.Stop()
	var waiter sync.WaitGroup
	defer waiter.Wait()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()
	if cfg.Judge != nil {
		results := managers.NewResultManager(
			c, managers.NewScoringManager(c), notifier,
		)
		consumer := judge.NewConsumer(c, client, results, cfg.Judge.ConsumerTag)
		if err := consumer.Start(); err != nil {
			panic(err)
		}
		judge.NewWatchdog(
			c,
			time.Duration(cfg.Judge.StaleAfter),
			time.Duration(cfg.Judge.WatchdogInterval),
		).Start()
	}
	if cfg.Server != nil {
		publisher := judge.NewPublisher(c, client, client.Config().SubmissionKey)
		v := api.NewView(c, managers.NewSubmissionManager(c, publisher), client)
		srv := newServer(c.Logger())
		v.Register(srv.Group("/api"))
		waiter.Add(1)
		go func() {
			defer waiter.Done()
			defer cancel()
			if err := srv.Start(cfg.Server.Address()); isServerError(err) {
				c.Logger().Error(err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(
				context.Background(), time.Minute,
			)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				c.Logger().Error(err)
			}
		}()
	}
	select {
	case <-ctx.Done():
	case <-c.Context().Done():
		// Deferred cleanup still runs, and process exits with failure.
		panic("core is interrupted")
	}
}

func migrateMain(cmd *cobra.Command, args []string) {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		panic(err)
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		panic(err)
	}
	c, err := core.NewCore(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = c.DB.Close() }()
	var options []db.MigrateOption
	if len(args) > 0 {
		if !force {
			panic("Trying to apply dangerous migration without '--force'")
		}
		options = append(options, db.WithMigration(args[0]))
	}
	if err := db.ApplyMigrations(
		context.Background(), c.DB, migrations.SchemaGroup, migrations.Schema,
		options...,
	); err != nil {
		panic(err)
	}
}

func versionMain(cmd *cobra.Command, _ []string) {
	println("grader version:", config.Version)
}

// main is a main entry point.
//
// Grader server runs two parts with respect of configuration:
//   - API server that creates submissions, if "server" section is specified.
//   - Judge result consumer, if "judge" section is specified.
//
// Both parts require "broker" section.
func main() {
	rootCmd := cobra.Command{Use: os.Args[0]}
	rootCmd.PersistentFlags().String("config", "config.json", "")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "server",
		Run:   serverMain,
		Short: "Starts API server and judge result consumer",
	})
	migrateCmd := cobra.Command{
		Use:   "migrate",
		Run:   migrateMain,
		Short: "Applies migrations to database",
	}
	migrateCmd.Flags().Bool("force", false, "Force dangerous migration")
	rootCmd.AddCommand(&migrateCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Run:   versionMain,
		Short: "Prints information about version",
	})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

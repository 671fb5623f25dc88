package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/mesas-live/config"
	"github.com/yeremiapane/mesas-live/database"
	"github.com/yeremiapane/mesas-live/database/memstore"
	"github.com/yeremiapane/mesas-live/kds"
	"github.com/yeremiapane/mesas-live/middlewares"
	"github.com/yeremiapane/mesas-live/mq"
	"github.com/yeremiapane/mesas-live/reservation"
	"github.com/yeremiapane/mesas-live/router"
	"github.com/yeremiapane/mesas-live/services"
	"github.com/yeremiapane/mesas-live/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mesas",
		Short:         "Live restaurant table occupancy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var seed int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the mesas table and optionally provision rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverMemory {
				return errors.New("migrate needs a SQL driver, DB_DRIVER is memory")
			}
			db, err := config.InitDB(cfg)
			if err != nil {
				utils.ErrorLogger.Errorf("Failed to connect to database: %v", err)
				return err
			}
			if err := database.Migrate(db); err != nil {
				utils.ErrorLogger.Error(err)
				return err
			}
			if _, err := database.SeedTables(db, seed); err != nil {
				utils.ErrorLogger.Errorf("Failed to seed tables: %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&seed, "seed", 0, "provision this many vacant tables when none exist")
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Errorf("Invalid configuration: %v", err)
		return cfg, err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// tableStore is what the engine and the notifier need from storage.
type tableStore interface {
	reservation.Store
	services.TableLister
}

func openStore(cfg config.Config) (tableStore, error) {
	if cfg.DBDriver == config.DriverMemory {
		if cfg.SeedTables == 0 {
			utils.InfoLogger.Warn("memory store without SEED_TABLES has no tables")
		}
		store, err := memstore.New(database.DefaultTables(cfg.SeedTables)...)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.SeedTables(db, cfg.SeedTables); err != nil {
		return nil, fmt.Errorf("seed tables: %w", err)
	}
	return database.NewTableStore(db), nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStore(cfg)
	if err != nil {
		utils.ErrorLogger.Errorf("Failed to open table store: %v", err)
		return err
	}

	hub := kds.NewHub(cfg.WSWriteTimeout)
	publishers := []services.Publisher{hub}
	if cfg.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// broker is optional, viewers still get websocket updates
			utils.ErrorLogger.Errorf("RabbitMQ mirror disabled: %v", err)
		} else {
			defer pub.Close()
			publishers = append(publishers, pub)
			utils.InfoLogger.Printf("Mirroring table updates to exchange %s", cfg.AMQPExchange)
		}
	}

	notifier := services.NewChangeNotifier(store, publishers...)
	notifier.Timeout = cfg.BroadcastTimeout
	engine := reservation.NewEngine(store, notifier)

	r := router.SetupRouter(engine, hub, router.Options{
		CORSOrigin:  cfg.CORSOrigin,
		FrontendDir: cfg.FrontendDir,
		RateLimiter: middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Error(err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
	notifier.Wait()
	hub.CloseAll()
	return nil
}

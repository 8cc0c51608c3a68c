// chromabot is the referee for the Chroma territorial game: it reads
// commands from a threaded forum, keeps the world in PostgreSQL, and
// serves a read-only status API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/handler"
	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/logger"
	"github.com/atiaxi/chromabot/internal/middleware"
	"github.com/atiaxi/chromabot/internal/repository/postgres"
	redisrepo "github.com/atiaxi/chromabot/internal/repository/redis"
	"github.com/atiaxi/chromabot/internal/service"
	"github.com/atiaxi/chromabot/internal/world"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "chromabot",
		Short: "Referee bot for the Chroma territorial game",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML config file ($CHROMABOT_CONFIG)")

	root.AddCommand(runCmd(), bootstrapCmd(), patchCmd(), reportCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the referee: bot loop, world tick, and status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log.Info().Str("db", cfg.DB.Connection).Str("hq", cfg.Bot.HQ).Msg("Config loaded")

			db, err := connectAndMigrate(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			redisClient, err := redisrepo.NewClient(cfg.Redis.URL)
			if err != nil {
				return fmt.Errorf("redis connection failed: %w", err)
			}
			defer redisClient.Close()

			// Enable Redis keyspace notifications for timer expiry events.
			if err := redisClient.Underlying().ConfigSet(context.Background(),
				"notify-keyspace-events", "Ex").Err(); err != nil {
				log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (timer expiry may not work)")
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := buildApp(cfg, db, redisClient)

			go app.loop.Run(ctx)
			go app.timers.Start(ctx)

			server := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: middleware.Chain(app.mux,
					middleware.Logger,
					middleware.CORS(cfg.Server.AllowedOrigins)),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			go func() {
				log.Info().Str("addr", cfg.Server.Addr).Msg("Status API listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("Status API failed")
					stop()
				}
			}()

			<-ctx.Done()
			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap <landfile.json>",
		Short: "Create the world from a land file (empty map only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := connectAndMigrate(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			defs, err := world.LoadFile(args[0])
			if err != nil {
				return err
			}
			loader := world.NewLoader(postgres.NewRegionRepo(db))
			if err := loader.Bootstrap(cmd.Context(), defs); err != nil {
				return err
			}
			log.Info().Int("regions", len(defs)).Msg("World created")
			return nil
		},
	}
}

func patchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch <landfile.json>",
		Short: "Add missing regions, connections, and aliases from a land file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := connectAndMigrate(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			defs, err := world.LoadFile(args[0])
			if err != nil {
				return err
			}
			loader := world.NewLoader(postgres.NewRegionRepo(db))
			if err := loader.Patch(cmd.Context(), defs); err != nil {
				return err
			}
			log.Info().Msg("World patched")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the current state of the lands",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := connectAndMigrate(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			reports := service.NewReportService(
				postgres.NewRegionRepo(db), postgres.NewPlayerRepo(db),
				postgres.NewBattleRepo(db), postgres.NewSkirmishRepo(db),
				postgres.NewBuffRepo(db), postgres.NewMarchRepo(db),
				nil, &cfg.Game, chroma.SystemClock{})
			lands, err := reports.LandsReport(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(lands)
			return nil
		},
	}
}

func connectAndMigrate(cfg *config.Config) (*sql.DB, error) {
	db, err := postgres.Connect(cfg.DB.Connection)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := postgres.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return db, nil
}

// app holds the wired components of the run command.
type app struct {
	loop   *service.BotLoop
	timers *service.TimerListener
	mux    *http.ServeMux
}

func buildApp(cfg *config.Config, db *sql.DB, redisClient *redisrepo.Client) *app {
	regionRepo := postgres.NewRegionRepo(db)
	playerRepo := postgres.NewPlayerRepo(db)
	marchRepo := postgres.NewMarchRepo(db)
	battleRepo := postgres.NewBattleRepo(db)
	skirmishRepo := postgres.NewSkirmishRepo(db)
	buffRepo := postgres.NewBuffRepo(db)
	codewordRepo := postgres.NewCodewordRepo(db)
	processedRepo := postgres.NewProcessedRepo(db)

	clock := chroma.SystemClock{}
	forum := host.NewNullHost(cfg.Bot.Username)
	wsHub := handler.NewHub()

	worldSvc := service.NewWorldService(regionRepo, battleRepo, codewordRepo)
	recruitSvc := service.NewRecruitService(playerRepo, worldSvc, &cfg.Game, clock)
	movementSvc := service.NewMovementService(playerRepo, regionRepo, marchRepo,
		worldSvc, &cfg.Game, clock)
	battleSvc := service.NewBattleService(regionRepo, playerRepo, battleRepo,
		skirmishRepo, buffRepo, marchRepo, worldSvc, &cfg.Game, clock)
	reportSvc := service.NewReportService(regionRepo, playerRepo, battleRepo,
		skirmishRepo, buffRepo, marchRepo, redisClient, &cfg.Game, clock)
	commandSvc := service.NewCommandService(forum, playerRepo, regionRepo,
		battleRepo, skirmishRepo, codewordRepo, processedRepo, marchRepo,
		worldSvc, movementSvc, battleSvc, recruitSvc, reportSvc, wsHub,
		&cfg.Bot, &cfg.Game, clock)
	tickSvc := service.NewTickService(regionRepo, battleRepo, skirmishRepo,
		buffRepo, movementSvc, battleSvc, reportSvc, commandSvc, forum,
		redisClient, wsHub, clock)

	loop := service.NewBotLoop(forum, regionRepo, battleRepo, processedRepo,
		recruitSvc, commandSvc, &cfg.Game, cfg.Game.TickIntervalDur())
	timers := service.NewTimerListener(redisClient.Underlying(), tickSvc,
		cfg.Game.TickIntervalDur())

	statusHandler := handler.NewStatusHandler(regionRepo, playerRepo,
		battleRepo, buffRepo, &cfg.Game)
	wsHandler := handler.NewWSHandler(wsHub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/v1/regions", statusHandler.GetRegions)
	mux.HandleFunc("GET /api/v1/battles", statusHandler.GetBattles)
	mux.HandleFunc("GET /api/v1/players/{name}", statusHandler.GetPlayer)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	return &app{loop: loop, timers: timers, mux: mux}
}

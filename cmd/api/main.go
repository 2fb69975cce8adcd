package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	overtimeService "github.com/cmlabs-hris/attendance-engine/internal/service/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconciliation"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rotation"
	"github.com/go-chi/httplog/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

// repositories is the persistence backend selected by APP_STORE_DRIVER.
type repositories struct {
	tx          database.Transactor
	definitions shift.DefinitionRepository
	groups      shift.RotationGroupRepository
	assignments shift.AssignmentRepository
	days        shift.DayRepository
	locations   shift.LocationRepository
	rawLogs     attendance.RawLogRepository
	records     attendance.DailyRecordRepository
	summaries   overtime.SummaryRepository
	audit       audit.Sink
	close       func()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	publisher, closePublisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	shiftSvc := rotation.NewShiftService(
		repos.tx,
		repos.definitions,
		repos.groups,
		repos.assignments,
		repos.days,
		repos.locations,
		repos.audit,
		locker,
		publisher,
		rotation.Options{
			Epoch:           cfg.Engine.RotationEpoch,
			MaxGenerateDays: cfg.Engine.MaxGenerateDays,
		},
	)
	attendanceSvc := reconciliation.NewAttendanceService(
		repos.tx,
		repos.rawLogs,
		repos.records,
		repos.days,
		repos.definitions,
		repos.audit,
		locker,
		publisher,
		reconciliation.Options{
			Location:      loc,
			CheckoutGrace: cfg.Engine.CheckoutGrace,
			Workers:       cfg.Engine.ReconcileWorkers,
		},
	)
	overtimeSvc := overtimeService.NewOvertimeService(
		repos.tx,
		repos.records,
		repos.summaries,
		repos.audit,
		locker,
		publisher,
	)

	if cfg.Cron.Enabled {
		scheduler := cron.NewScheduler()
		cron.NewEngineJobs(attendanceSvc, shiftSvc, overtimeSvc, cfg.Cron, loc).RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{Logger: logger, AllowedOrigins: cfg.App.CORSOrigins},
		appHTTP.NewShiftHandler(shiftSvc),
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewOvertimeHandler(overtimeSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.App.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.App.StoreDriver == "memory" {
		store := memory.NewStore()
		slog.Warn("Using in-memory store, data is lost on restart")
		return &repositories{
			tx:          store.Transactor(),
			definitions: store.ShiftDefinitions(),
			groups:      store.RotationGroups(),
			assignments: store.ShiftAssignments(),
			days:        store.ShiftDays(),
			locations:   store.WorkLocations(),
			rawLogs:     store.RawLogs(),
			records:     store.DailyRecords(),
			summaries:   store.OvertimeSummaries(),
			audit:       store,
			close:       func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.App.MigrateOnStart {
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &repositories{
		tx:          postgresql.NewTransactor(db),
		definitions: postgresql.NewShiftDefinitionRepository(db),
		groups:      postgresql.NewRotationGroupRepository(db),
		assignments: postgresql.NewShiftAssignmentRepository(db),
		days:        postgresql.NewShiftDayRepository(db),
		locations:   postgresql.NewWorkLocationRepository(db),
		rawLogs:     postgresql.NewRawAttendanceLogRepository(db),
		records:     postgresql.NewDailyAttendanceRecordRepository(db),
		summaries:   postgresql.NewMonthlyOvertimeSummaryRepository(db),
		audit:       postgresql.NewAuditLogRepository(db),
		close:       db.Close,
	}, nil
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Lock.Driver != "redis" {
		return lock.NewLocalLocker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return lock.NewRedisLocker(client, cfg.Lock.Prefix, cfg.Lock.TTL), func() {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}, nil
}

func newPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	if cfg.Events.Driver != "amqp" {
		return events.LogPublisher{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if cfg.RabbitMQ.Exchange == "" {
		if _, err := ch.QueueDeclare(cfg.RabbitMQ.Queue, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare queue %s: %w", cfg.RabbitMQ.Queue, err)
		}
	}

	publisher := events.NewAMQPPublisher(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.RabbitMQ.PublishTimeout)
	return publisher, func() {
		_ = ch.Close()
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close rabbitmq connection", "error", err)
		}
	}, nil
}

package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

type RouterOptions struct {
	// Logger receives request logs. It should be built with the ECS
	// ReplaceAttr from httplog.SchemaECS.
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, shiftHandler ShiftHandler, attendanceHandler AttendanceHandler, overtimeHandler OvertimeHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1/engine", func(r chi.Router) {
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", shiftHandler.ListDefinitions)
			r.Post("/", shiftHandler.CreateDefinition)
		})
		r.Post("/rotation-groups", shiftHandler.CreateRotationGroup)
		r.Post("/assignments", shiftHandler.AssignShift)

		r.Route("/shift-days", func(r chi.Router) {
			r.Get("/", shiftHandler.ListShiftDays)
			r.Delete("/", shiftHandler.DeleteShiftDays)
			r.Post("/generate", shiftHandler.GenerateShiftDays)
			r.Post("/override", shiftHandler.OverrideShiftDays)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/logs", attendanceHandler.RecordLog)
			r.Post("/reconcile-day", attendanceHandler.ReconcileDay)
			r.Post("/reconcile-employee", attendanceHandler.ReconcileEmployee)
			r.Post("/finalize", attendanceHandler.Finalize)
			r.Get("/records/{employeeID}/{date}", attendanceHandler.GetRecord)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Post("/aggregate", overtimeHandler.Aggregate)
			r.Get("/summaries", overtimeHandler.ListSummaries)
			r.Get("/summaries/{employeeID}", overtimeHandler.GetSummary)
		})
	})
	return r
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authhandler "github.com/paycore/payroll-backend/internal/auth/handler"
	"github.com/paycore/payroll-backend/internal/auth/jwt"
	authrepo "github.com/paycore/payroll-backend/internal/auth/repository"
	authservice "github.com/paycore/payroll-backend/internal/auth/service"
	backuphandler "github.com/paycore/payroll-backend/internal/backup/handler"
	backuprepo "github.com/paycore/payroll-backend/internal/backup/repository"
	backupservice "github.com/paycore/payroll-backend/internal/backup/service"
	financehandler "github.com/paycore/payroll-backend/internal/finance/handler"
	financerepo "github.com/paycore/payroll-backend/internal/finance/repository"
	financeservice "github.com/paycore/payroll-backend/internal/finance/service"
	payrollhandler "github.com/paycore/payroll-backend/internal/payroll/handler"
	payrollrepo "github.com/paycore/payroll-backend/internal/payroll/repository"
	payrollservice "github.com/paycore/payroll-backend/internal/payroll/service"
	"github.com/paycore/payroll-backend/internal/payroll/tax"
	staffhandler "github.com/paycore/payroll-backend/internal/staff/handler"
	staffrepo "github.com/paycore/payroll-backend/internal/staff/repository"
	staffservice "github.com/paycore/payroll-backend/internal/staff/service"
	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/database"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/timetrust"
)

const serviceName = "payroll-backend"

func main() {
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Str("environment", cfg.Server.Environment).Msg("starting payroll backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve time trust before anything touches the database: migrations
	// and seeding run through the same write gate as everything else.
	oracle := timetrust.New(&cfg.TimeTrust, log)
	startupTime := oracle.Now(ctx)
	if oracle.UsingLocalTime() {
		log.Warn().Msg("no network time source reachable, starting in read-only mode")
	}

	db, err := database.New(&cfg.Database, oracle, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(ctx, startupTime.Format("2006-01-02 15:04:05")); err != nil {
		// A refused migration means the clock is untrusted; serve reads
		// and let /time/reset bring writes back without a restart.
		if !errors.Is(err, errors.ErrWriteRefused) {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Warn().Msg("migrations deferred until network time is restored")
	}

	// Repositories
	userRepo := authrepo.NewUserRepository(db)
	employeeRepo := staffrepo.NewEmployeeRepository(db)
	attendanceRepo := staffrepo.NewAttendanceRepository(db)
	salaryRepo := payrollrepo.NewSalaryRepository(db)
	taxRateRepo := payrollrepo.NewTaxRateRepository(db)
	revenueRepo := financerepo.NewRevenueRepository(db)
	expenseRepo := financerepo.NewExpenseRepository(db)
	salaryCostRepo := financerepo.NewSalaryCostRepository(db)
	backupRepo := backuprepo.NewBackupRepository(db)

	// Services
	jwtMgr := jwt.NewManager(&cfg.JWT)
	taxEngine := tax.NewEngine(taxRateRepo, log)
	authSvc := authservice.NewAuthService(userRepo, jwtMgr, oracle, log)
	staffSvc := staffservice.NewStaffService(employeeRepo, attendanceRepo, oracle, log)
	payrollSvc := payrollservice.NewPayrollService(salaryRepo, taxRateRepo, employeeRepo, attendanceRepo, taxEngine, oracle, log)
	financeSvc := financeservice.NewFinanceService(revenueRepo, expenseRepo, salaryCostRepo, employeeRepo, log)
	backupSvc := backupservice.NewBackupService(backupRepo, oracle, cfg.Database.Path, cfg.Backup.Dir, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authSvc, log)
	employeeHandler := staffhandler.NewEmployeeHandler(staffSvc, log)
	attendanceHandler := staffhandler.NewAttendanceHandler(staffSvc, log)
	payrollHandler := payrollhandler.NewPayrollHandler(payrollSvc, log)
	financeHandler := financehandler.NewFinanceHandler(financeSvc, log)
	backupHandler := backuphandler.NewBackupHandler(backupSvc, log)

	router := newRouter(cfg, log, db, oracle, jwtMgr,
		authHandler, employeeHandler, attendanceHandler, payrollHandler, financeHandler, backupHandler)

	var scheduler *backupservice.Scheduler
	if cfg.Backup.AutoDaily {
		scheduler = backupservice.NewScheduler(backupSvc, cfg.Backup.DailyAt, log)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start backup scheduler")
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("stopped")
}

func newRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *database.DB,
	oracle *timetrust.Oracle,
	jwtMgr *jwt.Manager,
	authHandler *authhandler.AuthHandler,
	employeeHandler *staffhandler.EmployeeHandler,
	attendanceHandler *staffhandler.AttendanceHandler,
	payrollHandler *payrollhandler.PayrollHandler,
	financeHandler *financehandler.FinanceHandler,
	backupHandler *backuphandler.BackupHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"time": map[string]bool{
				"using_local_time": oracle.UsingLocalTime(),
			},
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Time endpoints stay outside authentication: on a fresh install
		// under an untrusted clock the user table does not exist yet, so
		// login cannot succeed until a reset restores writes.
		r.Get("/time/status", func(w http.ResponseWriter, req *http.Request) {
			httputil.JSON(w, http.StatusOK, map[string]bool{
				"using_local_time": oracle.UsingLocalTime(),
			})
		})
		r.Post("/time/reset", func(w http.ResponseWriter, req *http.Request) {
			usingLocal := oracle.Reset(req.Context())
			if !usingLocal {
				// Idempotent; covers a startup that deferred the
				// migration under an untrusted clock.
				now := oracle.Now(req.Context()).Format("2006-01-02 15:04:05")
				if err := db.Migrate(req.Context(), now); err != nil {
					httputil.Error(w, err)
					return
				}
			}
			httputil.JSON(w, http.StatusOK, map[string]bool{
				"using_local_time": usingLocal,
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authhandler.Authenticator(jwtMgr))

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeHandler.List)
				r.Post("/", employeeHandler.Create)
				r.Get("/{empID}", employeeHandler.Get)
				r.Put("/{empID}", employeeHandler.Update)
				r.Delete("/{empID}", employeeHandler.Delete)

				r.Post("/{empID}/attendance", attendanceHandler.Record)
				r.Get("/{empID}/attendance", attendanceHandler.List)
				r.Delete("/{empID}/attendance/{date}", attendanceHandler.Delete)
			})

			r.Route("/salaries", func(r chi.Router) {
				r.Post("/generate", payrollHandler.Generate)
				r.Post("/sheet", payrollHandler.Sheet)
				r.Put("/{empID}/{month}/bonus", payrollHandler.SetBonus)
				r.Put("/{empID}/{month}/deduction", payrollHandler.SetDeduction)

				r.Group(func(r chi.Router) {
					r.Use(authhandler.RequireAdmin)
					r.Post("/{empID}/{month}/pay", payrollHandler.MarkPaid)
					r.Post("/{empID}/{month}/unpay", payrollHandler.MarkUnpaid)
					r.Post("/pay-batch", payrollHandler.MarkPaidBatch)
					r.Post("/unpay-batch", payrollHandler.MarkUnpaidBatch)
				})
			})

			r.Route("/tax/brackets", func(r chi.Router) {
				r.Get("/", payrollHandler.ListBrackets)
				r.Group(func(r chi.Router) {
					r.Use(authhandler.RequireAdmin)
					r.Post("/", payrollHandler.CreateBracket)
					r.Put("/{id}", payrollHandler.UpdateBracket)
				})
			})

			r.Route("/revenue", func(r chi.Router) {
				r.Get("/", financeHandler.ListRevenue)
				r.Post("/", financeHandler.AddRevenue)
				r.Put("/{id}", financeHandler.UpdateRevenue)
				r.With(authhandler.RequireAdmin).Delete("/{id}", financeHandler.DeleteRevenue)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", financeHandler.ListExpenses)
				r.Post("/", financeHandler.AddExpense)
				r.Put("/{id}", financeHandler.UpdateExpense)
				r.With(authhandler.RequireAdmin).Delete("/{id}", financeHandler.DeleteExpense)
			})

			r.Get("/reports/profit", financeHandler.Profit)

			r.Route("/backups", func(r chi.Router) {
				r.Use(authhandler.RequireAdmin)
				r.Get("/", backupHandler.List)
				r.Post("/", backupHandler.Create)
				r.Post("/{id}/restore", backupHandler.Restore)
				r.Delete("/{id}", backupHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(authhandler.RequireAdmin)
				r.Get("/", authHandler.ListUsers)
				r.Post("/", authHandler.CreateUser)
				r.Delete("/{username}", authHandler.DeleteUser)
			})
		})
	})

	return r
}

// Package server implements the development REST API of the school portal.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ts-platform/portal/internal/auth"
	"github.com/ts-platform/portal/internal/config"
	"github.com/ts-platform/portal/internal/models"
	"github.com/ts-platform/portal/internal/validation"
)

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	db      *gorm.DB
	config  *config.Config
	logger  zerolog.Logger
	issuer  *auth.Issuer
	cron    *cron.Cron
	version string

	// failRoll returns a number in [0,1) compared against the configured error rate
	failRoll func() float64
}

var registerValidationOnce sync.Once

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	// Register custom validators on gin's binding engine
	var regErr error
	registerValidationOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			regErr = validation.Register(v)
		}
	})
	if regErr != nil {
		return nil, fmt.Errorf("failed to register validators: %w", regErr)
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	server := &Server{
		db:       db,
		config:   cfg,
		logger:   zlog,
		issuer:   issuer,
		cron:     cron.New(),
		version:  version,
		failRoll: rand.Float64,
	}

	if err := server.seed(); err != nil {
		return nil, err
	}

	if _, err := server.cron.AddFunc("@every 1h", func() {
		if _, err := server.purgeRefreshTokens(time.Now()); err != nil {
			server.logger.Error().Err(err).Msg("Failed to purge refresh tokens")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule refresh token purge: %w", err)
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// cors.New rejects an empty origin list
	if len(s.config.Server.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	api.Use(s.errorInjectionMiddleware())

	// Public auth endpoints
	api.POST("/auth/login", s.login)
	api.POST("/auth/refresh", s.refresh)
	api.POST("/auth/logout", s.logout)

	// Authenticated API routes (JWT required)
	authed := api.Group("")
	authed.Use(JWTAuthMiddleware(s.issuer, s.db, s.logger))
	{
		authed.POST("/auth/change-password", s.changePassword)
		authed.GET("/me", s.getCurrentUser)
		authed.GET("/subjects", s.listSubjects)
		authed.POST("/files", s.uploadFile)
		authed.GET("/files/:id", s.downloadFile)

		teacher := authed.Group("")
		teacher.Use(RoleMiddleware(models.RoleTeacher, s.logger))
		{
			teacher.POST("/subjects", s.createSubject)
			teacher.PUT("/subjects/:id", s.updateSubject)
			teacher.DELETE("/subjects/:id", s.deleteSubject)

			teacher.GET("/teacher/groups", s.listGroups)
			teacher.POST("/teacher/groups", s.createGroup)
			teacher.PUT("/teacher/groups/:id", s.updateGroup)
			teacher.DELETE("/teacher/groups/:id", s.deleteGroup)
			teacher.GET("/teacher/groups/:id/members", s.listGroupMembers)
			teacher.POST("/teacher/groups/:id/members", s.addGroupMember)
			teacher.DELETE("/teacher/groups/:id/members/:studentId", s.removeGroupMember)

			teacher.GET("/teacher/students", s.listStudents)
			teacher.POST("/teacher/students", s.createStudent)
			teacher.GET("/teacher/students/:id", s.getStudent)
			teacher.POST("/teacher/students/:id/reset-password", s.resetStudentPassword)
			teacher.GET("/teacher/students/:id/attendance", s.listStudentAttendance)
			teacher.GET("/teacher/students/:id/submissions", s.listStudentSubmissions)
			teacher.GET("/teacher/students/:id/groups", s.listStudentGroups)
			teacher.GET("/teacher/students/:id/grades", s.listStudentGrades)

			teacher.GET("/lessons", s.listLessons)
			teacher.POST("/lessons", s.createLesson)
			teacher.GET("/lessons/:id/attendance", s.listLessonAttendance)
			teacher.POST("/lessons/:id/attendance", s.setAttendance)

			teacher.GET("/assignments", s.listAssignments)
			teacher.POST("/assignments", s.createAssignment)
			teacher.GET("/assignments/:id", s.getAssignment)
			teacher.GET("/assignments/:id/submissions", s.listAssignmentSubmissions)
			teacher.GET("/assignments/:id/grades", s.listAssignmentGrades)
			teacher.POST("/assignments/:id/grade", s.gradeSubmission)
		}

		student := authed.Group("/student")
		student.Use(RoleMiddleware(models.RoleStudent, s.logger))
		{
			student.PUT("/profile", s.updateProfile)
			student.GET("/subjects", s.listSubjects)
			student.GET("/assignments", s.listMyAssignments)
			student.POST("/assignments/:id/submit", s.submitAssignment)
			student.GET("/submissions", s.listMySubmissions)
			student.GET("/grades", s.listMyGrades)
			student.GET("/attendance", s.listMyAttendance)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "ts-platform-mock-api",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + s.config.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.cron.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	// Wait for a running purge to finish
	<-s.cron.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	return s.Close()
}

// Close closes the database connection to flush WAL writes
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.logger.Info().Msg("Database closed successfully")
	return nil
}

// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/modulwissen/interview-go/internal/archive"
	"github.com/modulwissen/interview-go/internal/buildinfo"
	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/config"
	"github.com/modulwissen/interview-go/internal/ctxutil"
	"github.com/modulwissen/interview-go/internal/evaluation"
	"github.com/modulwissen/interview-go/internal/interview"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
	"github.com/modulwissen/interview-go/internal/oracle"
	"github.com/modulwissen/interview-go/internal/rag"
	"github.com/modulwissen/interview-go/internal/ratelimit"
	"github.com/modulwissen/interview-go/internal/sentry"
	"github.com/modulwissen/interview-go/internal/session"
	"github.com/modulwissen/interview-go/internal/warmup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	sessions       *session.Store
	catalogStore   *catalog.Store
	oracle         *oracle.Adapter
	bm25Index      *rag.BM25Index
	vectorDB       *rag.VectorDB
	searcher       *rag.HybridSearcher
	evaluations    *evaluation.Log
	interview      *interview.Controller
	archiver       *archive.Manager
	apiLimiter     *ratelimit.ClientLimiter
	server         *http.Server
	readinessState *warmup.ReadinessState // Tracks initial index build completion for readiness
	wg             sync.WaitGroup         // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "interview-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger to enable context value extraction (sessionID,
	// requestID) via ContextHandler in package-level slog.*Context() calls.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Version).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Setup(sentry.Config{
		Enabled:     cfg.SentryEnabled,
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, continuing without error tracking")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	// Initialize global metrics for oracle package
	metrics.InitGlobal(m)

	// Restore archived data before the stores read their files, so a fresh
	// deployment picks up sessions and collected knowledge from the bucket.
	var archiver *archive.Manager
	if cfg.ArchiveEnabled {
		client, err := archive.NewClient(ctx, archive.ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("archive client: %w", err)
		}
		archiver = archive.New(client, cfg.S3Prefix, archiveDataFiles(cfg), m, log)

		restoreCtx, cancel := context.WithTimeout(ctx, config.ArchiveRestoreTimeout)
		restored, err := archiver.Restore(restoreCtx)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Archive restore incomplete, continuing with local data")
		}
		log.WithField("files", restored).WithField("bucket", cfg.S3Bucket).Info("Archive restore finished")
	}

	courses := catalog.LoadCourses(cfg.CatalogPath(), log)
	index := catalog.NewIndex(courses)
	catalogStore := catalog.NewStore(index, catalog.StorePaths{
		Catalog: cfg.CatalogPath(),
		JSONLD:  cfg.JSONLDPath(),
		Turtle:  cfg.TurtlePath(),
	}, log)

	sessions := session.NewStore(cfg.SessionsPath(), log)
	if err := sessions.Load(); err != nil {
		log.WithError(err).Warn("Session snapshot not loaded, starting with empty store")
	}

	oracleAdapter, err := oracle.New(ctx, oracle.Options{
		APIKey:        cfg.OracleAPIKey,
		BaseURL:       cfg.OracleBaseURL,
		Model:         cfg.OracleModel,
		FallbackModel: cfg.OracleFallbackModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		TracesDir:     cfg.TracesDir(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	bm25Index := rag.NewBM25Index(log)
	vectorDB, err := rag.NewVectorDB(cfg.VectorDBPath(), cfg.GeminiAPIKey, cfg.EmbeddingRatePerMinute, log)
	if err != nil {
		log.WithError(err).Warn("Vector store initialization failed, retrieval falls back to BM25")
	}
	searcher := rag.NewHybridSearcher(vectorDB, bm25Index, m, log)

	evaluations := evaluation.NewLog(cfg.EvaluationsPath(), log)

	controller := interview.New(interview.Config{
		Sessions:            sessions,
		Catalog:             catalogStore,
		Oracle:              oracleAdapter,
		Searcher:            searcher,
		Evaluations:         evaluations,
		Metrics:             m,
		Logger:              log,
		MaxInTLRounds:       cfg.MaxInTLRounds,
		ResolveConfidence:   cfg.ResolveConfidence,
		WroteDirectMinProb:  cfg.WroteDirectMinProb,
		MaxGeneralQuestions: cfg.MaxGeneralQuestions,
		EvalSummaryTurns:    cfg.EvalSummaryTurns,
		RetrieveTopK:        cfg.RetrieveTopK,
	})

	var apiLimiter *ratelimit.ClientLimiter
	if cfg.APIRatePerMinute > 0 {
		apiLimiter = ratelimit.NewClientLimiter(float64(cfg.APIRatePerMinute), config.RateLimiterCleanupInterval, m)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))
	if sentry.Enabled() {
		router.Use(sentry.Middleware())
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		sessions:       sessions,
		catalogStore:   catalogStore,
		oracle:         oracleAdapter,
		bm25Index:      bm25Index,
		vectorDB:       vectorDB,
		searcher:       searcher,
		evaluations:    evaluations,
		interview:      controller,
		archiver:       archiver,
		apiLimiter:     apiLimiter,
		readinessState: warmup.NewReadinessState(cfg.WarmupGracePeriod),
	}

	router.GET("/", app.redirectToGitHub)
	router.GET("/livez", app.livenessCheck)
	router.HEAD("/livez", app.livenessCheck)
	router.GET("/readyz", app.readinessCheck)
	router.HEAD("/readyz", app.readinessCheck)

	api := router.Group("/api")
	api.Use(app.rateLimitMiddleware())
	api.POST("/interview/start", app.handleInterviewStart)
	api.POST("/interview/reset", app.handleInterviewReset)
	api.POST("/retrieve", app.readinessMiddleware(), app.handleRetrieve)
	api.POST("/evaluation/start", app.handleEvaluationStart)
	api.POST("/evaluation/submit", app.handleEvaluationSubmit)
	api.GET("/conversations", app.handleListConversations)
	api.DELETE("/conversations/:sessionId", app.handleDeleteConversation)
	api.GET("/traces/:sessionId", app.handleTrace)

	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.HTTPReadHeader,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// archiveDataFiles lists the files mirrored to the S3 archive.
func archiveDataFiles(cfg *config.Config) []string {
	return []string{
		cfg.SessionsPath(),
		cfg.CatalogPath(),
		cfg.JSONLDPath(),
		cfg.TurtlePath(),
		cfg.EvaluationsPath(),
	}
}

func (a *Application) redirectToGitHub(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "https://github.com/modulwissen/interview-go")
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"oracle":        a.oracle.Enabled(),
		"bm25_search":   a.bm25Index != nil && a.bm25Index.IsEnabled(),
		"vector_search": a.vectorDB != nil && a.vectorDB.IsEnabled(),
		"archive":       a.archiver != nil,
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	// Check warmup state first (for initial startup) - only if waiting for warmup is enabled
	if a.cfg.WaitForWarmup && !a.readinessState.IsReady() {
		status := a.readinessState.Status()
		a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
			WithField("timeout_seconds", status.TimeoutSeconds).
			Debug("Readiness check: index build in progress")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": status.Reason,
			"progress": gin.H{
				"elapsed_seconds": status.ElapsedSeconds,
				"timeout_seconds": status.TimeoutSeconds,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"catalog": gin.H{
			"courses": a.catalogStore.Index().Len(),
		},
		"sessions": a.sessions.Len(),
		"features": a.getFeatures(),
	})
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence (critical for data integrity):
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context to signal background jobs to stop
//  3. Wait for background jobs to complete (index build, snapshots, uploads)
//  4. Shut down the HTTP server, write the final snapshot, upload the
//     archive, then close resources
//
// This order prevents a half-written snapshot from being uploaded while a
// periodic job still holds the store.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure context is always canceled

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	// Wait for shutdown signal
	sig := a.waitForShutdownSignal()

	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Step 1: Cancel context to signal all background jobs to stop
	cancel()

	// Step 2: Wait for all background goroutines to finish
	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	// Step 3: Perform graceful shutdown (HTTP server, final snapshot, resources)
	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.initialIndexBuild(ctx)
	})
	a.wg.Go(func() {
		a.sessionSnapshots(ctx)
	})
	a.wg.Go(func() {
		a.archiveUploads(ctx)
	})
	a.wg.Go(func() {
		a.updateGaugeMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// This method should be called AFTER background jobs have been stopped and completed.
// Shutdown order:
// 1. Stop accepting new HTTP requests
// 2. Wait for in-flight requests to complete
// 3. Write the final session snapshot and upload the archive
// 4. Close resources (vector store, rate limiter, error tracking, logger)
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Writing final session snapshot...")
	if err := a.sessions.Snapshot(); err != nil {
		a.logger.WithError(err).Error("Final session snapshot failed")
	}

	if a.archiver != nil {
		a.logger.Info("Uploading final archive...")
		if err := a.archiver.UploadAll(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("Final archive upload incomplete")
		}
	}

	a.logger.Info("Closing resources...")

	if a.vectorDB != nil {
		if err := a.vectorDB.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "vectordb").Error("Component close error")
		}
	}

	if a.apiLimiter != nil {
		a.apiLimiter.Stop()
	}

	if sentry.Enabled() {
		sentry.Flush(2 * time.Second)
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// initialIndexBuild builds the retrieval indices once on startup and marks
// the service ready afterwards. The vector leg may embed the whole catalog,
// so the build runs under its own timeout and is canceled on shutdown.
func (a *Application) initialIndexBuild(ctx context.Context) {
	a.logger.Debug("Index build job started")
	defer a.logger.Debug("Index build job stopped")

	buildCtx, cancel := context.WithTimeout(ctx, config.WarmupTimeout)
	defer cancel()

	stats, err := warmup.Run(buildCtx, warmup.Tasks{
		Courses:  a.catalogStore.Index().Courses(),
		BM25:     a.bm25Index,
		VectorDB: a.vectorDB,
		Metrics:  a.metrics,
	}, a.logger)

	// The service works without indices (degraded retrieval), so readiness
	// is reported even when a build leg failed.
	a.readinessState.MarkReady()
	a.logger.Info("Service marked as ready after initial index build")

	if err != nil {
		a.logger.WithError(err).Error("Initial index build failed")
		return
	}

	a.logger.WithField("bm25_docs", stats.BM25Docs.Load()).
		WithField("vector_docs", stats.VectorDocs.Load()).
		Info("Initial index build completed")
}

// sessionSnapshots periodically persists the session store, in addition to
// the per-turn snapshots written by the interview controller.
func (a *Application) sessionSnapshots(ctx context.Context) {
	a.logger.Debug("Session snapshot job started")
	defer a.logger.Debug("Session snapshot job stopped")

	ticker := time.NewTicker(config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Session snapshot received shutdown signal")
			return
		case <-ticker.C:
			if err := a.sessions.Snapshot(); err != nil {
				a.logger.WithError(err).Error("Periodic session snapshot failed")
			}
		}
	}
}

// archiveUploads periodically mirrors the data directory to the S3 archive.
func (a *Application) archiveUploads(ctx context.Context) {
	if a.archiver == nil {
		return
	}

	a.logger.Debug("Archive upload job started")
	defer a.logger.Debug("Archive upload job stopped")

	ticker := time.NewTicker(a.cfg.ArchiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Archive upload received shutdown signal")
			return
		case <-ticker.C:
			if err := a.archiver.UploadAll(ctx); err != nil {
				a.logger.WithError(err).Error("Periodic archive upload failed")
			}
		}
	}
}

// updateGaugeMetrics periodically records gauge metrics to Prometheus.
func (a *Application) updateGaugeMetrics(ctx context.Context) {
	a.logger.Debug("Gauge metrics job started")
	defer a.logger.Debug("Gauge metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Gauge metrics received shutdown signal")
			return
		case <-ticker.C:
			a.metrics.SetActiveSessions(a.sessions.Len())
		}
	}
}

// readinessMiddleware rejects turn requests with 503 until the initial index
// build completes, so the first answers are not produced from empty indices.
func (a *Application) readinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.cfg.WaitForWarmup && !a.readinessState.IsReady() {
			status := a.readinessState.Status()
			a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
				Debug("Turn rejected: index build in progress")
			c.Header("Retry-After", "60")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":       "service warming up",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-IP request budget on API routes.
func (a *Application) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.apiLimiter == nil {
			c.Next()
			return
		}
		if !a.apiLimiter.Allow(c.ClientIP()) {
			a.metrics.RecordHTTPError("rate_limit", c.FullPath())
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug. Every request carries a
// request id, taken from the incoming headers or generated, and echoed back.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP()).
			WithRequestID(requestID)

		if status >= 500 {
			entry.Error("HTTP request failed")
		} else if status >= 400 && status != 404 {
			entry.Warn("HTTP request rejected")
		} else if status == 404 {
			entry.Debug("HTTP request not found")
		} else {
			entry.Debug("HTTP request completed")
		}
	}
}

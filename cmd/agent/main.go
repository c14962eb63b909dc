package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/meetscribe/capture-agent/pkg/validator"

	"github.com/meetscribe/capture-agent/internal/adapter/handler"
	"github.com/meetscribe/capture-agent/internal/adapter/repository"
	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/domain/repositories"
	"github.com/meetscribe/capture-agent/internal/infrastructure/capture"
	"github.com/meetscribe/capture-agent/internal/infrastructure/database"
	"github.com/meetscribe/capture-agent/internal/infrastructure/external/livekit"
	"github.com/meetscribe/capture-agent/internal/infrastructure/external/meetingapi"
	httpmw "github.com/meetscribe/capture-agent/internal/infrastructure/http/middleware"
	"github.com/meetscribe/capture-agent/internal/infrastructure/ingest"
	"github.com/meetscribe/capture-agent/internal/infrastructure/snapshot"
	"github.com/meetscribe/capture-agent/internal/infrastructure/storage"
	"github.com/meetscribe/capture-agent/internal/infrastructure/wakelock"
	"github.com/meetscribe/capture-agent/internal/usecase/accounting"
	"github.com/meetscribe/capture-agent/internal/usecase/meeting"
	"github.com/meetscribe/capture-agent/internal/usecase/polling"
	"github.com/meetscribe/capture-agent/internal/usecase/reconcile"
	"github.com/meetscribe/capture-agent/internal/usecase/session"
	"github.com/meetscribe/capture-agent/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Agent token gate (empty token disables, development only)
	e.Use(httpmw.EchoAgentToken(cfg.Server.AgentToken))

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Meeting backend: hosted REST API or self-hosted Postgres
	var (
		store        repositories.MeetingStore
		usage        repositories.UsageRepository
		quota        repositories.QuotaChecker
		names        repositories.SpeakerNameRepository
		statusSource repositories.StatusPoller
	)
	switch cfg.Backend.Mode {
	case "local":
		log.Println("📦 Connecting to database (self-hosted backend mode)...")
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)

		// Run AutoMigrate only when explicitly enabled in config.
		// Production deployments should manage schema via sql-migrate.
		if cfg.Database.AutoMigrate {
			if cfg.Server.Environment == "production" {
				log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
			}
			log.Println("🔄 Running migrations (development only) ...")
			if err := database.AutoMigrate(db); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		} else {
			log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
		}

		store = repository.NewMeetingRepository(db)
		usage = repository.NewUsageCountRepository(db)
		names = repository.NewSpeakerNameRepository(db, cfg.Reconcile.LearningGate)
		statusSource = repository.NewStatusRepository(db)
		quota = repository.UnlimitedQuota{}
	default:
		log.Printf("🌐 Using hosted meeting backend at %s", cfg.Backend.BaseURL)
		backend := meetingapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey)
		store = backend
		usage = backend
		quota = backend
		names = backend
		statusSource = backend
	}

	// Crash snapshots: Redis with an in-memory fallback so capture never
	// depends on Redis being up
	log.Println("📦 Connecting to Redis...")
	var snapshots snapshot.Store
	redisClient, err := snapshot.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, crash snapshots are in-memory only", zap.Error(err))
		snapshots = snapshot.NewMemoryStore(cfg.Session.SnapshotTTL)
	} else {
		defer redisClient.Close()
		snapshots = snapshot.NewRedisStore(redisClient, cfg.Session.SnapshotTTL)
	}

	// Optional media chunk archival
	var chunkStore *storage.MinIOClient
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		chunkStore, err = storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
	}

	// LiveKit client (room capture backend only)
	var livekitClient livekit.Client
	if cfg.Capture.Backend == "livekit" {
		log.Println("🎥 Initializing LiveKit client...")
		livekitClient = livekit.NewClient(
			cfg.LiveKit.URL,
			cfg.LiveKit.APIKey,
			cfg.LiveKit.APISecret,
			cfg.LiveKit.UseMock,
		)
		if cfg.LiveKit.UseMock {
			log.Println("⚠️  LiveKit running in MOCK mode (no real server needed)")
		} else {
			log.Printf("✅ LiveKit connected to: %s", cfg.LiveKit.URL)
		}
	}

	// Shared session collaborators
	log.Println("⚙️  Initializing session core...")
	wakeLock := wakelock.NewManager(wakelock.NewInhibitLock(), logger)
	gate := accounting.NewGate(usage, logger)
	hub := handler.NewHub(logger)

	limits := session.Limits{
		MaxDurationSeconds: cfg.Session.MaxDurationSeconds,
		MinDurationSeconds: cfg.Session.MinDurationSeconds,
		MinWordCount:       cfg.Session.MinWordCount,
		AutosaveDebounce:   cfg.Session.AutosaveDebounce,
		SnapshotInterval:   cfg.Session.SnapshotInterval,
		RestartDelay:       cfg.Ingest.RestartDelay,
	}

	newDevice := func() capture.Device {
		var dev capture.Device
		switch cfg.Capture.Backend {
		case "livekit":
			dev = capture.NewRoomDevice(cfg.LiveKit.URL, cfg.LiveKit.RoomName, cfg.LiveKit.Identity, livekitClient, logger)
		default:
			dev = capture.NewMicDevice(cfg.Capture.InputSpec, cfg.Capture.SampleRate, logger)
		}
		if chunkStore != nil {
			rec := storage.NewChunkRecorder(chunkStore, uuid.New(), 0, logger)
			dev = capture.NewTapDevice(dev, rec.Write, rec.Close)
		}
		return dev
	}

	manager := session.NewManager(func() *session.Controller {
		dev := newDevice()

		// The sink fans adapter events into the controller and out to the
		// live caption subscribers. ctrl is assigned before Start runs and
		// adapters never deliver before Start.
		var ctrl *session.Controller
		sink := func(ev ingest.Event) {
			ctrl.HandleEvent(ev)
			s := ctrl.Status()
			if frame := handler.CaptionEventFor(ev, s); frame != nil {
				hub.Broadcast(s.ID, *frame)
			}
		}

		var ingestor ingest.Ingestor
		switch cfg.Ingest.Variant {
		case "local":
			ingestor = ingest.NewLocalRecognizer(cfg.Ingest.LocalCommand, dev, sink, logger)
		default:
			ingestor = ingest.NewRemoteStream(cfg.Ingest.AssemblyAIAPIKey, dev, sink, logger)
		}

		ctrl = session.NewController(session.Deps{
			Device:    dev,
			Ingestor:  ingestor,
			WakeLock:  wakeLock,
			Store:     store,
			Quota:     quota,
			Gate:      gate,
			Snapshots: snapshots,
			Logger:    logger,
		}, limits)
		return ctrl
	})

	// Meeting read side: reconciliation plus diarization job tracking
	log.Println("🧩 Initializing reconciliation engine...")
	engine := reconcile.NewEngine(reconcile.Config{
		MinLengthRatio:      cfg.Reconcile.MinLengthRatio,
		MaxLengthRatio:      cfg.Reconcile.MaxLengthRatio,
		StrongMatch:         cfg.Reconcile.StrongMatch,
		LearningGate:        cfg.Reconcile.LearningGate,
		HighConfidence:      cfg.Reconcile.HighConfidence,
		EdgeWords:           cfg.Reconcile.EdgeWords,
		DiarizationDisabled: cfg.Reconcile.DiarizationDisabled,
	}, logger)

	meetingService := meeting.NewService(store, names, statusSource, engine, logger)

	jobs := polling.NewPoller(statusSource, cfg.Session.PollInterval, logger)
	onSaved := func(meetingID uuid.UUID) {
		jobs.Watch(context.Background(), meetingID, func(u polling.Update) {
			if err := meetingService.ApplyJobUpdate(context.Background(), u.MeetingID, u.Status); err != nil {
				logger.Warn("failed to store diarization update",
					zap.String("meeting_id", u.MeetingID.String()),
					zap.Error(err),
				)
			}
		})
	}

	// Handlers and routes
	log.Println("🛣️  Setting up routes...")
	sessionHandler := handler.NewSession(manager, onSaved, logger)
	meetingHandler := handler.NewMeeting(meetingService, logger)
	liveHandler := handler.NewLive(hub, manager, logger)

	router := handler.NewRouter(cfg, sessionHandler, meetingHandler, liveHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting capture agent on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Force-stop a live session first so the device and wake lock are never
	// leaked; the stop path snapshots and persists the transcript.
	if err := manager.Shutdown(ctx); err != nil {
		logger.Warn("session shutdown failed", zap.Error(err),
			zap.String("stop_reason", string(entities.StopReasonError)))
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Capture agent stopped gracefully")
}

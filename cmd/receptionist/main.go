package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ai-receptionist/internal/catalog"
	"ai-receptionist/internal/common/config"
	"ai-receptionist/internal/common/database"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/observability"
	"ai-receptionist/internal/engine"
	"ai-receptionist/internal/genai"
	"ai-receptionist/internal/intent"
	"ai-receptionist/internal/notify"
	"ai-receptionist/internal/order"
	"ai-receptionist/internal/orderlog"
	"ai-receptionist/internal/reservation"
	"ai-receptionist/internal/session"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer func() { _ = zapLog.Sync() }()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting receptionist...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Re-init at the configured level now that config is available.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New("receptionist")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Business catalog ---
	biz, err := catalog.Load(cfg.Business.DataPath)
	if err != nil {
		// A bad catalog degrades parsing to "nothing matches" rather
		// than refusing to start; calls still classify and generate.
		zapLog.Warn("business catalog unavailable, running degraded", zap.Error(err))
	}
	index := catalog.NewIndex(biz)
	zapLog.Info("Business catalog loaded", zap.Int("menu_items", index.Len()))

	// --- Retrieval index seeding ---
	retriever := genai.NewESRetriever(esClient.Client, cfg.Database.Elasticsearch.Index, log)
	if count, err := retriever.Count(ctx); err != nil {
		zapLog.Warn("retrieval index count failed", zap.Error(err))
	} else if count == 0 {
		if err := retriever.SeedChunks(ctx, catalog.Chunks(biz)); err != nil {
			zapLog.Warn("retrieval index seeding failed", zap.Error(err))
		} else {
			zapLog.Info("Retrieval index seeded from business catalog")
		}
	}

	// --- Generation collaborator ---
	genaiClient := genai.NewClient(genai.ClientConfig{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Timeout:     cfg.GenAITimeout(),
		MaxRetries:  cfg.APIs.GenAI.MaxRetries,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, log)
	cache := genai.NewResponseCache(redisClient.GetClient(), log)
	generator := genai.NewCachedGenerator(genaiClient, cache)

	// --- Intent cascade ---
	var model intent.Model
	if cfg.APIs.IntentModel.Enabled {
		model = intent.NewHTTPModel(intent.HTTPModelConfig{
			BaseURL: cfg.APIs.IntentModel.BaseURL,
			Timeout: cfg.IntentModelTimeout(),
		}, log)
	}
	classifier := intent.NewClassifier(model, genaiClient, log)

	// --- Order log sinks ---
	fileSink := orderlog.NewFileSink(cfg.Business.OrderLogPath, log)
	var sink orderlog.Sink = fileSink
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
		sink = orderlog.MultiSink{fileSink, orderlog.NewPostgresSink(pg.DB, log)}
	}

	// --- Notifications ---
	var notifier engine.Notifier
	if cfg.Notifications.SMS.Enabled || cfg.Notifications.Email.Enabled {
		awsNotifier, err := notify.NewAWSNotifier(ctx, notify.Config{
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			SenderID:     cfg.Notifications.SMS.SenderID,
			EmailEnabled: cfg.Notifications.Email.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			OwnerEmail:   cfg.Notifications.Email.OwnerEmail,
			Region:       cfg.Notifications.AWS.Region,
			BusinessName: biz.BusinessName,
		}, log)
		if err != nil {
			zapLog.Warn("notifier unavailable, order confirmations disabled", zap.Error(err))
		} else {
			notifier = awsNotifier
		}
	}

	// --- Turn engine ---
	sessions := session.NewStore(log)
	eng := engine.New(engine.Params{
		Business:   biz,
		Index:      index,
		Classifier: classifier,
		Extractor:  order.NewExtractor(index, order.DefaultWeights(), log),
		Sessions:   sessions,
		Retriever:  retriever,
		Generator:  generator,
		Followups:  engine.LoadFollowups(cfg.Business.FollowupsPath, log),
		Sink:       sink,
		Notifier:   notifier,
		Observer:   obs,
		Logger:     log,
	})

	book := reservation.NewBook(cfg.Business.ReservationDir, cfg.Business.ID,
		biz.ReservationRules.MaxTablesPerSlot, log)

	// --- HTTP surface ---
	srv := newServer(serverParams{
		config:   cfg,
		engine:   eng,
		sessions: sessions,
		fileSink: fileSink,
		book:     book,
		genai:    genaiClient,
		logger:   log,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Receptionist stopped")
}

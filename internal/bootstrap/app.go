package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"documind/internal/ai"
	"documind/internal/app"
	"documind/internal/chunker"
	"documind/internal/config"
	"documind/internal/extract"
	"documind/internal/model"
	mysqlClient "documind/internal/platform/mysql"
	rabbitmqClient "documind/internal/platform/rabbitmq"
	redisClient "documind/internal/platform/redis"
	"documind/internal/repository"
	"documind/internal/session"
	"documind/internal/store"
	"documind/internal/worker"
)

// App wires platform connections, the vector store, and the services.
type App struct {
	Config  *config.Config
	MySQL   *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Vectors store.Store

	AuthService    *app.AuthService
	SessionService *app.SessionService
	QueryService   *app.QueryService
	Docs           *repository.DocumentRepository
	Publisher      *rabbitmqClient.TaskPublisher

	IngestWorker *worker.IngestWorker
	Sweeper      *app.Sweeper

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestQueue)
	if err != nil {
		return nil, err
	}

	vectors := store.NewQdrant(store.QdrantConfig{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := vectors.Init(ctx, cfg.LLM.EmbeddingDimension); err != nil {
		return nil, fmt.Errorf("init vector store failed: %w", err)
	}

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}

	aiClient := ai.NewClient(
		ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		},
		ai.EmbeddingConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.EmbeddingModel,
			Dimension: cfg.LLM.EmbeddingDimension,
		},
	)

	userRepo := repository.NewUserRepository(mysqlDB)
	docRepo := repository.NewDocumentRepository(mysqlDB)

	authService := app.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	sessionTTL := time.Duration(cfg.RAG.SessionTTLMinute) * time.Minute
	sessionService := app.NewSessionService(
		session.NewRedisStore(redisCli),
		vectors,
		docRepo,
		sessionTTL,
	)

	extractor := extract.New(extract.NewOCR(cfg.OCR.TesseractPath))
	ingestService := app.NewIngestService(
		extractor,
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		aiClient,
		vectors,
		docRepo,
		cfg.RAG.EmbedBatchSize,
		sessionTTL,
	)

	queryService := app.NewQueryService(aiClient, vectors, aiClient, sessionService, cfg.RAG.TopK)

	publisher := rabbitmqClient.NewTaskPublisher(mqConn, cfg.RabbitMQ.IngestQueue)

	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	sweeper := app.NewSweeper(
		sessionService,
		vectors,
		time.Duration(cfg.RAG.SweepIntervalMin)*time.Minute,
		cfg.RAG.MaxStoreMB<<20,
		time.Duration(cfg.RAG.EvictionAgeMinutes)*time.Minute,
	)
	sweeper.Start(ctx)

	return &App{
		Config:         cfg,
		MySQL:          mysqlDB,
		Redis:          redisCli,
		MQConn:         mqConn,
		Vectors:        vectors,
		AuthService:    authService,
		SessionService: sessionService,
		QueryService:   queryService,
		Docs:           docRepo,
		Publisher:      publisher,
		IngestWorker:   ingestWorker,
		Sweeper:        sweeper,
		StartedAt:      time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Sweeper != nil {
		a.Sweeper.Close()
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

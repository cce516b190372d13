package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"companybuddy/internal/ai"
	appsvc "companybuddy/internal/app"
	"companybuddy/internal/cache"
	"companybuddy/internal/config"
	"companybuddy/internal/model"
	mysqlClient "companybuddy/internal/platform/mysql"
	qdrantClient "companybuddy/internal/platform/qdrant"
	rabbitmqClient "companybuddy/internal/platform/rabbitmq"
	redisClient "companybuddy/internal/platform/redis"
	"companybuddy/internal/rag"
	"companybuddy/internal/repository"
	"companybuddy/internal/worker"
)

type App struct {
	Config  *config.Config
	MySQL   *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Qdrant  *qdrantClient.Store
	Lexical *rag.BM25Index

	Auth          *appsvc.AuthService
	Ingest        *appsvc.IngestService
	Ask           *appsvc.AskService
	Feedback      *appsvc.FeedbackService
	Analytics     *appsvc.AnalyticsService
	Conversations *appsvc.ConversationService

	IngestWorker      *worker.IngestWorker
	QueryRecordWorker *worker.QueryRecordWorker

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
	if err := mysqlDB.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.Document{},
		&model.ChunkHash{},
		&model.Conversation{},
		&model.Message{},
		&model.QueryRecord{},
		&model.Feedback{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	vectorStore := qdrantClient.New(qdrantClient.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := vectorStore.EnsureCollection(ctx, cfg.Qdrant.VectorDim); err != nil {
		return nil, fmt.Errorf("ensure qdrant collection failed: %w", err)
	}

	lexical := rag.NewBM25Index(cfg.Retrieval.BM25K1, cfg.Retrieval.BM25B)
	chunker := rag.NewChunker(cfg.Chunking.MaxChars, cfg.Chunking.Overlap)

	llmClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewTextEmbedder(llmClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	generator := ai.NewChatGenerator(llmClient, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	var lexicalIndex rag.LexicalIndex
	if cfg.Retrieval.HybridEnabled {
		lexicalIndex = lexical
	}
	retriever, err := rag.NewRetriever(embedder, vectorStore, lexicalIndex, rag.RetrieverConfig{
		Hybrid:        cfg.Retrieval.HybridEnabled,
		VectorWeight:  cfg.Retrieval.VectorWeight,
		LexicalWeight: cfg.Retrieval.LexicalWeight,
		RRFK:          cfg.Retrieval.RRFK,
	})
	if err != nil {
		return nil, fmt.Errorf("build retriever failed: %w", err)
	}

	var reranker *rag.Reranker
	if cfg.Rerank.Enabled {
		scorer := ai.NewRelevanceScorer(llmClient, ai.RerankConfig{
			BaseURL: cfg.LLM.RerankBaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.RerankModel,
		})
		reranker, err = rag.NewReranker(scorer)
		if err != nil {
			return nil, fmt.Errorf("build reranker failed: %w", err)
		}
	}

	var analyzer *rag.QueryAnalyzer
	if cfg.AdaptiveK.Enabled {
		analyzer, err = rag.NewQueryAnalyzer(rag.AnalyzerOptions{
			SimplePatterns:     cfg.AdaptiveK.SimplePatterns,
			ComplexPatterns:    cfg.AdaptiveK.ComplexPatterns,
			ProceduralPatterns: cfg.AdaptiveK.ProceduralPatterns,
			KSimple:            cfg.AdaptiveK.KSimple,
			KComplex:           cfg.AdaptiveK.KComplex,
			KProcedural:        cfg.AdaptiveK.KProcedural,
			KGeneral:           cfg.AdaptiveK.KGeneral,
			KMax:               cfg.AdaptiveK.KMax,
			LongQueryWords:     cfg.AdaptiveK.LongQueryWords,
		})
		if err != nil {
			return nil, fmt.Errorf("build query analyzer failed: %w", err)
		}
	}

	answers, err := rag.NewAnswerGenerator(generator, rag.AnswerOptions{
		RefusalSentence: cfg.Answer.RefusalSentence,
		RefusalPhrases:  cfg.Answer.RefusalPhrases,
	})
	if err != nil {
		return nil, fmt.Errorf("build answer generator failed: %w", err)
	}

	userRepo := repository.NewUserRepository(mysqlDB)
	tenantRepo := repository.NewTenantRepository(mysqlDB)
	docRepo := repository.NewDocumentRepository(mysqlDB)
	hashRepo := repository.NewChunkHashRepository(mysqlDB)
	convRepo := repository.NewConversationRepository(mysqlDB)
	msgRepo := repository.NewMessageRepository(mysqlDB)
	queryRepo := repository.NewQueryRecordRepository(mysqlDB)
	feedbackRepo := repository.NewFeedbackRepository(mysqlDB)

	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		5*time.Second,
	)

	ingestPublisher := rabbitmqClient.NewPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	queryPublisher := rabbitmqClient.NewPublisher(mqConn, cfg.RabbitMQ.QueryLogQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		tenantRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	ingestService := appsvc.NewIngestService(
		docRepo,
		hashRepo,
		ingestPublisher,
		embedder,
		vectorStore,
		lexical,
		chunker,
		cfg.Retrieval.EmbeddingBatchSize,
	)
	askService := appsvc.NewAskService(
		tenantRepo,
		convRepo,
		msgRepo,
		historyCache,
		retriever,
		reranker,
		analyzer,
		answers,
		generator,
		queryPublisher,
		appsvc.AskConfig{
			DefaultTopK:        cfg.Retrieval.TopK,
			FanOutMultiplier:   cfg.Retrieval.FanOutMultiplier,
			RerankMinScore:     cfg.Rerank.MinScore,
			MaxHistoryMessages: cfg.Answer.MaxHistoryMessages,
		},
	)
	feedbackService := appsvc.NewFeedbackService(feedbackRepo)
	analyticsService := appsvc.NewAnalyticsService(queryRepo, feedbackRepo)
	conversationService := appsvc.NewConversationService(convRepo, msgRepo, historyCache)

	// Chunk text lives only in Qdrant payloads; the in-memory lexical index
	// starts empty and is repopulated here. Failure degrades hybrid search to
	// vector-only until the next restart.
	if err := ingestService.RebuildLexicalIndex(ctx); err != nil {
		log.Printf("rebuild lexical index failed, hybrid search degraded: %v", err)
	}

	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}
	queryRecordWorker := worker.NewQueryRecordWorker(mqConn, queryRepo, cfg.RabbitMQ.QueryLogQueue)
	if err := queryRecordWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start query record worker failed: %w", err)
	}

	return &App{
		Config:            cfg,
		MySQL:             mysqlDB,
		Redis:             redisCli,
		MQConn:            mqConn,
		Qdrant:            vectorStore,
		Lexical:           lexical,
		Auth:              authService,
		Ingest:            ingestService,
		Ask:               askService,
		Feedback:          feedbackService,
		Analytics:         analyticsService,
		Conversations:     conversationService,
		IngestWorker:      ingestWorker,
		QueryRecordWorker: queryRecordWorker,
		StartedAt:         time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.QueryRecordWorker != nil {
		a.QueryRecordWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
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

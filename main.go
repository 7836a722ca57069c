package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	aws_pkg "github.com/hassan-nahid/school-of-music-server/aws"
	"github.com/hassan-nahid/school-of-music-server/config"
	"github.com/hassan-nahid/school-of-music-server/controllers"
	"github.com/hassan-nahid/school-of-music-server/database"
	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
	"github.com/hassan-nahid/school-of-music-server/logger"
	"github.com/hassan-nahid/school-of-music-server/middleware"
	"github.com/hassan-nahid/school-of-music-server/repository"
	"github.com/hassan-nahid/school-of-music-server/routes"
	"github.com/hassan-nahid/school-of-music-server/services"
)

const serviceName = "school-of-music"

func main() {
	log := logger.Initialize(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	// --- AWS setup ---
	awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
	if err != nil {
		log.Warn("Failed to load AWS config, AWS integrations disabled", zap.Error(err))
	}
	awsReady := err == nil

	// CloudWatch (Logs + Metrics)
	var metricsClient *aws_pkg.MetricsClient
	var cwWriter io.Writer
	if cfg.CloudWatchEnabled && awsReady {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Warn("CloudWatch logs client init failed (non-fatal)", zap.Error(err))
		} else {
			cwWriter = cwLogs
		}
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}
	log = logger.InitializeWithWriter(cfg.Env, cwWriter)
	defer func() { _ = log.Sync() }()

	// --- Databases ---
	mongoClient, db, err := database.ConnectMongo(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	indexCtx, cancelIdx := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		log.Warn("Failed to ensure indexes (non-fatal)", zap.Error(err))
	}
	cancelIdx()

	var idempotency repository.IdempotencyRepository
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, Idempotency-Key support disabled", zap.Error(err))
		} else {
			idempotency = repository.NewRedisIdempotencyRepository(redisClient)
		}
	}

	classRepo, err := newClassRepository(cfg, db, awsCfg, awsReady)
	if err != nil {
		log.Fatal("Class store init failed", zap.Error(err))
	}
	userRepo := repository.NewMongoUserRepository(db)
	reviewRepo := repository.NewMongoReviewRepository(db)
	cartRepo := repository.NewMongoCartRepository(db)
	paymentRepo := repository.NewMongoPaymentRepository(db)

	// --- Settlement events ---
	var events services.EventPublisher
	if cfg.SettlementTopic != "" && awsReady {
		events = services.NewSNSEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.SettlementTopic)
	}

	// --- Payments ---
	var intents services.PaymentIntentCreator
	if cfg.PaymentSecretKey != "" {
		intents = services.NewStripeClient(cfg.PaymentSecretKey)
	} else {
		log.Warn("PAYMENT_SECRET_KEY not set, /create-payment-intent will fail")
	}

	// --- Dependency injection ---
	tokenService := services.NewTokenService(cfg.AccessTokenSecret, cfg.TokenTTL)
	userService := services.NewUserService(userRepo, log)
	classService := services.NewClassService(classRepo, reviewRepo, log)
	cartService := services.NewCartService(cartRepo, classRepo, log)
	paymentService := services.NewPaymentService(paymentRepo, intents, metricsClient, log)
	settlementService := services.NewSettlementService(classRepo, cartRepo, paymentRepo, idempotency, events, metricsClient,
		services.SettlementOptions{OversellPolicy: cfg.OversellPolicy, IdempotencyTTL: cfg.IdempotencyTTL}, log)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	routes.Register(r, routes.Controllers{
		Auth:    controllers.NewAuthController(tokenService),
		Users:   controllers.NewUserController(userService),
		Classes: controllers.NewClassController(classService),
		Carts:   controllers.NewCartController(cartService),
		Payment: controllers.NewPaymentController(paymentService, settlementService),
	}, middleware.AuthMiddleware(tokenService, userService))

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("School of music server started",
			zap.String("port", cfg.Port),
			zap.String("class_store", cfg.ClassStore),
			zap.String("oversell_policy", cfg.OversellPolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}
	if err := database.CloseMongo(mongoClient); err != nil {
		log.Error("MongoDB close error", zap.Error(err))
	}
	log.Info("School of music server stopped gracefully")
}

func newClassRepository(cfg *config.Config, db *mongo.Database, awsCfg sdkaws.Config, awsReady bool) (repository.ClassRepository, error) {
	if cfg.ClassStore != config.ClassStoreDynamoDB {
		return repository.NewMongoClassRepository(db), nil
	}
	if !awsReady {
		return nil, errors.New("CLASS_STORE=dynamodb requires a working AWS configuration")
	}
	return repository.NewDynamoClassRepository(database.NewDynamoClient(awsCfg), cfg.DDBTableClasses), nil
}

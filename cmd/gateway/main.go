package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	v1 "github.com/YashKapri/whisper-flow/internal/controller/http/v1"
	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	"github.com/YashKapri/whisper-flow/internal/domain/usecase"
	psqlRepo "github.com/YashKapri/whisper-flow/internal/repository/psql"
	"github.com/YashKapri/whisper-flow/internal/repository/rabbitmq"
	s3Repo "github.com/YashKapri/whisper-flow/internal/repository/s3"
	"github.com/YashKapri/whisper-flow/pkg/client/psql"
	redisClient "github.com/YashKapri/whisper-flow/pkg/client/redis"
	s3Client "github.com/YashKapri/whisper-flow/pkg/client/s3"
	"github.com/YashKapri/whisper-flow/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	Port string

	RedisAddr string
	RedisDB   int

	PSQLHost     string
	PSQLPort     int
	PSQLUser     string
	PSQLPassword string
	PSQLDBName   string
	PSQLSSLMode  string

	S3Host      string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	RabbitMQURL string
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	r := gin.Default()

	redisCli, err := redisClient.NewRedisClient(ctx, redisClient.Config{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: redisCli,
		Limit:       10,
		Window:      time.Second,
		KeyPrefix:   "rl:",
	})
	r.Use(rl)

	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.PSQLHost,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPassword,
		DBName:   cfg.PSQLDBName,
		Port:     cfg.PSQLPort,
		SslMode:  cfg.PSQLSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := db.AutoMigrate(&entity.Job{}); err != nil {
		log.Fatalf("failed to migrate jobs table: %v", err)
	}

	jobRepo := psqlRepo.NewGormJobRepo(db)

	storage, err := s3Client.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to init s3 client: %v", err)
	}
	uploads := s3Repo.NewS3Repo(storage)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	taskPublisher, err := rabbitmq.NewRabbitPublisher(conn, "jobs.exchange", "jobs.transcribe")
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}

	uc := usecase.NewJobUseCase(jobRepo, uploads, taskPublisher)
	handler := v1.NewJobHandler(uc)
	handler.Register(r)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("gateway stopped: %v", err)
	}
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}

	port := os.Getenv("GATEWAY_PORT")
	if port == "" {
		port = "8080"
	}

	// REDIS
	redisHost := mustGetEnv("REDIS_HOST")
	redisPort := mustGetEnv("REDIS_PORT")
	redisDBStr := os.Getenv("REDIS_DB")
	if redisDBStr == "" {
		redisDBStr = "0"
	}
	redisDB, err := strconv.Atoi(redisDBStr)
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}

	// PSQL
	psqlPort, err := strconv.Atoi(mustGetEnv("PSQL_PORT"))
	if err != nil {
		log.Fatalf("Invalid PSQL_PORT value: %v", err)
	}

	// RABBITMQ
	rmqUser := mustGetEnv("RABBITMQ_USER")
	rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
	rmqHost := mustGetEnv("RABBITMQ_HOST")
	rmqPort := mustGetEnv("RABBITMQ_PORT")
	rabbitMQURL := "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"

	return Config{
		Port: port,

		RedisAddr: redisHost + ":" + redisPort,
		RedisDB:   redisDB,

		PSQLHost:     mustGetEnv("PSQL_HOST"),
		PSQLPort:     psqlPort,
		PSQLUser:     mustGetEnv("PSQL_USER"),
		PSQLPassword: mustGetEnv("PSQL_PASSWORD"),
		PSQLDBName:   mustGetEnv("PSQL_DB"),
		PSQLSSLMode:  mustGetEnv("PSQL_SSLMODE"),

		S3Host:      mustGetEnv("S3_HOST") + ":" + mustGetEnv("S3_PORT"),
		S3Bucket:    mustGetEnv("S3_BUCKET"),
		S3AccessKey: mustGetEnv("S3_ACCESS_KEY"),
		S3SecretKey: mustGetEnv("S3_SECRET_KEY"),

		RabbitMQURL: rabbitMQURL,
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/YashKapri/whisper-flow/internal/domain/usecase"
	psqlRepo "github.com/YashKapri/whisper-flow/internal/repository/psql"
	"github.com/YashKapri/whisper-flow/internal/repository/rabbitmq"
	s3Repo "github.com/YashKapri/whisper-flow/internal/repository/s3"
	"github.com/YashKapri/whisper-flow/internal/transcribe"
	"github.com/YashKapri/whisper-flow/pkg/client/psql"
	s3Client "github.com/YashKapri/whisper-flow/pkg/client/s3"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
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

	TempDir string

	EngineBackend   string
	WhisperBin      string
	WhisperModel    string
	OpenAIBaseURL   string
	OpenAIKey       string
	OpenAIModel     string
	EngineOptions   transcribe.Options
	FilterMinLength int
}

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

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
	jobRepo := psqlRepo.NewGormJobRepo(db)

	storage, err := s3Client.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("failed to init s3 client: %v", err)
	}
	audioStore := s3Repo.NewS3Repo(storage)

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}

	// The heavy backend is built on first use and shared by every task this
	// process handles afterwards.
	engine := transcribe.NewLazyEngine(backendFactory(cfg, logger))
	filter := transcribe.NewFilter(transcribe.DefaultPhrases, cfg.FilterMinLength)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	uc := usecase.NewTranscriberUseCase(jobRepo, audioStore, engine, filter, cfg.TempDir, logger)

	consumer, err := rabbitmq.NewTaskConsumer(conn, "jobs.exchange", "jobs.transcribe", "jobs.transcribe.q", uc, logger)
	if err != nil {
		log.Fatalf("failed to init consumer: %v", err)
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("consumer stopped with error: %v", err)
		}
	}()

	logger.Info("transcription worker started", "backend", cfg.EngineBackend)
	<-sigCh
	logger.Info("shutting down transcription worker")
	cancel()
	time.Sleep(time.Second)
}

func backendFactory(cfg Config, logger *slog.Logger) func() (transcribe.Backend, error) {
	return func() (transcribe.Backend, error) {
		logger.Info("initialising transcription backend", "backend", cfg.EngineBackend)
		switch cfg.EngineBackend {
		case "openai":
			return transcribe.NewOpenAIBackend(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)
		default:
			return transcribe.NewWhisperCppBackend(cfg.WhisperBin, cfg.WhisperModel, cfg.EngineOptions)
		}
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

	tempDir := os.Getenv("WORKER_TMP_DIR")
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	backend := os.Getenv("ENGINE_BACKEND")
	if backend == "" {
		backend = "whispercpp"
	}

	opts := transcribe.DefaultOptions()
	opts.BeamWidth = envInt("ENGINE_BEAM_WIDTH", opts.BeamWidth)
	opts.SpeechThreshold = envFloat("ENGINE_SPEECH_THRESHOLD", opts.SpeechThreshold)
	opts.SuppressConditioning = envBool("ENGINE_SUPPRESS_CONDITIONING", opts.SuppressConditioning)
	opts.VADEnabled = envBool("ENGINE_VAD_ENABLED", opts.VADEnabled)

	cfg := Config{
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

		TempDir: tempDir,

		EngineBackend:   backend,
		EngineOptions:   opts,
		FilterMinLength: envInt("FILTER_MIN_LENGTH", transcribe.DefaultMinLength),
	}

	switch backend {
	case "openai":
		cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
		cfg.OpenAIKey = mustGetEnv("OPENAI_API_KEY")
		cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	default:
		cfg.WhisperBin = mustGetEnv("WHISPER_BIN")
		cfg.WhisperModel = mustGetEnv("WHISPER_MODEL")
	}

	return cfg
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return parsed
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/replyhub/autoreply-go/pkg/agent"
	"github.com/replyhub/autoreply-go/pkg/db"
	"github.com/replyhub/autoreply-go/pkg/interfaces/gmb"
	"github.com/replyhub/autoreply-go/pkg/llm/openai"
	"github.com/replyhub/autoreply-go/pkg/memory"
	"github.com/replyhub/autoreply-go/pkg/notify"
	"github.com/replyhub/autoreply-go/pkg/pipeline"
	"github.com/replyhub/autoreply-go/pkg/thoughts"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// Get log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithFields(logrus.Fields{
			"attempted_level": logLevel,
			"default_level":   "INFO",
		}).Warn("Invalid log level specified, defaulting to INFO")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	database, err := db.SetupDatabase(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up database")
	}

	taskStore := memory.NewTaskStore(log, database)
	userStore := memory.NewUserStore(log, database)

	// Initialize OpenAI client. Missing credentials are not fatal: the
	// scheduler keeps running and skips each run as generator_unavailable
	// until the key is supplied.
	var generator thoughts.ReviewReplyGenerator
	if openaiConfig, err := openai.NewOpenAIConfig(); err != nil {
		log.WithError(err).Warn("OpenAI not configured, auto-reply runs will be skipped")
	} else {
		llmClient, err := openai.NewOpenAIClient(openaiConfig)
		if err != nil {
			log.WithError(err).Fatal("Failed to create OpenAI client")
		}
		generator = thoughts.NewReviewReplyGenerator(llmClient.GetLLM())
	}

	// Initialize Google Business Profile client
	gmbConfig, err := gmb.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to create Google Business Profile config")
	}
	// Override logger to use our main logger
	gmbConfig.Logger = log

	gmbClient, err := gmb.NewClient(gmbConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Google Business Profile client")
	}

	// Pick the notification backend: Redis fan-out when configured, log-only
	// otherwise.
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisNotifier, err := notify.NewRedisNotifier(ctx, addr, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect Redis notifier")
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
	}

	// Initialize scheduler
	schedulerConfig, err := agent.NewSchedulerConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to create scheduler config")
	}

	runner, err := pipeline.NewRunner(gmbClient, taskStore, userStore, generator, notifier, log, pipeline.Config{
		MaxGenerationsPerCycle: schedulerConfig.MaxGenerationsPerCycle,
		MaxDispatchPerCycle:    schedulerConfig.MaxDispatchPerCycle,
		SyncLookback:           schedulerConfig.SyncLookback,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create pipeline runner")
	}

	scheduler, err := agent.NewScheduler(runner, userStore, log, schedulerConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to create scheduler")
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	log.Info("Starting auto-reply scheduler")

	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Fatal("Scheduler stopped with error")
	}

	log.Info("Auto-reply shutdown complete")
}

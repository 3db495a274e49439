// Package bootstrap wires adapters, services, and transports together
// for the api and worker processes.
package bootstrap

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"triage_server/adapter/out/messaging"
	"triage_server/adapter/out/persistence"
	"triage_server/config"
	"triage_server/core/port/out"
	"triage_server/core/service/classify"
	"triage_server/core/service/routing"
	"triage_server/infra/database"
	"triage_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client

	// Repositories
	TicketRepo    out.TicketStore
	DirectoryRepo out.Directory
	RuleRepo      out.RuleStore

	// Messaging
	Stream   *messaging.RedisStream
	Producer out.JobProducer

	// Classification
	CompletionClient *classify.Client
	Classifier       out.Classifier

	// Routing
	RoutingEngine *routing.Engine
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })
	logger.Info("database connection established")

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })
	logger.Info("redis connection established")

	// Repositories
	deps.TicketRepo = persistence.NewTicketAdapter(db)
	deps.DirectoryRepo = persistence.NewDirectoryAdapter(db)
	deps.RuleRepo = persistence.NewRuleAdapter(db)

	// Messaging
	deps.Stream = messaging.NewRedisStream(redisClient, cfg.ConsumerGroup)
	deps.Producer = messaging.NewProducer(deps.Stream)

	// Classification
	deps.CompletionClient = classify.NewClient(classify.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
	})
	deps.Classifier = classify.NewClassifier(deps.CompletionClient)

	// Routing
	deps.RoutingEngine = routing.NewEngine()

	return deps, cleanup, nil
}

func (d *Dependencies) consumerBlockWait() time.Duration {
	return time.Duration(d.Config.ConsumerBlockMS) * time.Millisecond
}

func (d *Dependencies) consumerRetryBackoff() time.Duration {
	return time.Duration(d.Config.ConsumerRetryDelayMS) * time.Millisecond
}

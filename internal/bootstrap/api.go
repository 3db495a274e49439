package bootstrap

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	triagehttp "triage_server/adapter/in/http"
	"triage_server/config"
	"triage_server/pkg/logger"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.Environment == "production",
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
	})

	app.Use(recover.New())

	health := triagehttp.NewHealthHandler(deps.DB, deps.Redis, deps.Stream, deps.CompletionClient)
	health.Register(app)

	triage := triagehttp.NewTriageHandler(deps.TicketRepo, deps.Producer)
	triage.Register(app)

	return app, cleanup, nil
}

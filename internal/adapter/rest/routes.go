// Package rest exposes the ledger over HTTP with fiber
package rest

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/finverse/ledger-backend/internal/adapter/auth"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
	"github.com/finverse/ledger-backend/internal/usecase/provisioning"
	"github.com/finverse/ledger-backend/internal/usecase/query"
)

// Deps are the use cases the handlers close over
type Deps struct {
	Engine      *ledger.Engine
	Query       *query.Service
	Provisioner *provisioning.Provisioner
	Retry       ledger.RetryPolicy
	Logger      *slog.Logger
	APIToken    string
}

// NewApp creates the fiber app with middleware and every route registered
func NewApp(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "finverse-ledger",
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestLogger(d.Logger))

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1", BearerAuth(d.APIToken))
	InitializeRoutes(v1, d)
	return app
}

// InitializeRoutes registers the ledger routes on r
func InitializeRoutes(r fiber.Router, d Deps) {
	r.Post("/owners/:owner/operations/:op", ApplyOperationHandler(d))
	r.Post("/owners/:owner/provision", ProvisionHandler(d))
	r.Get("/owners/:owner/net-worth", NetWorthHandler(d))
	r.Get("/owners/:owner/commentary", CommentaryHandler(d))
	r.Get("/entities/:kind/:id", GetEntityHandler(d))
	r.Get("/entities/:kind/:id/history", ListHistoryHandler(d))
	r.Get("/loans/:id/schedule", RepaymentScheduleHandler(d))
}

// BearerAuth rejects requests whose Authorization header does not carry the token
func BearerAuth(validToken string) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponseSchema{Error: "missing authorization header"})
		}
		if !auth.TokenMatches(auth.BearerToken(header), validToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponseSchema{Error: "invalid token"})
		}
		return c.Next()
	}
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(ErrorResponseSchema{Error: msg})
}

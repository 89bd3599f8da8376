package server

import (
	"context"
	"strconv"
	"time"

	"feedmill/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// FeedProvider is the slice of the feed service the HTTP layer needs.
type FeedProvider interface {
	GetPage(ctx context.Context, userID int64, page int) (models.FeedPage, error)
	InvalidatePage(ctx context.Context, userID int64, page int) error
}

type ServerConfig struct {
	// The hostname to use for the server
	Hostname string

	// Feeds answers feed page requests
	Feeds FeedProvider
}

// Server returns a fiber.App serving the feed API.
//
// Authentication is handled upstream; the authenticated user arrives as the
// X-User-ID header. Requests without it are rejected.
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New(fiber.Config{
		AppName: "feedmill",
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Cache-Control, X-User-ID",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/feed", func(c *fiber.Ctx) error {
		userID, err := requestUserID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Missing or invalid X-User-ID header")
		}

		page := parsePage(c.Query("page", "1"))

		log.WithFields(log.Fields{
			"user": userID,
			"page": page,
		}).Info("Generate feed page with parameters")

		feedPage, err := config.Feeds.GetPage(c.UserContext(), userID, page)
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID,
				"page":  page,
				"error": err,
			}).Error("Error building feed page")
			return c.Status(fiber.StatusInternalServerError).SendString("Error building feed")
		}

		return c.JSON(models.FeedResponse{
			Data:    feedPage.Items,
			Total:   feedPage.Total,
			Page:    feedPage.Page,
			PerPage: feedPage.PerPage,
		})
	})

	// Targeted invalidation for callers that know a user's feed changed.
	app.Delete("/feed/cache", func(c *fiber.Ctx) error {
		userID, err := requestUserID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Missing or invalid X-User-ID header")
		}

		page := parsePage(c.Query("page", "1"))

		if err := config.Feeds.InvalidatePage(c.UserContext(), userID, page); err != nil {
			log.WithFields(log.Fields{
				"user":  userID,
				"page":  page,
				"error": err,
			}).Error("Error invalidating feed page")
			return c.Status(fiber.StatusInternalServerError).SendString("Error invalidating feed page")
		}

		return c.SendString("OK")
	})

	return app
}

func requestUserID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Get("X-User-ID"), 10, 64)
}

// parsePage clamps anything unparseable or out of range to page 1.
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

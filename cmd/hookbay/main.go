package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hookbayhq/hookbay/internal/pkg/cache"
	"github.com/hookbayhq/hookbay/internal/pkg/database"
	"github.com/hookbayhq/hookbay/internal/pkg/env"
	"github.com/hookbayhq/hookbay/internal/pkg/metrics/counter"
	"github.com/hookbayhq/hookbay/internal/pkg/router"
)

const counterFlushInterval = time.Minute

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // webhook payloads are small; 1 MiB is plenty
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// drain settlement counters into the daily stats table
	go flushCountersLoop()

	// ROUTER
	router.InstallRouter(app)

	return app
}

func flushCountersLoop() {
	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := counter.FlushAll(); err != nil {
			log.Printf("settlement counter flush failed: %v", err)
		}
	}
}

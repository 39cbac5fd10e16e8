// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tablerummy/rummy-service/internal/auth"
	"github.com/tablerummy/rummy-service/internal/cache"
	"github.com/tablerummy/rummy-service/internal/database"
	"github.com/tablerummy/rummy-service/internal/handlers"
	"github.com/tablerummy/rummy-service/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Postgres and Redis are optional: without them accounts and the action
	// ledger are disabled but tables still run fully in memory.
	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	} else {
		logger.Warn("PG_HOST not set; running without persistence")
	}
	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("redis unavailable, action ledger disabled: %v", err)
		}
	}

	srv := handlers.NewServer(logger)
	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/claim", handlers.ClaimEphemeralHandler)

	// table endpoints
	mux.Handle("/table/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateTableHandler(srv),
	)))
	mux.Handle("/table/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListTablesHandler(srv),
	)))
	mux.Handle("/table/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.TableWSHandler(logger, srv),
	)))
	mux.Handle("/table/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GetTableHandler(srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

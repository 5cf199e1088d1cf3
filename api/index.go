package handler

import (
	"log"
	"net/http"

	"github.com/arnavshah/staff-scheduler-go/pkg/auth"
	"github.com/arnavshah/staff-scheduler-go/pkg/config"
	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"github.com/arnavshah/staff-scheduler-go/pkg/handlers"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}

	db := database.InitDB(cfg)
	_ = auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger)

	// Serverless invocations are short lived, so neither the cron job nor
	// long-held Redis and Neo4j connections are started here.
	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(handlers.New(db, cfg, nil, nil, logger))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}

package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"cratetrack/config/database"
	"cratetrack/pkg/geocode"
	"cratetrack/pkg/logger"
	"cratetrack/router"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	db := database.Connect()
	defer db.Close()

	geo := geocode.NewClient(os.Getenv("GEOCODE_BASE_URL"), nil)

	handler, hub := router.Setup(db, geo)
	go hub.Run()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Sugar.Infof("cratetrack listening on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}

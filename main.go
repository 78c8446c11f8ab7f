package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"

	"voicetrader/cmd/toolserver"
	"voicetrader/src/database"
	"voicetrader/src/logging"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	logging.SetupLogger()
	defer handlePanic()

	// Audit journal, optional
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.CloseMainDB()

	rt := toolserver.NewRuntime(context.Background(), toolserver.GetConfig(), database.MainDB, logging.Component("main"))
	defer rt.Close()

	if err := rt.Start(); err != nil {
		logger.WithError(err).Error("Tool server stopped")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}

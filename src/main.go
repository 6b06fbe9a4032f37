package main

import (
	"mediagrab-be-server/src/application"
	"mediagrab-be-server/src/lib/cerr"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

func main() {
	// the env file is optional, deployed environments set real env vars
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment variables")
	}

	app := application.NewApp()
	if err := app.Start(); err != nil {
		cerr.Log(cerr.Wrap(err).Error("Server stopped"))
	}
}

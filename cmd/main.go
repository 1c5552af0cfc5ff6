package main

import (
	"fmt"
	"os"

	"github.com/talentrail/talentrail-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	addr := ":" + application.Cfg.Port
	application.Log.Info("Server listening", "addr", addr)
	if err := application.Router.Run(addr); err != nil {
		application.Log.Error("Server failed", "error", err)
	}
}

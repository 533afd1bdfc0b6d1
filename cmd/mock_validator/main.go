package main

import (
	"log/slog"
	"os"

	"github.com/validation-portal/portal-client/cmd/mock_validator/routes"
	"github.com/validation-portal/portal-client/internal/logger"
)

func main() {
	logger.InitSlog(slog.LevelDebug)

	listen := os.Getenv("MOCK_VALIDATOR_LISTEN")
	if listen == "" {
		listen = ":1323"
	}

	users := map[string]string{"operator": "password"}
	if name, password := os.Getenv("MOCK_VALIDATOR_USER"), os.Getenv("MOCK_VALIDATOR_PASSWORD"); name != "" {
		users[name] = password
	}

	e := routes.BuildEcho(logger.Logger, routes.NewServer(users))
	e.Logger.Fatal(e.Start(listen))
}

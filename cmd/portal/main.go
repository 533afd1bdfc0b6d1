package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/validation-portal/portal-client/cmd/portal/cmds"
	clierrors "github.com/validation-portal/portal-client/internal/cli_errors"
	"github.com/validation-portal/portal-client/internal/config"
	"github.com/validation-portal/portal-client/internal/logger"
	otelportal "github.com/validation-portal/portal-client/internal/otel"
)

var tracer = otel.Tracer("github.com/validation-portal/portal-client/portal")

func envName(key string) string {
	return strings.ToUpper(config.EnvPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
}

func runApp(ctx context.Context) int {
	useOTLP := false
	if raw, ok := os.LookupEnv(envName(config.UseOTLP)); ok {
		var err error
		useOTLP, err = strconv.ParseBool(raw)
		if err != nil {
			logger.Logger.Warn("use_otlp env var is invalid", "error", err)
		}
	}

	shutdown, err := otelportal.SetupOTelSDK(ctx, otelportal.Options{
		ServiceName:    "validation-portal-client",
		ServiceVersion: cmds.Version,
		UseOTLP:        useOTLP,
	})
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	}
	defer func() {
		fail := shutdown(ctx)
		if fail != nil {
			logger.Logger.Warn("no clean shutdown for otel", "error", fail)
		}
	}()

	extractedContext := otelportal.ContextFromEnv(context.Background())
	ctx, span := tracer.Start(
		ctx,
		"Portal",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(extractedContext)),
	)
	defer span.End()

	err = cmds.Execute(ctx)
	if err != nil {
		logger.Logger.ErrorContext(ctx, "error executing subcommands", "error", err)
	}

	return clierrors.Code(err)
}

func main() {
	logger.InitSlog(slog.LevelInfo)

	ctx := context.Background()

	os.Exit(runApp(ctx))
}

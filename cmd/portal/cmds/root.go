package cmds

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/validation-portal/portal-client/internal/audit"
	"github.com/validation-portal/portal-client/internal/config"
	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/session"
)

var tracer = otel.Tracer("github.com/validation-portal/portal-client/cmd/portal/cmds")

var (
	configFile string
	cfg        *config.Config
)

// flag name -> config key it overrides
var boundFlags = map[string]string{
	"endpoint":     config.EndpointBaseURL,
	"download-dir": config.DownloadDir,
	"operator":     config.Operator,
}

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Submit SBOM and data preparation files to the validation portal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.New(configFile)
		if err != nil {
			return err
		}

		flags := cmd.Root().PersistentFlags()
		for flag, key := range boundFlags {
			if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return err
			}
		}

		cfg, err = config.Load(v)
		if err != nil {
			return usageError(err)
		}

		logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

		if cfg.Logging.Audit {
			audit.SetOutput(os.Stderr)
		} else {
			audit.SetOutput(io.Discard)
		}

		return nil
	},
}

func openSession() session.ReadWriter {
	if cfg.Session.Backend == "redis" {
		return session.NewRedisStore(session.RedisStoreConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			Prefix:   cfg.Session.Redis.Prefix,
			DB:       cfg.Session.Redis.DB,
		})
	}

	return session.NewFileStore(cfg.Session.File)
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default portal.yaml in the standard locations)")
	rootCmd.PersistentFlags().String("endpoint", "", "Base URL of the validation service")
	rootCmd.PersistentFlags().String("download-dir", "", "Directory reports are saved into")
	rootCmd.PersistentFlags().String("operator", "", "Operator name recorded in audit events")
}

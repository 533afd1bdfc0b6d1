package cmds

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/validation-portal/portal-client/internal/api"
	clierrors "github.com/validation-portal/portal-client/internal/cli_errors"
	"github.com/validation-portal/portal-client/internal/render"
	"github.com/validation-portal/portal-client/internal/save"
	"github.com/validation-portal/portal-client/internal/types"
)

var reportsDownload int64

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List previously generated reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "reportsCmd")
		defer span.End()

		client, err := newAPIClient()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create api client")
			return usageError(err)
		}

		reports, err := client.Reports(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list reports")
			return err
		}

		if reportsDownload == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), render.New(cmd.OutOrStdout()).Reports(reports))
			span.SetStatus(codes.Ok, "listed reports")
			return nil
		}

		span.SetAttributes(attribute.Int64("report.id", reportsDownload))
		for _, report := range reports {
			if report.ID != reportsDownload {
				continue
			}
			if report.ContentURL == nil {
				return usageError(fmt.Errorf("report %d has no content", report.ID))
			}

			body, err := client.Fetch(ctx, *report.ContentURL)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch report")
				return err
			}
			defer body.Close()

			data, err := io.ReadAll(body)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to read report")
				return err
			}

			saved, err := save.NewDirSaver(cfg.Download.Dir, cfg.Download.DefaultFilename).
				Write(ctx, path.Base(*report.ContentURL), data)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to save report")
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", saved)
			span.SetStatus(codes.Ok, "downloaded report")
			return nil
		}

		return usageError(fmt.Errorf("no report with id %d", reportsDownload))
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "reportsDeleteCmd")
		defer span.End()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid report id")
			return usageError(fmt.Errorf("invalid report id %q", args[0]))
		}
		span.SetAttributes(attribute.Int64("report.id", id))

		client, err := newAPIClient()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create api client")
			return usageError(err)
		}

		if err := client.DeleteReport(ctx, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete report")

			var statusErr *api.StatusError
			if errors.Is(err, api.ErrNotLoggedIn) ||
				(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound) {
				return usageError(err)
			}
			return clierrors.ExitErrorWrap(types.ExitErrored, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %d\n", id)
		span.SetStatus(codes.Ok, "deleted report")
		return nil
	},
}

func init() {
	reportsCmd.Flags().Int64Var(&reportsDownload, "download", 0, "Download the report with this id")

	reportsCmd.AddCommand(reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}

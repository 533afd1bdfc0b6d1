package cmds

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/validation-portal/portal-client/internal/config"
	otelportal "github.com/validation-portal/portal-client/internal/otel"
	"github.com/validation-portal/portal-client/internal/portal"
	"github.com/validation-portal/portal-client/internal/render"
	"github.com/validation-portal/portal-client/internal/save"
	"github.com/validation-portal/portal-client/internal/types"
	"github.com/validation-portal/portal-client/internal/upload"
)

var (
	submitSBOM               string
	submitDataPrep           string
	submitPlantReference     string
	submitProductionArea     string
	submitSingleFileAssembly bool
	submitTraceEnv           bool
)

func newArchiveSaver(c *config.Config) (save.Saver, error) {
	var (
		uploader upload.Uploader
		err      error
	)

	switch c.Archive.Backend {
	case "azure":
		uploader, err = upload.NewAzureUploader(
			c.Archive.Azure.AccountName,
			c.Archive.Azure.AccountKey,
			c.Archive.Azure.ServiceURL,
			c.Archive.Azure.Container,
		)
	default:
		uploader, err = upload.NewMinioUploader(
			c.Archive.Minio.Endpoint,
			c.Archive.Minio.AccessKeyID,
			c.Archive.Minio.SecretAccessKey,
			c.Archive.Minio.SSLEnabled,
			c.Archive.Minio.BucketName,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s archive: %w", c.Archive.Backend, err)
	}

	return save.NewArchiveSaver(upload.NewRetryUploader(uploader), "application/pdf", c.Archive.PresignTTL), nil
}

func newSaver(c *config.Config) (save.Saver, error) {
	dir := save.NewDirSaver(c.Download.Dir, c.Download.DefaultFilename)
	if !c.Archive.Enabled {
		return dir, nil
	}

	archive, err := newArchiveSaver(c)
	if err != nil {
		return nil, err
	}

	return save.Multi{dir, archive}, nil
}

func selectArtifacts(selector *portal.Selector) error {
	sbom, err := portal.ArtifactFromFile(submitSBOM)
	if err != nil {
		return err
	}
	if err := selector.SelectSBOM(sbom); err != nil {
		return err
	}

	dataPrep, err := portal.ArtifactFromFile(submitDataPrep)
	if err != nil {
		return err
	}
	return selector.SelectDataPrep(dataPrep)
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate an SBOM and data preparation file and save the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "submitCmd")
		defer span.End()

		span.SetAttributes(
			attribute.String("sbom", submitSBOM),
			attribute.String("data_prep", submitDataPrep),
		)

		if submitTraceEnv {
			for _, line := range otelportal.EnvFromContext(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
		}

		out := render.New(cmd.OutOrStdout())
		progress := render.New(cmd.ErrOrStderr())

		selector := portal.NewSelector()
		if err := selectArtifacts(selector); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid artifacts")
			fmt.Fprintln(cmd.OutOrStdout(), out.View(portal.Present(portal.State{}, err, selector.Ready())))
			return usageError(err)
		}

		params := portal.NewParameters()
		for field, value := range map[string]string{
			types.FieldPlantReference:          submitPlantReference,
			types.FieldProductionAreaReference: submitProductionArea,
		} {
			if err := params.SetField(field, value); err != nil {
				return err
			}
		}
		params.SetAssemblyFlag(submitSingleFileAssembly)

		endpoint, err := cfg.ValidateURL()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid endpoint")
			return usageError(err)
		}

		saver, err := newSaver(cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create saver")
			return err
		}

		opts := []portal.Option{
			portal.WithHTTPClient(&http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   cfg.Endpoint.Timeout,
			}),
			portal.WithSession(openSession()),
			portal.WithSaver(saver),
			portal.WithDefaultFilename(cfg.Download.DefaultFilename),
			portal.WithObserver(progress.Observe),
		}
		if cfg.Operator != "" {
			opts = append(opts, portal.WithOperator(cfg.Operator))
		}

		controller := portal.NewController(endpoint, selector, params, opts...)

		state, err := controller.Submit(ctx)
		fmt.Fprintln(cmd.OutOrStdout(), out.View(controller.View()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submission failed")
			return submitError(err)
		}

		span.SetAttributes(attribute.String("report", state.Report.Filename))
		span.SetStatus(codes.Ok, "submitted")
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitSBOM, "sbom", "", "Path to the SBOM XML file")
	submitCmd.Flags().StringVar(&submitDataPrep, "data-prep", "", "Path to the data preparation XLSX file")
	submitCmd.Flags().StringVar(&submitPlantReference, "plant", "", "Work center plant reference")
	submitCmd.Flags().StringVar(&submitProductionArea, "production-area", "", "Work center production area reference")
	submitCmd.Flags().BoolVar(&submitSingleFileAssembly, "single-file-assembly", false, "Work center uses single file assembly")
	submitCmd.Flags().BoolVar(&submitTraceEnv, "trace-env", false, "Print environment lines that let the next step join this trace")
	for _, flag := range []string{"sbom", "data-prep"} {
		err := submitCmd.MarkFlagRequired(flag)
		if err != nil {
			panic("Internal error contact a contributor [submit-flag-required]")
		}
	}

	rootCmd.AddCommand(submitCmd)
}

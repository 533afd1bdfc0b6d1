package cmds

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validation-portal/portal-client/cmd/mock_validator/routes"

	clierrors "github.com/validation-portal/portal-client/internal/cli_errors"
	"github.com/validation-portal/portal-client/internal/portal"
	"github.com/validation-portal/portal-client/internal/types"
)

func TestSubmitError(t *testing.T) {
	tt := map[string]struct {
		err  error
		code int
	}{
		"Missing":     {err: portal.ErrMissingArtifact, code: types.ExitUsage},
		"Unsupported": {err: &portal.UnsupportedArtifactError{Slot: portal.SlotSBOM}, code: types.ExitUsage},
		"Service":     {err: &portal.ServiceError{Message: "bad", StatusCode: 400}, code: types.ExitValidationFailed},
		"Transport":   {err: &portal.TransportError{Err: errors.New("reset")}, code: types.ExitErrored},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.code, clierrors.Code(submitError(tc.err)))
		})
	}
}

type env struct {
	configPath  string
	downloadDir string
	sbom        string
	dataPrep    string
}

func newEnv(t *testing.T, handler echo.HandlerFunc) env {
	t.Helper()

	e := echo.New()
	e.POST("/validate/", handler)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	out := env{
		configPath:  filepath.Join(dir, "portal.yaml"),
		downloadDir: filepath.Join(dir, "reports"),
		sbom:        filepath.Join(dir, "bom.xml"),
		dataPrep:    filepath.Join(dir, "prep.xlsx"),
	}

	require.NoError(t, os.Mkdir(out.downloadDir, 0o700))
	require.NoError(t, os.WriteFile(out.sbom, []byte("<bom/>"), 0o600))
	require.NoError(t, os.WriteFile(out.dataPrep, []byte("PK\x03\x04"), 0o600))
	require.NoError(t, os.WriteFile(out.configPath, []byte(fmt.Sprintf(`
endpoint:
  base_url: %s
session:
  file: %s
download:
  dir: %s
logging:
  audit: false
`, srv.URL, filepath.Join(dir, "session.yaml"), out.downloadDir)), 0o600))

	return out
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := Execute(context.Background())
	return stdout.String(), err
}

func TestSubmitCommand(t *testing.T) {
	t.Run("SavesReport", func(t *testing.T) {
		e := newEnv(t, func(c echo.Context) error {
			if c.FormValue(types.FieldPlantReference) != "PLANT-7" {
				return c.JSON(http.StatusBadRequest, types.StringError("bad plant reference"))
			}
			c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="Report_1.pdf"`)
			return c.Blob(http.StatusOK, "application/pdf", []byte("%PDF-1.4"))
		})

		out, err := run(t,
			"--config", e.configPath,
			"submit",
			"--sbom", e.sbom,
			"--data-prep", e.dataPrep,
			"--plant", "PLANT-7",
		)
		require.NoError(t, err, "submit failed")
		assert.Contains(t, out, "Validation completed successfully!")

		data, err := os.ReadFile(filepath.Join(e.downloadDir, "Report_1.pdf"))
		require.NoError(t, err, "report was not saved")
		assert.Equal(t, []byte("%PDF-1.4"), data)
	})

	t.Run("ServiceRejects", func(t *testing.T) {
		e := newEnv(t, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, types.StringError("bad plant reference"))
		})

		out, err := run(t,
			"--config", e.configPath,
			"submit",
			"--sbom", e.sbom,
			"--data-prep", e.dataPrep,
			"--plant", "nope",
		)
		require.Error(t, err)
		assert.Equal(t, types.ExitValidationFailed, clierrors.Code(err))
		assert.Contains(t, out, "bad plant reference")
	})

	t.Run("WrongSlot", func(t *testing.T) {
		e := newEnv(t, func(c echo.Context) error {
			t.Error("service should not be contacted")
			return c.NoContent(http.StatusInternalServerError)
		})

		out, err := run(t,
			"--config", e.configPath,
			"submit",
			"--sbom", e.dataPrep,
			"--data-prep", e.sbom,
		)
		require.Error(t, err)
		assert.Equal(t, types.ExitUsage, clierrors.Code(err))
		assert.Contains(t, out, "Please upload an XML file for SBOM")
	})
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("xl/workbook.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<workbook/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestMockValidatorRoundTrip(t *testing.T) {
	srv := httptest.NewServer(routes.BuildEcho(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		routes.NewServer(map[string]string{"operator": "password"}),
	))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	downloadDir := filepath.Join(dir, "reports")
	configPath := filepath.Join(dir, "portal.yaml")
	sbom := filepath.Join(dir, "bom.xml")
	dataPrep := filepath.Join(dir, "prep.xlsx")

	require.NoError(t, os.WriteFile(sbom, []byte(`<?xml version="1.0"?><sbom/>`), 0o600))
	writeWorkbook(t, dataPrep)
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
endpoint:
  base_url: %s
session:
  file: %s
download:
  dir: %s
logging:
  audit: false
api:
  retry_max: 0
`, srv.URL, filepath.Join(dir, "session.yaml"), downloadDir)), 0o600))

	t.Setenv("VALIDATIONPORTAL_PASSWORD", "password")

	out, err := run(t, "--config", configPath, "login", "--username", "operator")
	require.NoError(t, err, "login failed")
	assert.Contains(t, out, "Logged in as operator")

	out, err = run(t,
		"--config", configPath,
		"submit",
		"--sbom", sbom,
		"--data-prep", dataPrep,
		"--plant", "PLANT-7",
		"--production-area", "AREA-1",
	)
	require.NoError(t, err, "submit failed")
	assert.Contains(t, out, "Validation completed successfully!")

	saved, err := filepath.Glob(filepath.Join(downloadDir, "Report_*.pdf"))
	require.NoError(t, err)
	require.Len(t, saved, 1, "report was not saved")

	report, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Contains(t, string(report), `plant="PLANT-7" area="AREA-1" single_file_assembly=No`)

	out, err = run(t, "--config", configPath, "reports")
	require.NoError(t, err, "listing reports failed")
	assert.Contains(t, out, "/media/reports/1.pdf")

	out, err = run(t, "--config", configPath, "reports", "--download", "1")
	require.NoError(t, err, "downloading report failed")
	assert.Contains(t, out, "Saved")

	downloaded, err := os.ReadFile(filepath.Join(downloadDir, "1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, report, downloaded)

	out, err = run(t, "--config", configPath, "reports", "delete", "1")
	require.NoError(t, err, "deleting report failed")
	assert.Contains(t, out, "Deleted report 1")

	_, err = run(t, "--config", configPath, "reports", "delete", "1")
	require.Error(t, err, "report is already gone")
	assert.Equal(t, types.ExitUsage, clierrors.Code(err))

	t.Setenv("VALIDATIONPORTAL_NEW_PASSWORD", "changed")
	out, err = run(t, "--config", configPath, "password")
	require.NoError(t, err, "password reset failed")
	assert.Contains(t, out, "Password reset successfully.")

	_, err = run(t, "--config", configPath, "login", "--username", "operator")
	require.Error(t, err, "old password should be rejected")

	t.Setenv("VALIDATIONPORTAL_PASSWORD", "changed")
	_, err = run(t, "--config", configPath, "login", "--username", "operator")
	require.NoError(t, err, "login with the new password failed")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

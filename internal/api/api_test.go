package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validation-portal/portal-client/internal/api"
	"github.com/validation-portal/portal-client/internal/session"
	"github.com/validation-portal/portal-client/internal/types"
)

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	client *api.Client
	store  *session.FileStore
	url    string
	hits   atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newRetryingFixture(t, 0)
}

func newRetryingFixture(t *testing.T, retryMax int) *fixture {
	t.Helper()

	f := &fixture{}
	e := echo.New()
	e.Pre(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			f.hits.Add(1)
			return next(c)
		}
	})

	e.POST("/token/", func(c echo.Context) error {
		var req types.TokenRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Username != "operator" || req.Password != "hunter2" {
			return c.JSON(http.StatusUnauthorized, types.StringError("No active account found with the given credentials"))
		}
		return c.JSON(http.StatusOK, types.TokenPair{Access: "access-1", Refresh: "refresh-1"})
	})
	e.POST("/token/refresh/", func(c echo.Context) error {
		var req types.RefreshRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Refresh != "refresh-1" {
			return c.JSON(http.StatusUnauthorized, types.StringError("Token is invalid or expired"))
		}
		return c.JSON(http.StatusOK, types.AccessToken{Access: "access-2"})
	})
	e.GET("/reports/self/", func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer access-1" {
			return c.JSON(http.StatusUnauthorized, types.StringError("Authentication credentials were not provided."))
		}
		return c.JSON(http.StatusOK, []types.ReportSummary{{
			ID:         42,
			Username:   "operator",
			ContentURL: ptr(f.url + "/media/reports/42.pdf"),
			CreatedAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		}})
	})
	e.GET("/media/reports/42.pdf", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/pdf", []byte("%PDF-1.4"))
	})
	e.GET("/unstable/", func(c echo.Context) error {
		return c.String(http.StatusServiceUnavailable, "try later")
	})
	e.POST("/unstable/", func(c echo.Context) error {
		return c.String(http.StatusServiceUnavailable, "try later")
	})
	e.DELETE("/delete-report/:id/", func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer access-1" {
			return c.JSON(http.StatusUnauthorized, types.StringError("Authentication credentials were not provided."))
		}
		if c.Param("id") != "42" {
			return c.JSON(http.StatusNotFound, types.StringError("Report not found or you don't have permission"))
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/reset-cred/", func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer access-1" {
			return c.JSON(http.StatusUnauthorized, types.StringError("Authentication credentials were not provided."))
		}
		var req types.ResetCredentialsRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.OldPassword != "hunter2" {
			return c.JSON(http.StatusBadRequest, types.StringError("Old password is incorrect."))
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully."})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	f.url = srv.URL

	f.store = session.NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
	f.client = api.NewClient(api.Endpoints{
		Token:            srv.URL + "/token/",
		TokenRefresh:     srv.URL + "/token/refresh/",
		Reports:          srv.URL + "/reports/self/",
		DeleteReport:     srv.URL + "/delete-report/",
		ResetCredentials: srv.URL + "/reset-cred/",
	}, f.store, retryMax)

	return f
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresTokenPair", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"), "failed to log in")

		for key, expected := range map[string]string{
			types.SessionAccessToken:  "access-1",
			types.SessionRefreshToken: "refresh-1",
			types.SessionUsername:     "operator",
		} {
			actual, err := f.store.Get(ctx, key)
			require.NoError(t, err, "missing %s", key)
			assert.Equal(t, expected, actual)
		}
	})

	t.Run("BadCredentials", func(t *testing.T) {
		f := newFixture(t)
		err := f.client.Login(ctx, "operator", "wrong")
		require.Error(t, err)

		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
		assert.Equal(t, "No active account found with the given credentials", statusErr.Message)

		_, err = f.store.Get(ctx, types.SessionAccessToken)
		require.ErrorIs(t, err, session.ErrNotFound, "nothing should be stored")
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("NotLoggedIn", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.client.Refresh(ctx), api.ErrNotLoggedIn)
		assert.EqualValues(t, 0, f.hits.Load())
	})

	t.Run("ReplacesAccessToken", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))
		require.NoError(t, f.client.Refresh(ctx))

		access, err := f.store.Get(ctx, types.SessionAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "access-2", access)

		refresh, err := f.store.Get(ctx, types.SessionRefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh-1", refresh, "refresh token is kept")
	})

	t.Run("Expired", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Set(ctx, types.SessionRefreshToken, "stale"))

		err := f.client.Refresh(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Token is invalid or expired")
	})
}

func TestReports(t *testing.T) {
	ctx := context.Background()

	t.Run("NotLoggedIn", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.Reports(ctx)
		require.ErrorIs(t, err, api.ErrNotLoggedIn)
	})

	t.Run("ListAndFetch", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))

		reports, err := f.client.Reports(ctx)
		require.NoError(t, err, "failed to list reports")
		require.Len(t, reports, 1)
		assert.EqualValues(t, 42, reports[0].ID)
		assert.Nil(t, reports[0].SBOMURL)
		require.NotNil(t, reports[0].ContentURL)

		body, err := f.client.Fetch(ctx, *reports[0].ContentURL)
		require.NoError(t, err, "failed to fetch report")
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), data)
	})

	t.Run("StaleToken", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Set(ctx, types.SessionAccessToken, "expired"))

		_, err := f.client.Reports(ctx)
		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.Fetch(ctx, f.url+"/media/reports/7.pdf")
		require.Error(t, err, "expected to fail")
	})

	t.Run("PassesThroughServerErrors", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.client.Fetch(ctx, f.url+"/unstable/")

		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "request failed with status code 503", statusErr.Error())
		assert.EqualValues(t, 1, f.hits.Load(), "retries are disabled")
	})
}

func TestRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("RetriesIdempotent", func(t *testing.T) {
		f := newRetryingFixture(t, 1)
		_, err := f.client.Fetch(ctx, f.url+"/unstable/")

		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		assert.EqualValues(t, 2, f.hits.Load(), "GET should be retried")
	})

	t.Run("SendsPostOnce", func(t *testing.T) {
		f := newFixture(t)
		f.client = api.NewClient(api.Endpoints{Token: f.url + "/unstable/"}, f.store, 3)

		err := f.client.Login(ctx, "operator", "hunter2")

		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		assert.EqualValues(t, 1, f.hits.Load(), "POST should not be retried")
	})
}

func TestDeleteReport(t *testing.T) {
	ctx := context.Background()

	t.Run("NotLoggedIn", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.client.DeleteReport(ctx, 42), api.ErrNotLoggedIn)
		assert.EqualValues(t, 0, f.hits.Load())
	})

	t.Run("Deletes", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))
		require.NoError(t, f.client.DeleteReport(ctx, 42), "failed to delete report")
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))

		err := f.client.DeleteReport(ctx, 7)
		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, "Report not found or you don't have permission", statusErr.Message)
	})
}

func TestResetCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("NotLoggedIn", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.client.ResetCredentials(ctx, "hunter2", "hunter3"), api.ErrNotLoggedIn)
	})

	t.Run("Resets", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))
		require.NoError(t, f.client.ResetCredentials(ctx, "hunter2", "hunter3"))

		access, err := f.store.Get(ctx, types.SessionAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "access-1", access, "session is kept")
	})

	t.Run("WrongOldPassword", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.client.Login(ctx, "operator", "hunter2"))

		err := f.client.ResetCredentials(ctx, "wrong", "hunter3")
		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
		assert.Equal(t, "Old password is incorrect.", statusErr.Message)
	})
}

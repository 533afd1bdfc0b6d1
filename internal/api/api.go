// Package api talks to the auxiliary endpoints of the validation service:
// token obtain and refresh, credential reset and the operator's report history.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/session"
	"github.com/validation-portal/portal-client/internal/types"
)

var tracer = otel.Tracer("github.com/validation-portal/portal-client/internal/api")

var ErrNotLoggedIn = errors.New("not logged in")

// Non 2xx response of the service
type StatusError struct {
	Fields     map[string]string
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	}
	return e.Message
}

type Endpoints struct {
	Token            string
	TokenRefresh     string
	Reports          string
	DeleteReport     string
	ResetCredentials string
}

type Client struct {
	client    *retryablehttp.Client
	session   session.ReadWriter
	logger    *slog.Logger
	endpoints Endpoints
}

type methodKey struct{}

// Request with its method recorded in the context for checkRetry
func newRequest(ctx context.Context, method, url string, body any) (*retryablehttp.Request, error) {
	return retryablehttp.NewRequestWithContext(context.WithValue(ctx, methodKey{}, method), method, url, body)
}

// POST and PATCH may have been applied by the service even when the
// response never arrived, so only idempotent methods are replayed.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	method, _ := ctx.Value(methodKey{}).(string)
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	default:
		return false, nil
	}
}

// Idempotent requests are retried up to `retryMax` times on connection
// errors and 5xx responses. Other methods are sent once.
func NewClient(endpoints Endpoints, store session.ReadWriter, retryMax int) *Client {
	l := logger.Logger.WithGroup("api")

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.CheckRetry = checkRetry
	client.Logger = l
	client.HTTPClient.Transport = otelhttp.NewTransport(client.HTTPClient.Transport)
	// hand the last response back instead of a generic giving up error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		client:    client,
		session:   store,
		logger:    l,
		endpoints: endpoints,
	}
}

func decodeFailure(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return statusErr
	}

	var body types.Error
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return statusErr
	}
	if body.Message != nil {
		statusErr.Message = *body.Message
	}
	if body.Fields != nil {
		statusErr.Fields = *body.Fields
	}

	return statusErr
}

func (c *Client) bearer(ctx context.Context, req *retryablehttp.Request) error {
	token, err := c.session.Get(ctx, types.SessionAccessToken)
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotLoggedIn
	}
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// The passthrough handler returns the last response along with the retry
// policy's complaint about it. The response is what callers classify.
func (c *Client) send(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// Decodes a 2xx JSON body into `out` unless it is nil
func (c *Client) do(req *retryablehttp.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func newJSONRequest(ctx context.Context, method, url string, in any) (*retryablehttp.Request, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func (c *Client) postJSON(ctx context.Context, url string, in any, out any) error {
	req, err := newJSONRequest(ctx, http.MethodPost, url, in)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

// Login obtains a token pair and stores it in the session
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Client.Login", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()

	var pair types.TokenPair
	err := c.postJSON(ctx, c.endpoints.Token, types.TokenRequest{Username: username, Password: password}, &pair)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to obtain token")
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	for _, kv := range [][2]string{
		{types.SessionAccessToken, pair.Access},
		{types.SessionRefreshToken, pair.Refresh},
		{types.SessionUsername, username},
	} {
		if err := c.session.Set(ctx, kv[0], kv[1]); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to store session")
			return fmt.Errorf("failed to store session: %w", err)
		}
	}

	c.logger.InfoContext(ctx, "logged in", "username", username)
	span.SetStatus(codes.Ok, "logged in")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token
func (c *Client) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Client.Refresh")
	defer span.End()

	refresh, err := c.session.Get(ctx, types.SessionRefreshToken)
	if errors.Is(err, session.ErrNotFound) {
		err = ErrNotLoggedIn
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no refresh token")
		return err
	}

	var access types.AccessToken
	err = c.postJSON(ctx, c.endpoints.TokenRefresh, types.RefreshRequest{Refresh: refresh}, &access)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to refresh token")
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := c.session.Set(ctx, types.SessionAccessToken, access.Access); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store session")
		return fmt.Errorf("failed to store session: %w", err)
	}

	c.logger.InfoContext(ctx, "refreshed access token")
	span.SetStatus(codes.Ok, "refreshed token")
	return nil
}

// Reports lists the reports previously generated by the logged in operator
func (c *Client) Reports(ctx context.Context) ([]types.ReportSummary, error) {
	ctx, span := tracer.Start(ctx, "Client.Reports")
	defer span.End()

	req, err := newRequest(ctx, http.MethodGet, c.endpoints.Reports, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}
	if err := c.bearer(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no session")
		return nil, err
	}

	var reports []types.ReportSummary
	if err := c.do(req, &reports); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list reports")
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	span.SetAttributes(attribute.Int("reports", len(reports)))
	span.SetStatus(codes.Ok, "listed reports")
	return reports, nil
}

// DeleteReport removes one of the logged in operator's reports
func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Client.DeleteReport", trace.WithAttributes(
		attribute.Int64("report.id", id),
	))
	defer span.End()

	url := strings.TrimSuffix(c.endpoints.DeleteReport, "/") + "/" + strconv.FormatInt(id, 10) + "/"
	req, err := newRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return err
	}
	if err := c.bearer(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no session")
		return err
	}

	if err := c.do(req, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete report")
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}

	c.logger.InfoContext(ctx, "deleted report", "id", id)
	span.SetStatus(codes.Ok, "deleted report")
	return nil
}

// ResetCredentials changes the logged in operator's password. The stored
// tokens stay valid.
func (c *Client) ResetCredentials(ctx context.Context, oldPassword, newPassword string) error {
	ctx, span := tracer.Start(ctx, "Client.ResetCredentials")
	defer span.End()

	req, err := newJSONRequest(ctx, http.MethodPost, c.endpoints.ResetCredentials, types.ResetCredentialsRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return err
	}
	if err := c.bearer(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no session")
		return err
	}

	if err := c.do(req, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reset credentials")
		return fmt.Errorf("failed to reset credentials: %w", err)
	}

	c.logger.InfoContext(ctx, "reset credentials")
	span.SetStatus(codes.Ok, "reset credentials")
	return nil
}

// Fetch downloads a stored document such as a report's content url
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "Client.Fetch", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	req, err := newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}
	if err := c.bearer(ctx, req); err != nil && !errors.Is(err, ErrNotLoggedIn) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read session")
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download file")
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		err = decodeFailure(resp)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid status code")
		return nil, err
	}

	span.SetStatus(codes.Ok, "fetched file by http")
	return resp.Body, nil
}

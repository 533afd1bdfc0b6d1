// Package portal implements the submission workflow: artifact selection,
// parameter collection, the submit state machine and its presentation.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/validation-portal/portal-client/internal/audit"
	"github.com/validation-portal/portal-client/internal/hash"
	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/save"
	"github.com/validation-portal/portal-client/internal/session"
	"github.com/validation-portal/portal-client/internal/types"
)

const name = "github.com/validation-portal/portal-client/internal/portal"

var (
	tracer = otel.Tracer(name)
	meter  = otel.Meter(name)
)

const (
	DefaultFilename = "Validation_Report.pdf"
	SuccessMessage  = "Validation completed successfully!"
)

// Owns the single submission state and is the only thing that changes it
type Controller struct {
	session         session.Store
	saver           save.Saver
	client          *http.Client
	selector        *Selector
	params          *Parameters
	logger          *slog.Logger
	operator        *string
	submissions     metric.Int64Counter
	uploadBytes     metric.Int64Histogram
	endpoint        string
	defaultFilename string
	observers       []Observer
	state           State
	generation      uint64
	inFlight        atomic.Bool
	mu              sync.RWMutex
}

type Option func(*Controller)

// Defaults to an otelhttp instrumented client without timeout
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// Store the bearer credential is read from
func WithSession(store session.Store) Option {
	return func(c *Controller) {
		c.session = store
	}
}

func WithSaver(saver save.Saver) Option {
	return func(c *Controller) {
		c.saver = saver
	}
}

func WithDefaultFilename(filename string) Option {
	return func(c *Controller) {
		c.defaultFilename = filename
	}
}

// Observers see every state in order, including each progress step
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

func WithOperator(operator string) Option {
	return func(c *Controller) {
		c.operator = &operator
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func NewController(endpoint string, selector *Selector, params *Parameters, opts ...Option) *Controller {
	c := &Controller{
		client:          &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		selector:        selector,
		params:          params,
		logger:          logger.Logger.WithGroup("portal"),
		endpoint:        endpoint,
		defaultFilename: DefaultFilename,
	}

	for _, opt := range opts {
		opt(c)
	}

	var err error
	c.submissions, err = meter.Int64Counter(
		"portal.submissions",
		metric.WithDescription("Submissions by outcome"),
	)
	if err != nil {
		c.logger.Warn("failed to create submissions counter", "error", err)
	}
	c.uploadBytes, err = meter.Int64Histogram(
		"portal.upload.bytes",
		metric.WithDescription("Size of submitted multipart payloads"),
		metric.WithUnit("By"),
	)
	if err != nil {
		c.logger.Warn("failed to create upload size histogram", "error", err)
	}

	return c
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Selector() *Selector {
	return c.selector
}

func (c *Controller) Parameters() *Parameters {
	return c.params
}

func (c *Controller) View() View {
	return Present(c.State(), c.selector.Err(), c.selector.Ready())
}

// Publishes under the lock so observers see states in the order they were set
func (c *Controller) transition(n *notifier, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
	n.publish(s)
}

// Enters Uploading at zero and returns the generation that progress
// reports of this submission must carry
func (c *Controller) begin(n *notifier) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = State{Phase: PhaseUploading, Progress: 0}
	n.publish(c.state)
	return c.generation
}

// The transport may still pull body bytes after a response arrived, even
// after a later submission began. Progress only lands on the submission it
// belongs to, while uploading, and never goes backwards.
func (c *Controller) progress(n *notifier, gen uint64, pct int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state.Phase != PhaseUploading || pct <= c.state.Progress {
		return
	}
	c.state = State{Phase: PhaseUploading, Progress: pct}
	n.publish(c.state)
}

func (c *Controller) record(ctx context.Context, outcome string) {
	if c.submissions != nil {
		c.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (c *Controller) fail(ctx context.Context, n *notifier, err error) (State, error) {
	s := State{Phase: PhaseFailed, Progress: c.State().Progress, Err: err}
	c.transition(n, s)

	kind := Kind(err)
	c.record(ctx, kind)
	c.logger.WarnContext(ctx, "submission failed", "kind", kind, "error", err)

	var (
		statusCode *int
		service    *ServiceError
		transport  *TransportError
	)
	switch {
	case errors.As(err, &service):
		statusCode = &service.StatusCode
	case errors.As(err, &transport) && transport.StatusCode != 0:
		statusCode = &transport.StatusCode
	}
	audit.LogSubmissionFailed(audit.FromContext(ctx), kind, err.Error(), statusCode)

	return s, err
}

// Runs one submission to a terminal state. A call made while another is in
// flight returns ErrSubmitInFlight and changes nothing. Failures are
// reported both in the returned State and as the error.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.State(), ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	n := newNotifier(c.observers)
	defer n.close()

	requestID := uuid.NewString()
	ctx = audit.WithContext(ctx, audit.Context{Operator: c.operator, RequestID: requestID})
	ctx, span := tracer.Start(ctx, "Controller.Submit", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("endpoint", c.endpoint),
	))
	defer span.End()

	c.selector.clearErr()

	sbom, dataPrep := c.selector.both()
	if sbom == nil || dataPrep == nil {
		span.RecordError(ErrMissingArtifact)
		span.SetStatus(codes.Error, "missing artifact")
		return c.fail(ctx, n, ErrMissingArtifact)
	}

	params := c.params.Values()

	loadedSBOM, loadedDataPrep, err := loadBoth(ctx, sbom, dataPrep)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read artifacts")
		return c.fail(ctx, n, &TransportError{Err: err})
	}

	p, err := buildPayload(loadedSBOM, loadedDataPrep, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build payload")
		return c.fail(ctx, n, &TransportError{Err: fmt.Errorf("failed to build request: %w", err)})
	}

	gen := c.begin(n)

	c.logger.InfoContext(ctx, "submitting artifacts",
		"request_id", requestID,
		"sbom", sbom.Name,
		"data_prep", dataPrep.Name,
		"bytes", len(p.body),
	)
	audit.LogSubmissionStarted(
		audit.FromContext(ctx),
		c.endpoint,
		loadedSBOM.audit(),
		loadedDataPrep.audit(),
		params.PlantReference,
		params.ProductionAreaReference,
		params.SingleFileAssembly,
	)
	if c.uploadBytes != nil {
		c.uploadBytes.Record(ctx, int64(len(p.body)))
	}

	report, err := c.send(ctx, n, gen, p, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return c.fail(ctx, n, err)
	}

	// the whole body was on the wire before the response
	c.progress(n, gen, 100)

	s := State{Phase: PhaseSucceeded, Progress: 100, Report: report, Message: SuccessMessage}
	c.transition(n, s)

	c.record(ctx, "succeeded")
	c.logger.InfoContext(ctx, "validation completed", "filename", report.Filename, "bytes", len(report.Data))
	audit.LogSubmissionSucceeded(audit.FromContext(ctx), report.Filename, hash.Buffer(report.Data), len(report.Data))

	c.deliver(ctx, report)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "validation completed")
	return s, nil
}

func (c *Controller) authorize(ctx context.Context, req *http.Request) error {
	if c.session == nil {
		return nil
	}

	token, err := c.session.Get(ctx, types.SessionAccessToken)
	if errors.Is(err, session.ErrNotFound) {
		c.logger.WarnContext(ctx, "no session token, submitting without credentials")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Single attempt, no retries
func (c *Controller) send(ctx context.Context, n *notifier, gen uint64, p *payload, requestID string) (*Report, error) {
	total := int64(len(p.body))
	body := &progressReader{
		r:     bytes.NewReader(p.body),
		total: total,
		report: func(pct int) {
			c.progress(n, gen, pct)
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.ContentLength = total
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(p.body)), nil
	}
	req.Header.Set("Content-Type", p.contentType)
	req.Header.Set("Accept", "application/pdf, application/json")
	req.Header.Set("X-Request-Id", requestID)

	if err := c.authorize(ctx, req); err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyFailure(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read report: %w", err), StatusCode: resp.StatusCode}
	}

	return &Report{
		Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition"), c.defaultFilename),
		Data:     data,
	}, nil
}

func (c *Controller) deliver(ctx context.Context, report *Report) {
	if c.saver == nil {
		return
	}
	c.saver.Save(ctx, report.Filename, report.Data)
}

// Saves the held report again without contacting the service
func (c *Controller) Download(ctx context.Context) error {
	s := c.State()
	if s.Phase != PhaseSucceeded || s.Report == nil {
		return ErrNoReport
	}

	ctx, span := tracer.Start(ctx, "Controller.Download", trace.WithAttributes(
		attribute.String("filename", s.Report.Filename),
	))
	defer span.End()

	c.deliver(ctx, s.Report)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "report delivered")
	return nil
}

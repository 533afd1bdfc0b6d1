package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/types"
)

type Context struct {
	Operator  *string
	RequestID string
}

type contextKey struct{}

func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) Context {
	c, _ := ctx.Value(contextKey{}).(Context)
	return c
}

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// Events are written as one JSON document per line. io.Discard disables auditing.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

func newMessage(c Context, evt EventType, disp Disposition) Message {
	return Message{
		Operator:      c.Operator,
		RequestID:     c.RequestID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		Disposition:   disp,
		Type:          evt,
		Timestamp:     types.Now(),
	}
}

func write(evt EventType, event any) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize audit event", "type", evt, "error", err)
		return
	}

	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(evtStr))
}

func LogSubmissionStarted(
	c Context,
	endpoint string,
	sbom Artifact,
	dataPrep Artifact,
	plantReference string,
	productionAreaReference string,
	singleFileAssembly types.AssemblyFlag,
) {
	event := SubmissionStarted{}
	event.Message = newMessage(c, EvtSubmissionStarted, DispositionNeutral)

	event.Event.Endpoint = endpoint
	event.Event.SBOM = sbom
	event.Event.DataPrep = dataPrep
	event.Event.PlantReference = plantReference
	event.Event.ProductionAreaReference = productionAreaReference
	event.Event.SingleFileAssembly = singleFileAssembly

	write(EvtSubmissionStarted, event)
}

func LogSubmissionSucceeded(c Context, filename string, reportSHA256 string, reportSize int) {
	event := SubmissionSucceeded{}
	event.Message = newMessage(c, EvtSubmissionSucceeded, DispositionGood)

	event.Event.Filename = filename
	event.Event.ReportSHA256 = reportSHA256
	event.Event.ReportSize = reportSize

	write(EvtSubmissionSucceeded, event)
}

// `statusCode` is nil when the request never got a response
func LogSubmissionFailed(c Context, kind string, message string, statusCode *int) {
	event := SubmissionFailed{}
	event.Message = newMessage(c, EvtSubmissionFailed, DispositionBad)

	event.Event.Kind = kind
	event.Event.Message = message
	event.Event.StatusCode = statusCode

	write(EvtSubmissionFailed, event)
}

func LogReportSaved(c Context, path string, reportSHA256 string) {
	event := ReportSaved{}
	event.Message = newMessage(c, EvtReportSaved, DispositionNeutral)

	event.Event.Path = path
	event.Event.ReportSHA256 = reportSHA256

	write(EvtReportSaved, event)
}

func LogReportArchived(c Context, store string, key string) {
	event := ReportArchived{}
	event.Message = newMessage(c, EvtReportArchived, DispositionNeutral)

	event.Event.Store = store
	event.Event.Key = key

	write(EvtReportArchived, event)
}

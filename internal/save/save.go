// Package save delivers generated reports to the operator.
package save

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/validation-portal/portal-client/internal/save")

//go:generate mockgen -destination ./mock/mock.go -package mock . Saver

// Fire-and-forget delivery of a report. Implementations log their own failures.
type Saver interface {
	Save(ctx context.Context, filename string, report []byte)
}

// Fans a report out to every saver in order
type Multi []Saver

func (m Multi) Save(ctx context.Context, filename string, report []byte) {
	for _, s := range m {
		s.Save(ctx, filename, report)
	}
}

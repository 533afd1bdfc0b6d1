// Package session holds the process-wide key-value store the bearer
// credential is read from.
package session

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/validation-portal/portal-client/internal/session")

var ErrNotFound = errors.New("session key not found")

//go:generate mockgen -destination ./mock/mock.go -package mock . Store

// Read side of the session. Returns ErrNotFound for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Used by login flows only
type ReadWriter interface {
	Store
	Set(ctx context.Context, key, value string) error
}

package cmds

import (
	"errors"

	clierrors "github.com/validation-portal/portal-client/internal/cli_errors"
	"github.com/validation-portal/portal-client/internal/portal"
	"github.com/validation-portal/portal-client/internal/types"
)

func usageError(err error) error {
	return clierrors.ExitErrorWrap(types.ExitUsage, err)
}

// Exit code for a failed submission
func submitError(err error) error {
	var (
		unsupported *portal.UnsupportedArtifactError
		service     *portal.ServiceError
	)

	switch {
	case errors.Is(err, portal.ErrMissingArtifact), errors.As(err, &unsupported):
		return clierrors.ExitErrorWrap(types.ExitUsage, err)
	case errors.As(err, &service):
		return clierrors.ExitErrorWrap(types.ExitValidationFailed, err)
	default:
		return clierrors.ExitErrorWrap(types.ExitErrored, err)
	}
}

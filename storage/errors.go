package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"taskflow-api/domain"
)

// wrapErr maps backend failures into the domain error kinds. The table
// service's error codes are otherwise opaque to callers: a 404 is absence,
// the retryable status family and deadline expiry are transient, everything
// else keeps the backend message for diagnostics.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case 408, 429, 500, 502, 503, 504:
			return &domain.TransientError{Err: fmt.Errorf("%s: %w", op, err)}
		case 409:
			// Duplicate insert; surface as a plain gateway failure with the
			// backend message kept.
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransientError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	return &domain.GatewayError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

package shared

import (
	"fmt"

	"github.com/stockmaster/stockmaster/internal/platform/httpx"
)

// Sentinels shared by the masterdata services. The base set comes from
// httpx so handlers can hand status mapping to httpx.RespondError; the
// field-level ones wrap ErrValidation and inherit its 400 mapping.
var (
	ErrNotFound      = httpx.ErrNotFound
	ErrDuplicate     = httpx.ErrDuplicate
	ErrValidation    = httpx.ErrValidation
	ErrInvalidID     = fmt.Errorf("%w: invalid id", httpx.ErrValidation)
	ErrRequiredField = fmt.Errorf("%w: required field", httpx.ErrValidation)
	// ErrInUse indicates the row is referenced by stock movements and cannot
	// be deleted.
	ErrInUse = httpx.ErrInUse
)

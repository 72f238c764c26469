package cart

import "errors"

var (
	// ErrSyncInProgress means another authoritative call is outstanding;
	// the request was dropped, not queued.
	ErrSyncInProgress = errors.New("cart sync already in progress")

	// ErrUnknownLine is returned for a product id that is not registered.
	ErrUnknownLine = errors.New("unknown cart line")

	// ErrDuplicateLine is returned when a product id is bound twice.
	ErrDuplicateLine = errors.New("cart line already registered")

	// ErrInvalidBinding is returned for a binding without id or view.
	ErrInvalidBinding = errors.New("cart line binding needs a product id and a view")
)

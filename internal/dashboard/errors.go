package dashboard

import "errors"

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrEmptySelection = errors.New("empty selection")
	ErrJobInProgress  = errors.New("job already processing")
	ErrStaleJob       = errors.New("stale job result")
)

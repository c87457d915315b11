//go:build !cgo

package hal

import (
	"context"
	"errors"
)

// WindowConfig sizes the desktop window.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	TPS    int
}

func RunWindow(_ context.Context, _ WindowConfig, _ func(HAL) (App, error)) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}

// Package cmd provides common initialization for the service binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/zapline/zapline/pkg/actions/httprequest"
	logaction "github.com/zapline/zapline/pkg/actions/log"
	"github.com/zapline/zapline/pkg/registry"
)

// NewRegistry builds the action registry with the native action types.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg)

	return reg
}

func registerNativeActions(reg *registry.Registry) {
	err := reg.RegisterAction(httprequest.NewActionFactory())
	if err != nil {
		panic(fmt.Errorf("failed to register http_request action: %w", err))
	}

	err = reg.RegisterAction(logaction.NewActionFactory())
	if err != nil {
		panic(fmt.Errorf("failed to register log action: %w", err))
	}
}

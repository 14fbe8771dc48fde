// Package registry maps action type tags to their factories. The registry
// is assembled explicitly at process startup; there is no import-time
// registration.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/zapline/zapline/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) error {
	id := factory.ID()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("action type %q already registered", id)
	}

	r.factories[id] = factory

	return nil
}

// ActionTypes returns the registered action type tags.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.factories))
	for id := range r.factories {
		types = append(types, id)
	}

	return types
}

// CreateAction validates config against the factory's schema and builds
// the action.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	err := validateSchema(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for action type %q: %w", actionType, err)
	}

	return factory.Create(config)
}

func validateSchema(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}

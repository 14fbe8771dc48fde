package pollers

import (
	"context"
	"fmt"
	"log/slog"
)

// Orchestrator holds the registered pollers and fans a poll cycle out over
// them. It is built explicitly at process startup; there is no implicit
// registration.
type Orchestrator struct {
	logger  *slog.Logger
	pollers map[string]Poller
	order   []string
}

func NewOrchestrator(logger *slog.Logger, pollers ...Poller) (*Orchestrator, error) {
	orchestrator := &Orchestrator{
		logger:  logger.With("module", "poller_orchestrator"),
		pollers: make(map[string]Poller),
	}

	for _, poller := range pollers {
		err := orchestrator.Register(poller)
		if err != nil {
			return nil, err
		}
	}

	return orchestrator, nil
}

func (o *Orchestrator) Register(poller Poller) error {
	name := poller.Name()
	if _, exists := o.pollers[name]; exists {
		return fmt.Errorf("poller %q already registered", name)
	}

	o.pollers[name] = poller
	o.order = append(o.order, name)

	return nil
}

// Names returns the registered poller names in registration order.
func (o *Orchestrator) Names() []string {
	names := make([]string, len(o.order))
	copy(names, o.order)

	return names
}

// PollAll invokes every registered poller. One poller's panic is contained
// and counted; the remaining pollers still run.
func (o *Orchestrator) PollAll(ctx context.Context) map[string]Result {
	results := make(map[string]Result, len(o.order))

	for _, name := range o.order {
		results[name] = o.invoke(ctx, o.pollers[name])
	}

	return results
}

// PollOne invokes a single poller by name for ad-hoc use.
func (o *Orchestrator) PollOne(ctx context.Context, name string) (Result, bool) {
	poller, exists := o.pollers[name]
	if !exists {
		return Result{}, false
	}

	return o.invoke(ctx, poller), true
}

func (o *Orchestrator) invoke(ctx context.Context, poller Poller) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			o.logger.ErrorContext(ctx, "Poller panicked",
				"poller", poller.Name(), "panic", recovered)

			result.Errors++
		}
	}()

	result = poller.Poll(ctx)

	o.logger.InfoContext(ctx, "Poll cycle completed",
		"poller", poller.Name(),
		"processed", result.Processed,
		"errors", result.Errors,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result
}

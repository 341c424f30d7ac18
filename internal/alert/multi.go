package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/observability"
)

// Sink is a named emitter.
type Sink struct {
	Name    string
	Emitter Emitter
}

// Multi fans a cycle out to every sink. A failing sink does not stop the
// others; their errors are joined.
type Multi struct {
	sinks     []Sink
	emitEmpty bool
	logger    zerolog.Logger
}

// MultiOptions configures a Multi.
type MultiOptions struct {
	// EmitEmpty delivers cycles without alerts too.
	EmitEmpty bool
	Logger    *zerolog.Logger
}

// NewMulti creates a fan-out emitter.
func NewMulti(opts MultiOptions, sinks ...Sink) *Multi {
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Multi{
		sinks:     sinks,
		emitEmpty: opts.EmitEmpty,
		logger:    l.With().Str("component", "alert").Logger(),
	}
}

// Sinks returns the sink names in delivery order.
func (m *Multi) Sinks() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name)
	}
	return names
}

// Emit delivers cycle to every sink in order.
func (m *Multi) Emit(ctx context.Context, cycle Cycle) error {
	if len(cycle.Alerts) == 0 && !m.emitEmpty {
		return nil
	}

	var errs []error
	for _, s := range m.sinks {
		err := s.Emitter.Emit(ctx, cycle)
		observability.RecordEmit(s.Name, len(cycle.Alerts), err)
		if err != nil {
			m.logger.Error().Err(err).
				Str("sink", s.Name).
				Int64("cycle", cycle.ID).
				Int("alerts", len(cycle.Alerts)).
				Msg("alert sink failed")
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ Emitter = (*Multi)(nil)

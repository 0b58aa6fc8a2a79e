package publisher

import (
	"context"
	"errors"

	"saasgate/backend/internal/activity/domain"
)

type multi []Publisher

// Multi returns a Publisher writing to every non-nil pub in order. Callers
// must pass untyped nil for disabled sinks. Returns nil when none remain.
func Multi(pubs ...Publisher) Publisher {
	var m multi
	for _, p := range pubs {
		if p != nil {
			m = append(m, p)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

// Publish tries every sink and joins their errors.
func (m multi) Publish(ctx context.Context, e *domain.Entry) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package events

import "context"

// MultiDispatcher fans one event out to several dispatchers. The first
// failure is returned but later dispatchers still run.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, event Event) error {
	var firstErr error
	for _, d := range m {
		if err := d.Dispatch(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

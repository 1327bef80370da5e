package observability

import "context"

// MultiObserver fans out events to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// Multi combines observers into one. Nil and no-op observers are dropped and
// nested MultiObservers are flattened. No remaining observer yields
// NoOpObserver; exactly one is returned as is.
func Multi(observers ...Observer) Observer {
	var flat []Observer
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case *MultiObserver:
			flat = append(flat, o.observers...)
		default:
			flat = append(flat, o)
		}
	}

	switch len(flat) {
	case 0:
		return NoOpObserver{}
	case 1:
		return flat[0]
	default:
		return &MultiObserver{observers: flat}
	}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

package chat

type listOptions struct {
	hydrate bool
}

// ListOption tunes the list operations.
type ListOption func(*listOptions)

// WithoutMessages skips message hydration; sessions come back with a nil
// Messages slice. Use LoadMessages to fetch them later.
func WithoutMessages() ListOption {
	return func(o *listOptions) {
		o.hydrate = false
	}
}

// WithMessages sets hydration explicitly.
func WithMessages(hydrate bool) ListOption {
	return func(o *listOptions) {
		o.hydrate = hydrate
	}
}

func buildListOptions(opts []ListOption) listOptions {
	o := listOptions{hydrate: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

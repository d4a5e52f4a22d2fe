package repository

import "context"

// Open picks the backend once at startup: an empty dsn selects the in-memory
// store, anything else is treated as a postgres connection string.
func Open(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(ctx, opts...), nil
	}
	s, err := NewPostgresStore(ctx, dsn, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

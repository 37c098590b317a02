package repository

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithMaxHistory caps the number of game records kept in memory. The oldest
// records are dropped first; their ids stay known so they are not applied
// twice. n <= 0 keeps every record.
func WithMaxHistory(n int) Option {
	return func(r *Registry) {
		r.maxHistory = n
	}
}

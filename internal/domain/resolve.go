package domain

// Source tells where a resolved value came from.
type Source int

const (
	SourceFallback Source = iota
	SourceComputed
	SourceOverride
)

// Resolve applies the source-of-truth rule shared by every derived metric:
// an authoritative override wins, then the locally computed value, then the
// fallback. A nil pointer means the value is not available.
func Resolve[T any](override, computed *T, fallback T) (T, Source) {
	if override != nil {
		return *override, SourceOverride
	}
	if computed != nil {
		return *computed, SourceComputed
	}
	return fallback, SourceFallback
}

// OptString turns an empty string into nil so string overrides can go
// through Resolve.
func OptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

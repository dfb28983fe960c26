package utils

func Ptr[T any](v T) *T {
	return &v
}

// OrDefault dereferences v, falling back to def when v is nil.
func OrDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

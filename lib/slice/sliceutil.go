package sliceutil

func Map[From any, To any](v []From, f func(From) To) []To {
	out := make([]To, len(v))
	for idx := 0; idx < len(v); idx++ {
		out[idx] = f(v[idx])
	}
	return out
}

// Set returns the distinct elements of v as a set.
// A nil or empty slice yields nil.
func Set[T comparable](v []T) map[T]struct{} {
	if len(v) == 0 {
		return nil
	}

	out := make(map[T]struct{}, len(v))
	for _, e := range v {
		out[e] = struct{}{}
	}
	return out
}

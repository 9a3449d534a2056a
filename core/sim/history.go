package sim

// prepend returns a new buffer with v at index 0, truncated to limit entries.
// The input slice is never modified so published snapshots stay intact.
func prepend[T any](hist []T, v T, limit int) []T {
	n := len(hist) + 1
	if n > limit {
		n = limit
	}
	out := make([]T, n)
	out[0] = v
	copy(out[1:], hist)
	return out
}

// appendBounded appends v and keeps only the newest limit entries.
func appendBounded[T any](log []T, v T, limit int) []T {
	out := make([]T, 0, len(log)+1)
	out = append(out, log...)
	out = append(out, v)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// latest returns up to n entries from the head of a most-recent-first buffer.
func latest[T any](hist []T, n int) []T {
	if len(hist) < n {
		n = len(hist)
	}
	return append([]T(nil), hist[:n]...)
}

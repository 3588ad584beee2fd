package dataset

// Default page sizes for the two dashboard views.
const (
	CardPageSize  = 15
	TablePageSize = 10
)

// Paginate returns the zero-indexed page of the given size. Out-of-range
// pages clamp to the nearest valid page instead of failing; a non-positive
// size yields the whole dataset.
func Paginate[T any](ds []T, page, size int) []T {
	if size <= 0 {
		return ds
	}
	if len(ds) == 0 {
		return ds[:0]
	}

	last := (len(ds) - 1) / size
	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}

	start := page * size
	end := start + size
	if end > len(ds) {
		end = len(ds)
	}
	return ds[start:end]
}

// PageCount reports how many pages the dataset spans at the given size.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

package repository

// DefaultInsertChunkSize bounds the rows sent in one multi-row INSERT.
const DefaultInsertChunkSize = 100

// chunks splits n items into [start, end) windows of at most size.
func chunks(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultInsertChunkSize
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

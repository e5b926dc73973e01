package coordinator

// Partition splits files into the per-call file lists sent to workers.
//
// With batchSize > 0 the corpus is cut into consecutive chunks of batchSize
// files (the last one may be shorter), independent of workerCount. Otherwise
// exactly workerCount partitions are built round robin: the file at index i
// goes to partition i % workerCount, so sizes differ by at most one. When the
// corpus is smaller than workerCount some partitions are empty; callers skip
// them. An empty corpus yields no partitions.
//
// Example:
//
//	Partition([]string{"a", "b", "c", "d", "e"}, 2, 0) // [[a c e] [b d]]
//	Partition([]string{"a", "b", "c", "d", "e"}, 2, 2) // [[a b] [c d] [e]]
func Partition(files []string, workerCount, batchSize int) [][]string {
	if len(files) == 0 {
		return nil
	}

	if batchSize > 0 {
		parts := make([][]string, 0, (len(files)+batchSize-1)/batchSize)
		for start := 0; start < len(files); start += batchSize {
			end := min(start+batchSize, len(files))
			parts = append(parts, append([]string(nil), files[start:end]...))
		}
		return parts
	}

	if workerCount < 1 {
		workerCount = 1
	}
	parts := make([][]string, workerCount)
	for i, f := range files {
		parts[i%workerCount] = append(parts[i%workerCount], f)
	}
	return parts
}

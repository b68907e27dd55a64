package store

import "fmt"

// MaxSimScore computes the late-interaction similarity between a multi-vector
// query and a multi-vector page: for every query vector, the maximum dot
// product against any page vector, summed over all query vectors. This is the
// standard scoring for patch-level retrieval models; pooling either side
// first would discard the fine-grained visual structure the score relies on.
func MaxSimScore(query, page [][]float32) (float64, error) {
	if len(query) == 0 || len(page) == 0 {
		return 0, fmt.Errorf("store: max-sim on empty multi-vector")
	}
	dim := len(query[0])

	var total float64
	for i, q := range query {
		if len(q) != dim {
			return 0, fmt.Errorf("store: query vector %d has dim %d, want %d", i, len(q), dim)
		}
		best := 0.0
		first := true
		for j, p := range page {
			if len(p) != dim {
				return 0, fmt.Errorf("store: page vector %d has dim %d, want %d", j, len(p), dim)
			}
			d := dot(q, p)
			if first || d > best {
				best = d
				first = false
			}
		}
		total += best
	}
	return total, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

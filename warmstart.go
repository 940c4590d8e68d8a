package cremid

import (
	"log/slog"

	"github.com/mpraski/clusters"
)

//WarmStartLabels will seed the label vector by a k-means pass over the data
//when the caller supplies no starting state. Any clustering failure falls
//back to round-robin labels with a logged warning; a warm start only has to
//be a reasonable starting point, not a correct one.
func WarmStartLabels(d *DataSet, k int, logger *slog.Logger) []int {
	labels := make([]int, d.N)
	if k > d.N {
		k = d.N
	}
	rows := make([][]float64, d.N)
	for i := 0; i < d.N; i++ {
		rows[i] = d.Row(i)
	}
	km, err := clusters.KMeans(100, k, clusters.EuclideanDistance)
	if err == nil {
		err = km.Learn(rows)
	}
	if err != nil {
		if logger != nil {
			logger.Warn("k-means warm start failed, using round-robin labels", "err", err)
		}
		for i := range labels {
			labels[i] = i % k
		}
		return labels
	}
	// guesses are 1-based cluster indices
	for i, g := range km.Guesses() {
		labels[i] = (g - 1) % k
		if labels[i] < 0 {
			labels[i] = 0
		}
	}
	return labels
}

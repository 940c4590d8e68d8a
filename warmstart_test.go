package cremid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWarmStartLabels_InRange(t *testing.T) {
	d := genGaussianData(167, 2, []int{40, 40}, [][]float64{{0, 0}, {5, 5}})
	labels := WarmStartLabels(d, 4, nil)
	require.Len(t, labels, 80)
	for _, z := range labels {
		require.GreaterOrEqual(t, z, 0)
		require.Less(t, z, 4)
	}
}

func TestWarmStartLabels_MoreClustersThanObservations(t *testing.T) {
	d := genGaussianData(173, 2, []int{5}, [][]float64{{0, 0}})
	labels := WarmStartLabels(d, 10, nil)
	require.Len(t, labels, 5)
	for _, z := range labels {
		require.GreaterOrEqual(t, z, 0)
		require.Less(t, z, 5)
	}
}

func TestWarmStartLabels_SeparatedDataSplits(t *testing.T) {
	d := genGaussianData(179, 2, []int{30, 30}, [][]float64{{0, 0}, {20, 20}})
	labels := WarmStartLabels(d, 2, nil)
	// far-separated blobs should not land in one cluster
	require.NotEqual(t, labels[0], labels[59])
}

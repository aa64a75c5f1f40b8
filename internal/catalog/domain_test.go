package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStockClassification(t *testing.T) {
	products := []Product{
		{ID: "p1", Stock: 0, MinStock: 5},
		{ID: "p2", Stock: 2, MinStock: 5},
		{ID: "p3", Stock: 20, MinStock: 5},
	}

	var outOfStock, lowStock int
	for _, p := range products {
		if p.OutOfStock() {
			outOfStock++
		}
		if p.LowStock() {
			lowStock++
		}
	}

	require.Equal(t, 1, outOfStock)
	require.Equal(t, 1, lowStock)
	require.Len(t, products, 3)
}

func TestLowStockBoundary(t *testing.T) {
	require.True(t, Product{Stock: 5, MinStock: 5}.LowStock())
	require.False(t, Product{Stock: 6, MinStock: 5}.LowStock())
	require.False(t, Product{Stock: 0, MinStock: 5}.LowStock())
	require.False(t, Product{Stock: 3, MinStock: 0}.LowStock())

	require.True(t, Product{Stock: 0}.OutOfStock())
	require.False(t, Product{Stock: 1}.OutOfStock())
}

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Image string
}

func TestBatch_FillsAtLimit(t *testing.T) {
	b := NewBatch[row](3)
	assert.Empty(t, b.Take())

	assert.False(t, b.Add(row{"DJI_0001.JPG"}))
	assert.False(t, b.Add(row{"DJI_0002.JPG"}))
	assert.True(t, b.Add(row{"DJI_0003.JPG"}))
	assert.Equal(t, 3, b.Len())

	rows := b.Take()
	require.Len(t, rows, 3)
	assert.Equal(t, "DJI_0001.JPG", rows[0].Image)
	assert.Equal(t, 0, b.Len())

	// the taken slice is not overwritten by later adds
	b.Add(row{"DJI_0004.JPG"})
	assert.Equal(t, "DJI_0001.JPG", rows[0].Image)
}

func TestBatch_Unlimited(t *testing.T) {
	b := NewBatch[int](0)
	for i := range 1000 {
		assert.False(t, b.Add(i))
	}
	assert.Len(t, b.Take(), 1000)
}

func TestBatch_ConcurrentAdd(t *testing.T) {
	b := NewBatch[int](0)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				b.Add(i*100 + j)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, b.Take(), 1000)
}

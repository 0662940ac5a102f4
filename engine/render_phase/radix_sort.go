package render_phase

// insertionSortThreshold is the collection size below which the radix passes cost more
// than a stable insertion sort over the precomputed keys.
const insertionSortThreshold = 32

const (
	radixBits    = 8
	radixBuckets = 1 << radixBits
	radixPasses  = 32 / radixBits
)

// RadixSortByKey sorts items in place, ascending by the SortKey of the distance returned by key.
// It is a least-significant-digit radix sort over SortKey.Bits: four stable counting passes of
// eight bits each, so the sort is stable and linear in len(items). Passes in which every key
// shares the same digit are skipped. Small inputs fall back to an insertion sort.
//
// key is evaluated exactly once per item.
//
// Parameters:
//   - items: the items to sort
//   - key: extracts the distance an item is ordered by
func RadixSortByKey[T any](items []T, key func(T) float32) {
	n := len(items)
	if n < 2 {
		return
	}

	keys := make([]uint32, n)
	for i := range items {
		keys[i] = orderedBits(key(items[i]))
	}

	if n < insertionSortThreshold {
		insertionSort(items, keys)
		return
	}

	// One scan builds the histograms of all passes.
	var counts [radixPasses][radixBuckets]int
	for _, k := range keys {
		for pass := range radixPasses {
			counts[pass][(k>>(pass*radixBits))&(radixBuckets-1)]++
		}
	}

	srcItems, dstItems := items, make([]T, n)
	srcKeys, dstKeys := keys, make([]uint32, n)

	for pass := range radixPasses {
		shift := uint(pass * radixBits)
		c := &counts[pass]
		if c[(srcKeys[0]>>shift)&(radixBuckets-1)] == n {
			continue
		}

		offset := 0
		for d := range c {
			count := c[d]
			c[d] = offset
			offset += count
		}

		for i, k := range srcKeys {
			d := (k >> shift) & (radixBuckets - 1)
			dst := c[d]
			c[d]++
			dstItems[dst] = srcItems[i]
			dstKeys[dst] = k
		}

		srcItems, dstItems = dstItems, srcItems
		srcKeys, dstKeys = dstKeys, srcKeys
	}

	if &srcItems[0] != &items[0] {
		copy(items, srcItems)
	}
}

// insertionSort stably sorts items by their precomputed keys.
func insertionSort[T any](items []T, keys []uint32) {
	for i := 1; i < len(items); i++ {
		k, item := keys[i], items[i]
		j := i
		for j > 0 && keys[j-1] > k {
			keys[j] = keys[j-1]
			items[j] = items[j-1]
			j--
		}
		keys[j] = k
		items[j] = item
	}
}

package genetic

import (
	"fmt"
	"strings"
)

// SortAlgorithm selects how citizens are ranked each generation. All three
// order by fitness and break ties by citizen index, so they agree exactly.
type SortAlgorithm int

const (
	MergeSort SortAlgorithm = iota
	SelectionSort
	QuickSort
	numSortAlgorithms
)

var sortNames = [numSortAlgorithms]string{"merge", "selection", "quick"}

func (a SortAlgorithm) String() string {
	if a < 0 || a >= numSortAlgorithms {
		return fmt.Sprintf("SortAlgorithm(%d)", int(a))
	}
	return sortNames[a]
}

func ParseSortAlgorithm(name string) (SortAlgorithm, error) {
	for i, n := range sortNames {
		if strings.EqualFold(n, name) || strings.EqualFold(n+"sort", name) {
			return SortAlgorithm(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sort algorithm %q", name)
}

// Ranked pairs a citizen index with its fitness.
type Ranked struct {
	Index   int
	Fitness float64
}

func less(a, b Ranked) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness < b.Fitness
	}
	return a.Index < b.Index
}

// Sort orders items in place, best first.
func Sort(alg SortAlgorithm, items []Ranked) {
	switch alg {
	case SelectionSort:
		selectionSort(items)
	case QuickSort:
		quickSort(items, 0, len(items)-1)
	default:
		mergeSort(items, make([]Ranked, len(items)))
	}
}

func selectionSort(items []Ranked) {
	for i := range items {
		best := i
		for j := i + 1; j < len(items); j++ {
			if less(items[j], items[best]) {
				best = j
			}
		}
		items[i], items[best] = items[best], items[i]
	}
}

func mergeSort(items, scratch []Ranked) {
	if len(items) < 2 {
		return
	}
	mid := len(items) / 2
	mergeSort(items[:mid], scratch[:mid])
	mergeSort(items[mid:], scratch[mid:])

	copy(scratch, items)
	i, j, k := 0, mid, 0
	for i < mid && j < len(items) {
		if less(scratch[j], scratch[i]) {
			items[k] = scratch[j]
			j++
		} else {
			items[k] = scratch[i]
			i++
		}
		k++
	}
	for ; i < mid; i++ {
		items[k] = scratch[i]
		k++
	}
	for ; j < len(items); j++ {
		items[k] = scratch[j]
		k++
	}
}

// quickSort uses the middle element as pivot with Hoare partitioning.
func quickSort(items []Ranked, lo, hi int) {
	for lo < hi {
		pivot := items[lo+(hi-lo)/2]
		i, j := lo, hi
		for i <= j {
			for less(items[i], pivot) {
				i++
			}
			for less(pivot, items[j]) {
				j--
			}
			if i <= j {
				items[i], items[j] = items[j], items[i]
				i++
				j--
			}
		}
		// recurse into the smaller side
		if j-lo < hi-i {
			quickSort(items, lo, j)
			lo = i
		} else {
			quickSort(items, i, hi)
			hi = j
		}
	}
}

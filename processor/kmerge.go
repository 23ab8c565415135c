package processor

import (
	"container/heap"
	"sort"

	"fundingflow/internal/model"
)

// venueCursor walks one venue's sorted snapshot list during the merge.
type venueCursor struct {
	items []model.FundingSnapshot
	idx   int
}

func (c *venueCursor) head() model.FundingSnapshot { return c.items[c.idx] }
func (c *venueCursor) done() bool                  { return c.idx >= len(c.items) }

type mergeHeap []*venueCursor

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	return h[i].head().CurrencyName < h[j].head().CurrencyName
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*venueCursor)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// mergeByCurrency sorts each venue's snapshots by currency name and merges
// the sorted lists into one globally sorted sequence. Grouping downstream
// depends on the exact byte order produced here; a case-inconsistent
// currency name across venues will not group.
func mergeByCurrency(perVenue [][]model.FundingSnapshot) []model.FundingSnapshot {
	total := 0
	h := make(mergeHeap, 0, len(perVenue))
	for _, list := range perVenue {
		if len(list) == 0 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CurrencyName < list[j].CurrencyName
		})
		h = append(h, &venueCursor{items: list})
		total += len(list)
	}
	if len(h) == 0 {
		return nil
	}
	heap.Init(&h)

	merged := make([]model.FundingSnapshot, 0, total)
	for h.Len() > 0 {
		c := h[0]
		merged = append(merged, c.head())
		c.idx++
		if c.done() {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return merged
}

package engine

import (
	"github.com/roach88/vtree/internal/mutation"
)

// diffKeyedChildren reconciles keyed siblings. Matching keys are diffed in
// place or moved; only keys missing from one side are created or removed.
func (d *VirtualDom) diffKeyedChildren(to mutation.Writer, s *Scope, old, next []vref, parent elementRef) {
	left, right, done := d.diffKeyedEnds(to, s, old, next, parent)
	if done {
		return
	}

	// Anchors are taken from next: a diffed node's mount now belongs to it.
	oldMiddle := old[left : len(old)-right]
	newMiddle := next[left : len(next)-right]

	switch {
	case len(newMiddle) == 0:
		d.removeNodes(to, oldMiddle)
	case len(oldMiddle) == 0:
		switch {
		case left == 0:
			d.createAndInsertBefore(to, s, newMiddle, next[len(next)-right], parent)
		default:
			d.createAndInsertAfter(to, s, newMiddle, next[left-1], parent)
		}
	default:
		d.diffKeyedMiddle(to, s, oldMiddle, newMiddle, parent)
	}
}

// diffKeyedEnds diffs the common prefix and suffix. done is true when one
// side was exhausted and the lists are fully reconciled.
func (d *VirtualDom) diffKeyedEnds(to mutation.Writer, s *Scope, old, next []vref, parent elementRef) (left, right int, done bool) {
	for left < len(old) && left < len(next) {
		if old[left].node().key != next[left].node().key {
			break
		}
		d.diffNode(to, s, old[left], next[left])
		left++
	}

	if left == len(old) {
		d.createAndInsertAfter(to, s, next[left:], next[left-1], parent)
		return left, 0, true
	}
	if left == len(next) {
		d.removeNodes(to, old[left:])
		return left, 0, true
	}

	for right < len(old)-left && right < len(next)-left {
		o, n := old[len(old)-1-right], next[len(next)-1-right]
		if o.node().key != n.node().key {
			break
		}
		d.diffNode(to, s, o, n)
		right++
	}
	return left, right, false
}

// diffKeyedMiddle handles the unmatched middle of a keyed list:
//
//  1. map each new child to the index of the old child with its key
//  2. keep the longest increasing run of those indexes where it is
//  3. walk the rest back to front, moving or creating each next to its
//     settled neighbour
//  4. remove old children whose key is gone
func (d *VirtualDom) diffKeyedMiddle(to mutation.Writer, s *Scope, old, next []vref, parent elementRef) {
	oldIndex := make(map[string]int, len(old))
	for i, o := range old {
		oldIndex[o.node().key] = i
	}

	shared := make(map[int]struct{}, len(next))
	newToOld := make([]int, len(next))
	for i, n := range next {
		if idx, ok := oldIndex[n.node().key]; ok {
			newToOld[i] = idx
			shared[idx] = struct{}{}
		} else {
			newToOld[i] = -1
		}
	}

	// Nothing survives: rebuild the whole run in place of the first old child.
	if len(shared) == 0 {
		d.removeNodes(to, old[1:])
		pushed := d.createChildren(to, s, next, parent)
		d.removeNode(to, old[0], pushed, true)
		return
	}

	for i, o := range old {
		if _, ok := shared[i]; !ok {
			d.removeNode(to, o, -1, true)
		}
	}

	lis := longestIncreasing(newToOld)
	for _, idx := range lis {
		d.diffNode(to, s, old[newToOld[idx]], next[idx])
	}

	// Children after the last stable one go after it.
	last := lis[len(lis)-1]
	if last < len(next)-1 {
		pushed := d.placeRun(to, s, old, next, newToOld, last+1, len(next), parent)
		if pushed > 0 {
			to.WriteMutation(mutation.InsertAfter(d.lastElement(next[last]), pushed))
		}
	}

	// Gaps between stable children go before the later one.
	for i := len(lis) - 1; i > 0; i-- {
		hi, lo := lis[i], lis[i-1]
		if hi-lo <= 1 {
			continue
		}
		pushed := d.placeRun(to, s, old, next, newToOld, lo+1, hi, parent)
		if pushed > 0 {
			to.WriteMutation(mutation.InsertBefore(d.firstElement(next[hi]), pushed))
		}
	}

	// Children before the first stable one go before it.
	if first := lis[0]; first > 0 {
		pushed := d.placeRun(to, s, old, next, newToOld, 0, first, parent)
		if pushed > 0 {
			to.WriteMutation(mutation.InsertBefore(d.firstElement(next[first]), pushed))
		}
	}
}

// placeRun pushes next[from:to] onto the renderer stack: new keys are
// created, surviving keys are diffed and then picked up with PushRoot.
func (d *VirtualDom) placeRun(to mutation.Writer, s *Scope, old, next []vref, newToOld []int, from, end int, parent elementRef) int {
	pushed := 0
	for i := from; i < end; i++ {
		if newToOld[i] < 0 {
			pushed += d.create(to, s, next[i], parent)
			continue
		}
		d.diffNode(to, s, old[newToOld[i]], next[i])
		pushed += d.pushRealNodes(to, next[i])
	}
	return pushed
}

// longestIncreasing returns the positions of a longest strictly increasing
// subsequence of seq, ignoring negative entries. Positions are ascending.
func longestIncreasing(seq []int) []int {
	// tails[k] is the position ending the best run of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))

	for i, v := range seq {
		if v < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	out := make([]int, len(tails))
	if len(tails) == 0 {
		return out
	}
	k := tails[len(tails)-1]
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = k
		k = prev[k]
	}
	return out
}

package transducer

// InsertMarkers returns a copy of targets with marker inserted at the end of
// every block, as given by the block boundaries of a search result. This is
// the target sequence the transducer is trained to emit.
func InsertMarkers(targets, boundaries []int, marker int) []int {
	out := make([]int, 0, len(targets)+len(boundaries))
	prev := 0
	for _, b := range boundaries {
		out = append(out, targets[prev:b]...)
		out = append(out, marker)
		prev = b
	}
	return append(out, targets[prev:]...)
}

// BlockLengths returns the number of symbols every block emits, counting the
// end-of-block marker.
func BlockLengths(boundaries []int) []int {
	lengths := make([]int, len(boundaries))
	prev := 0
	for i, b := range boundaries {
		lengths[i] = b - prev + 1
		prev = b
	}
	return lengths
}

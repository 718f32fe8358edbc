package player

// startOffset computes where in a video a session should begin and how
// long it should run.
//
// The playable window is [customStart, customStart+available) seconds.
// If the window fits inside the session cap the whole window plays from
// its start. Otherwise the start is chosen uniformly at random so that a
// full cap-length slice still fits inside the window: offset lies in
// [customStart, customStart+available-maxSeconds].
//
// randIntN must return a uniform value in [0, n). A maxSeconds of zero or
// less means no cap.
func startOffset(customStart, available, maxSeconds float64, randIntN func(n int64) int64) (offset, planned float64) {
	if maxSeconds <= 0 || available <= maxSeconds {
		return customStart, available
	}

	slack := int64(available - maxSeconds)
	offset = customStart
	if slack > 0 {
		offset += float64(randIntN(slack + 1))
	}
	return offset, maxSeconds
}

package watch

import (
	"time"
)

// Trigger collapses event bursts into single backup triggers: one Event
// is emitted once the source has been quiet for the given duration. A
// run covers the whole tree, so unlike per-file sync there is no point
// tracking paths separately.
func Trigger(inCh <-chan Event, quiet time.Duration) <-chan Event {
	outCh := make(chan Event, 1)

	go func() {
		defer close(outCh)

		var timer *time.Timer
		var last Event

		for event := range inCh {
			last = event
			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(quiet, func() {
				select {
				case outCh <- event:
				default:
					// a trigger is already pending; one run covers both
				}
			})
		}

		if timer != nil && timer.Stop() {
			outCh <- last
		}
	}()

	return outCh
}

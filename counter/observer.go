package counter

// Eviction reasons reported to an Observer.
const (
	EvictedByAge  = "age"
	EvictedBySize = "size"
)

// Observer receives counter activity. Implementations must not block.
// EventRecorded and EventsEvicted run outside the counter lock on the recording
// goroutine. CountersChanged runs with the registry lock held and must not call
// back into the registry.
type Observer interface {
	EventRecorded()
	EventsEvicted(reason string, n int)
	CountersChanged(active int)
}

type noopObserver struct{}

func (noopObserver) EventRecorded()            {}
func (noopObserver) EventsEvicted(string, int) {}
func (noopObserver) CountersChanged(int)       {}

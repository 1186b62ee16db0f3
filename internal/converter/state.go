package converter

// State is the lifecycle stage of a Pipeline.
type State int

const (
	StateIdle State = iota
	StateOpened
	StateProcessing
	StateAssembling
	StatePackaging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpened:
		return "opened"
	case StateProcessing:
		return "processing"
	case StateAssembling:
		return "assembling"
	case StatePackaging:
		return "packaging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

package session

// State tracks the edit lifecycle of a session
type State int

const (
	// Idle means nothing was edited since the session started or since the last save
	Idle State = iota
	// EditApplied means the in-memory metadata has changes not yet saved
	EditApplied
	// Persisted means the last save succeeded
	Persisted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case EditApplied:
		return "edit_applied"
	case Persisted:
		return "persisted"
	}
	return "unknown"
}

package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput     Phase = iota // 0: deliver last frame's events
	PhaseUpdate                 // 1: scripts and game logic
	PhaseHierarchy              // 2: topological ordering pass
	PhaseTransform              // 3: compose dirty transforms, clear Dirty
	PhasePersist                // 4: autosave snapshots
	PhaseCleanup                // 5: sweep destroy-marked entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhaseHierarchy:
		return "hierarchy"
	case PhaseTransform:
		return "transform"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

package benchmark

import "fmt"

// ActionKind identifies the kind of viewport operation
type ActionKind string

const (
	ActionZoom ActionKind = "zoom"
	ActionPan  ActionKind = "pan"
)

// Action is one synthetic viewport operation. Level is only meaningful for
// zoom actions, Lon/Lat only for pan actions.
type Action struct {
	Kind  ActionKind
	Level float64 // target zoom level
	Lon   float64 // target center longitude (degrees)
	Lat   float64 // target center latitude (degrees)
}

// Zoom returns a zoom-to-level action
func Zoom(level float64) Action {
	return Action{Kind: ActionZoom, Level: level}
}

// Pan returns a pan-to-coordinate action
func Pan(lon, lat float64) Action {
	return Action{Kind: ActionPan, Lon: lon, Lat: lat}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionZoom:
		return fmt.Sprintf("Zoom(%g)", a.Level)
	case ActionPan:
		return fmt.Sprintf("Pan(%g,%g)", a.Lon, a.Lat)
	default:
		return fmt.Sprintf("Action(%s)", string(a.Kind))
	}
}

// Script is the ordered list of actions driven against every library.
// Execution order is the listed order.
type Script []Action

// DefaultScript is the interaction workload shared by every library run
var DefaultScript = Script{
	Zoom(4),
	Zoom(2),
	Pan(37.6173, 55.7558), // Moscow
	Pan(0, 0),
	Zoom(3),
	Zoom(1),
	Pan(-74.006, 40.7128), // New York
	Pan(139.6917, 35.6895), // Tokyo
	Zoom(5),
	Zoom(2),
	Pan(2.3522, 48.8566),   // Paris
	Pan(151.2093, -33.8688), // Sydney
	Zoom(6),
	Zoom(1),
}

// Validate checks the script is usable by the sequencer
func (s Script) Validate() error {
	if len(s) == 0 {
		return ErrEmptyScript
	}
	for i, a := range s {
		if a.Kind != ActionZoom && a.Kind != ActionPan {
			return fmt.Errorf("action %d: unknown kind %q", i, a.Kind)
		}
	}
	return nil
}

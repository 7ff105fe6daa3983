package entry

import "fmt"

// Mode identifies which change-detection mode produced or last touched a
// catalog entry or an intake event (spec.md §1, §4.8, §6).
type Mode uint8

const (
	// ModeScheduled identifies a scheduled, full-traversal scan.
	ModeScheduled Mode = iota
	// ModeRealtime identifies a filesystem-notification-originated event
	// carrying only a path.
	ModeRealtime
	// ModeWhodata identifies an event enriched with originating-user/process
	// attribution obtained from an OS audit source.
	ModeWhodata
)

// String returns the wire representation used in event JSON (spec.md §6).
func (m Mode) String() string {
	switch m {
	case ModeScheduled:
		return "scheduled"
	case ModeRealtime:
		return "real-time"
	case ModeWhodata:
		return "whodata"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeScheduled && m != ModeRealtime && m != ModeWhodata {
		return nil, fmt.Errorf("unknown detection mode: %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "scheduled":
		*m = ModeScheduled
	case "real-time", "realtime":
		*m = ModeRealtime
	case "whodata":
		*m = ModeWhodata
	default:
		return fmt.Errorf("unknown detection mode specification: %s", text)
	}
	return nil
}

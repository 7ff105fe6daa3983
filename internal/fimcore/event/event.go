// Package event defines the outbound wire schema from spec.md §6: compact
// JSON envelopes for change events and scan boundaries, plus the Sink
// interface that consumes them. The schema-typed serializer here replaces
// the source's cJSON tree construction per spec.md §9 ("Serialize from a
// typed record... do not build a dynamic tree then project"), following
// mutagen's pattern of marshaling concrete protobuf-free Go structs in its
// status-reporting paths.
package event

import "encoding/json"

// Kind is the outer envelope discriminator.
type Kind string

const (
	KindEvent     Kind = "event"
	KindScanStart Kind = "scan_start"
	KindScanEnd   Kind = "scan_end"
)

// ChangeType is the "data.type" field of a Kind == KindEvent envelope.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// DetectionMode is the wire form of entry.Mode, using the hyphenated
// "real-time" spelling spec.md §6 specifies (the same text entry.Mode's
// String() returns).
type DetectionMode string

const (
	DetectionScheduled DetectionMode = "scheduled"
	DetectionRealtime  DetectionMode = "real-time"
	DetectionWhodata   DetectionMode = "whodata"
)

// Data is the payload of a change event (Kind == KindEvent).
type Data struct {
	Path              string                 `json:"path"`
	Mode              DetectionMode          `json:"mode"`
	Type              ChangeType             `json:"type"`
	Timestamp         int64                  `json:"timestamp"`
	Attributes        map[string]interface{} `json:"attributes"`
	ChangedAttributes []string               `json:"changed_attributes,omitempty"`
	OldAttributes     map[string]interface{} `json:"old_attributes,omitempty"`
	Audit             map[string]interface{} `json:"audit,omitempty"`
	ContentChanges    string                 `json:"content_changes,omitempty"`
	Tags              string                 `json:"tags,omitempty"`
}

// ScanData is the payload of a scan_start/scan_end envelope.
type ScanData struct {
	Timestamp int64 `json:"timestamp"`
}

// Envelope is the top-level outbound object.
type Envelope struct {
	Type Kind        `json:"type"`
	Data interface{} `json:"data"`
}

// Marshal serializes env as compact JSON with no inserted whitespace, per
// spec.md §6.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// NewChange builds an event envelope for a change event.
func NewChange(d Data) Envelope {
	return Envelope{Type: KindEvent, Data: d}
}

// NewScanStart builds a scan_start envelope.
func NewScanStart(timestamp int64) Envelope {
	return Envelope{Type: KindScanStart, Data: ScanData{Timestamp: timestamp}}
}

// NewScanEnd builds a scan_end envelope.
func NewScanEnd(timestamp int64) Envelope {
	return Envelope{Type: KindScanEnd, Data: ScanData{Timestamp: timestamp}}
}

// Sink is the single outbound callable spec.md §6 describes: "a single
// callable send(event_json: string)".
type Sink interface {
	Send(line string) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(line string) error

// Send implements Sink.
func (f SinkFunc) Send(line string) error { return f(line) }

// Emit marshals env and sends it to sink.
func Emit(sink Sink, env Envelope) error {
	if sink == nil {
		return nil
	}
	line, err := Marshal(env)
	if err != nil {
		return err
	}
	return sink.Send(string(line))
}

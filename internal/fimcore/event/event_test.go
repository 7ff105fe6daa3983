package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalIsCompact(t *testing.T) {
	env := NewChange(Data{
		Path:      "/tmp/r/a.txt",
		Mode:      DetectionScheduled,
		Type:      ChangeAdded,
		Timestamp: 1000,
		Attributes: map[string]interface{}{
			"size": int64(100),
		},
	})
	line, err := Marshal(env)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(line), "\n"))
	require.False(t, strings.Contains(string(line), "  "))
	require.Contains(t, string(line), `"type":"event"`)
}

func TestChangeOmitsAbsentOptionalFields(t *testing.T) {
	env := NewChange(Data{Path: "/tmp/r/a.txt", Mode: DetectionScheduled, Type: ChangeAdded, Timestamp: 1})
	line, err := Marshal(env)
	require.NoError(t, err)
	require.NotContains(t, string(line), "changed_attributes")
	require.NotContains(t, string(line), "old_attributes")
	require.NotContains(t, string(line), "audit")
	require.NotContains(t, string(line), "content_changes")
	require.NotContains(t, string(line), "tags")
}

func TestScanStartAndEndSchema(t *testing.T) {
	start, err := Marshal(NewScanStart(42))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"scan_start","data":{"timestamp":42}}`, string(start))

	end, err := Marshal(NewScanEnd(99))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"scan_end","data":{"timestamp":99}}`, string(end))
}

func TestEmitSendsMarshaledLine(t *testing.T) {
	var got string
	sink := SinkFunc(func(line string) error {
		got = line
		return nil
	})
	err := Emit(sink, NewScanStart(7))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"scan_start","data":{"timestamp":7}}`, got)
}

func TestEmitNilSinkIsNoop(t *testing.T) {
	require.NoError(t, Emit(nil, NewScanStart(1)))
}

// Package modegate implements component C8 from spec.md §4.8: an admission
// policy deciding whether an observation made under a given detection mode
// should be processed for a root with a given set of active modes.
package modegate

import "github.com/wazuh-fim/fimcore/internal/fimcore/entry"

// Admit reports whether an observation made under mode should be processed
// for a root whose active option bits are rootOptions, per the table in
// spec.md §4.8:
//
//	event.mode   root.mode_bits       decision
//	Scheduled    any                  admit
//	Realtime     includes REALTIME    admit
//	Whodata      includes WHODATA     admit
//	Realtime/Whodata otherwise        drop
//
// Scheduled scans are always admitted regardless of a root's configured
// modes: they are the fallback source of truth that reconciles missed
// change notifications (spec.md §4.8 rationale).
func Admit(mode entry.Mode, rootOptions entry.Options) bool {
	switch mode {
	case entry.ModeScheduled:
		return true
	case entry.ModeRealtime:
		return rootOptions.Has(entry.RealtimeActive)
	case entry.ModeWhodata:
		return rootOptions.Has(entry.WhodataActive)
	default:
		return false
	}
}

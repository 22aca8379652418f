package identity

import (
	"sort"
	"time"

	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
)

// Map resolves device identifiers to stitched person identities. Devices
// that never self-identified resolve to themselves, so the map is total over
// the event set it was built from.
type Map struct {
	byDevice map[string]string
	devices  map[string]struct{}
}

type signal struct {
	personID  string
	eventTime time.Time
	seq       uint64
}

// Build scans the full normalized event set and keeps, per device, the self
// identifier from the latest event (ties broken by ingestion sequence). The
// resolution is retroactive: downstream joins apply it to all of a device's
// history, including events before the identifying one.
func Build(events []normalize.Event) *Map {
	signals := make(map[string]signal)
	devices := make(map[string]struct{})
	for _, event := range events {
		devices[event.DeviceID] = struct{}{}
		if event.SelfIdentifier == "" {
			continue
		}
		next := signal{
			personID:  event.SelfIdentifier,
			eventTime: event.EventTime,
			seq:       event.Seq,
		}
		current, seen := signals[event.DeviceID]
		if !seen || next.wins(current) {
			signals[event.DeviceID] = next
		}
	}

	byDevice := make(map[string]string, len(signals))
	for deviceID, s := range signals {
		byDevice[deviceID] = s.personID
	}
	return &Map{byDevice: byDevice, devices: devices}
}

// wins reports whether this signal supersedes the current one: strictly later
// event time, or same instant but later in ingestion order.
func (s signal) wins(current signal) bool {
	if s.eventTime.After(current.eventTime) {
		return true
	}
	return s.eventTime.Equal(current.eventTime) && s.seq > current.seq
}

// Resolve returns the person identity for a device.
func (m *Map) Resolve(deviceID string) string {
	if personID, ok := m.byDevice[deviceID]; ok {
		return personID
	}
	return deviceID
}

// Entry is one materialized identity_map row.
type Entry struct {
	DeviceID string
	PersonID string
}

// Entries materializes the mapping for every device seen while building,
// including the implicit self-mappings, ordered by device id so reruns emit
// identical tables.
func (m *Map) Entries() []Entry {
	entries := make([]Entry, 0, len(m.devices))
	for deviceID := range m.devices {
		entries = append(entries, Entry{DeviceID: deviceID, PersonID: m.Resolve(deviceID)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DeviceID < entries[j].DeviceID
	})
	return entries
}

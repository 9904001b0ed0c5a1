package bridge

import "sync/atomic"

// Snapshot is one immutable view of the configured endpoints and bridges.
// Snapshots are replaced wholesale on reload and must not be mutated after
// being handed to a Directory.
type Snapshot struct {
	SlackChannels []SlackChannel
	LineChannels  []LineChannel
	Bridges       []Bridge
}

// Directory is the read-only, hot-reloadable mapping of platform channel
// identities to bridge pairs. Readers always observe either the previous or
// the next full snapshot, never a partial one.
type Directory struct {
	snapshot atomic.Pointer[Snapshot]
}

// NewDirectory creates a directory serving the given snapshot.
func NewDirectory(snap Snapshot) *Directory {
	d := &Directory{}
	d.Reload(snap)
	return d
}

// Reload atomically swaps in a new snapshot. Safe to call concurrently with
// lookups; in-flight requests keep the view they started with.
func (d *Directory) Reload(snap Snapshot) {
	d.snapshot.Store(&snap)
}

// SlackChannelByID resolves a Slack endpoint by its inbound identity tuple.
// Exact match only.
func (d *Directory) SlackChannelByID(teamID, channelID string) (SlackChannel, bool) {
	for _, ch := range d.snapshot.Load().SlackChannels {
		if ch.TeamID == teamID && ch.ChannelID == channelID {
			return ch, true
		}
	}
	return SlackChannel{}, false
}

// SlackChannelByName resolves a Slack endpoint by its bridge-facing name.
func (d *Directory) SlackChannelByName(name string) (SlackChannel, bool) {
	for _, ch := range d.snapshot.Load().SlackChannels {
		if ch.Name == name {
			return ch, true
		}
	}
	return SlackChannel{}, false
}

// LineChannelByID resolves a LINE endpoint by its platform-assigned source id.
func (d *Directory) LineChannelByID(sourceID string) (LineChannel, bool) {
	for _, ch := range d.snapshot.Load().LineChannels {
		if ch.ID == sourceID {
			return ch, true
		}
	}
	return LineChannel{}, false
}

// LineChannelByName resolves a LINE endpoint by its bridge-facing name.
func (d *Directory) LineChannelByName(name string) (LineChannel, bool) {
	for _, ch := range d.snapshot.Load().LineChannels {
		if ch.Name == name {
			return ch, true
		}
	}
	return LineChannel{}, false
}

// BridgesForSlack returns every bridge whose Slack side matches the endpoint
// name. Empty result means the event is acknowledged but not relayed.
func (d *Directory) BridgesForSlack(name string) []Bridge {
	var out []Bridge
	for _, b := range d.snapshot.Load().Bridges {
		if b.Slack == name {
			out = append(out, b)
		}
	}
	return out
}

// BridgesForLine returns every bridge whose LINE side matches the endpoint
// name.
func (d *Directory) BridgesForLine(name string) []Bridge {
	var out []Bridge
	for _, b := range d.snapshot.Load().Bridges {
		if b.Line == name {
			out = append(out, b)
		}
	}
	return out
}

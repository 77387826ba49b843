package media

import "strings"

// TrackType is the bitset describing one track.
type TrackType uint8

const (
	TrackData TrackType = 1 << iota
	TrackAudio
	TrackCopy
	TrackPreEmphasis
	TrackFourChannel
	TrackIncremental
	TrackLeadout
)

var trackTypeNames = []struct {
	t    TrackType
	name string
}{
	{TrackData, "data"}, {TrackAudio, "audio"}, {TrackCopy, "copy"},
	{TrackPreEmphasis, "preemphasis"}, {TrackFourChannel, "4_channels"},
	{TrackIncremental, "incremental"}, {TrackLeadout, "leadout"},
}

func (t TrackType) String() string {
	var names []string
	for _, n := range trackTypeNames {
		if t&n.t != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MarshalText renders the bitset by name in reports.
func (t TrackType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Track is one track of a session, or the leadout pseudo track that stands
// for the free space after the last session.
type Track struct {
	Number  int       `json:"number" yaml:"number"`
	Session int       `json:"session" yaml:"session"`
	Type    TrackType `json:"type" yaml:"type"`
	Start   int64     `json:"start" yaml:"start"`
	Blocks  int64     `json:"blocks" yaml:"blocks"`
}

// IsLeadout reports whether t is the free space pseudo track.
func (t Track) IsLeadout() bool { return t.Type&TrackLeadout != 0 }

// End returns the first block after the track.
func (t Track) End() int64 { return t.Start + t.Blocks }

package media

import (
	"sort"
	"time"

	"discprobe/internal/mmc/cdtext"
)

// Builder accumulates probe results. Only Build hands out a Medium, so a
// partially probed state is never visible outside the probe.
type Builder struct {
	m Medium
}

// NewBuilder starts an empty medium with the default block size and no
// next writable address.
func NewBuilder() *Builder {
	return &Builder{m: Medium{blockSize: DefaultBlockSize, nextWritable: -1}}
}

func (b *Builder) SetID(id string)             { b.m.id = id }
func (b *Builder) ID() string                  { return b.m.id }
func (b *Builder) SetTypeName(name string)     { b.m.typeName = name }
func (b *Builder) SetDriveName(name string)    { b.m.driveName = name }
func (b *Builder) SetVolumeLabel(label string) { b.m.volumeLabel = label }
func (b *Builder) VolumeLabel() string         { return b.m.volumeLabel }
func (b *Builder) SetProbedAt(t time.Time)     { b.m.probedAt = t }
func (b *Builder) SetBlockSize(size int64)     { b.m.blockSize = size }
func (b *Builder) SetBlockCount(n int64)       { b.m.blockCount = n }
func (b *Builder) BlockCount() int64           { return b.m.blockCount }
func (b *Builder) SetNextWritable(lba int64)   { b.m.nextWritable = lba }
func (b *Builder) NextWritable() int64         { return b.m.nextWritable }
func (b *Builder) SetFirstOpenTrack(n int)     { b.m.firstOpenTrack = n }
func (b *Builder) FirstOpenTrack() int         { return b.m.firstOpenTrack }
func (b *Builder) SetWriteCaps(c WriteCaps)    { b.m.caps = c }
func (b *Builder) WriteCaps() WriteCaps        { return b.m.caps }
func (b *Builder) SetCDText(t *cdtext.Text)    { b.m.text = t }
func (b *Builder) Flags() Flags                { return b.m.flags }
func (b *Builder) AddFlags(f Flags)            { b.m.flags |= f }
func (b *Builder) ClearFlags(f Flags)          { b.m.flags &^= f }
func (b *Builder) SetProfile(code uint16, name string) {
	b.m.profile, b.m.profileName = code, name
}

// SetFormat replaces the physical type bits and keeps the state bits.
func (b *Builder) SetFormat(format Flags) {
	b.m.flags = b.m.flags.State() | format.Format()
}

// SetSpeeds stores a copy of s.
func (b *Builder) SetSpeeds(s SpeedSet)        { b.m.speeds = s.clone() }

// Speeds returns a copy of the speeds gathered so far.
func (b *Builder) Speeds() SpeedSet            { return b.m.speeds.clone() }

// AddTrack appends a track. A new leadout replaces any previous one.
func (b *Builder) AddTrack(t Track) {
	if t.IsLeadout() {
		b.RemoveLeadout()
	}
	b.m.tracks = append(b.m.tracks, t)
}

// RemoveLeadout drops the leadout pseudo track if present.
func (b *Builder) RemoveLeadout() {
	kept := b.m.tracks[:0]
	for _, t := range b.m.tracks {
		if !t.IsLeadout() {
			kept = append(kept, t)
		}
	}
	b.m.tracks = kept
}

// Tracks returns a copy of the tracks gathered so far.
func (b *Builder) Tracks() []Track { return append([]Track(nil), b.m.tracks...) }

// UpdateTrack applies fn to the i-th track in insertion order.
func (b *Builder) UpdateTrack(i int, fn func(*Track)) {
	if i >= 0 && i < len(b.m.tracks) {
		fn(&b.m.tracks[i])
	}
}

// Build finalizes the medium: blank wins over closed, tracks are ordered by
// start with the leadout last, speeds are sorted fastest first and the type
// name is filled in from the flags when unset.
func (b *Builder) Build() *Medium {
	m := b.m
	if m.flags.Any(FlagBlank) {
		m.flags &^= FlagClosed
	}
	m.tracks = append([]Track(nil), b.m.tracks...)
	sort.SliceStable(m.tracks, func(i, j int) bool {
		ti, tj := m.tracks[i], m.tracks[j]
		if ti.IsLeadout() != tj.IsLeadout() {
			return !ti.IsLeadout()
		}
		return ti.Start < tj.Start
	})
	m.speeds = b.m.speeds.clone()
	m.speeds.Sort()
	if m.typeName == "" {
		m.typeName = TypeName(m.flags)
	}
	if m.probedAt.IsZero() {
		m.probedAt = time.Now()
	}
	return &m
}

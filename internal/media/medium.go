package media

import (
	"time"

	"discprobe/internal/mmc/cdtext"
)

// DefaultBlockSize is the sector size of every data medium handled.
const DefaultBlockSize = 2048

// Medium is the result of one completed probe. It never changes after Build
// returns it and is safe to share between goroutines.
type Medium struct {
	id             string
	typeName       string
	profile        uint16
	profileName    string
	flags          Flags
	blockSize      int64
	blockCount     int64
	nextWritable   int64
	firstOpenTrack int
	tracks         []Track
	speeds         SpeedSet
	caps           WriteCaps
	text           *cdtext.Text
	driveName      string
	volumeLabel    string
	probedAt       time.Time
}

// ID returns the disc identifier, or a fingerprint when the medium has none.
func (m *Medium) ID() string { return m.id }

// Type returns the human readable medium type, e.g. "DVD+RW".
func (m *Medium) Type() string { return m.typeName }

// Profile returns the MMC profile number and its name.
func (m *Medium) Profile() (uint16, string) { return m.profile, m.profileName }

func (m *Medium) Flags() Flags         { return m.flags }
func (m *Medium) BlockSize() int64     { return m.blockSize }
func (m *Medium) BlockCount() int64    { return m.blockCount }
func (m *Medium) FirstOpenTrack() int  { return m.firstOpenTrack }
func (m *Medium) WriteCaps() WriteCaps { return m.caps }
func (m *Medium) DriveName() string    { return m.driveName }
func (m *Medium) VolumeLabel() string  { return m.volumeLabel }
func (m *Medium) ProbedAt() time.Time  { return m.probedAt }

// WithDriveName returns a copy of m labelled with the drive that holds it.
func (m *Medium) WithDriveName(name string) *Medium {
	c := *m
	c.driveName = name
	return &c
}

// CDText returns the decoded CD-TEXT, or nil.
func (m *Medium) CDText() *cdtext.Text { return m.text }

// Title returns the CD-TEXT album title, if any.
func (m *Medium) Title() string { return m.text.Title() }

// Tracks returns a copy of the track table, leadout last.
func (m *Medium) Tracks() []Track { return append([]Track(nil), m.tracks...) }

// TrackCount returns the number of real tracks. Counting stops at the
// leadout.
func (m *Medium) TrackCount() int {
	n := 0
	for _, t := range m.tracks {
		if t.IsLeadout() {
			break
		}
		n++
	}
	return n
}

// Track returns the n-th real track, counting from 1.
func (m *Medium) Track(n int) (Track, bool) {
	if n < 1 || n > m.TrackCount() {
		return Track{}, false
	}
	return m.tracks[n-1], true
}

func (m *Medium) leadout() (Track, bool) {
	for _, t := range m.tracks {
		if t.IsLeadout() {
			return t, true
		}
	}
	return Track{}, false
}

func (m *Medium) lastDataTrack() (Track, bool) {
	var last Track
	found := false
	for _, t := range m.tracks {
		if t.IsLeadout() {
			break
		}
		if t.Type&TrackData != 0 {
			last, found = t, true
		}
	}
	return last, found
}

func (m *Medium) bytes(blocks int64) int64 { return blocks * m.blockSize }

// TrackSpace returns the size of the n-th track.
func (m *Medium) TrackSpace(n int) (bytes, blocks int64, ok bool) {
	t, ok := m.Track(n)
	if !ok {
		return 0, 0, false
	}
	return m.bytes(t.Blocks), t.Blocks, true
}

// TrackAddress returns the start of the n-th track.
func (m *Medium) TrackAddress(n int) (bytes, blocks int64, ok bool) {
	t, ok := m.Track(n)
	if !ok {
		return 0, 0, false
	}
	return m.bytes(t.Start), t.Start, true
}

// LastDataTrackAddress returns the start of the last data track.
func (m *Medium) LastDataTrackAddress() (bytes, blocks int64, ok bool) {
	t, ok := m.lastDataTrack()
	if !ok {
		return 0, 0, false
	}
	return m.bytes(t.Start), t.Start, true
}

// LastDataTrackSpace returns the size of the last data track.
func (m *Medium) LastDataTrackSpace() (bytes, blocks int64, ok bool) {
	t, ok := m.lastDataTrack()
	if !ok {
		return 0, 0, false
	}
	return m.bytes(t.Blocks), t.Blocks, true
}

// DataSize returns the extent of recorded data: the end of the last real
// track.
func (m *Medium) DataSize() (bytes, blocks int64) {
	n := m.TrackCount()
	if n == 0 {
		return 0, 0
	}
	end := m.tracks[n-1].End()
	return m.bytes(end), end
}

// FreeSpace returns the writable space left, which is the size of the
// leadout pseudo track. Closed media have none.
func (m *Medium) FreeSpace() (bytes, blocks int64) {
	if m.flags.Any(FlagClosed) {
		return 0, 0
	}
	t, ok := m.leadout()
	if !ok {
		return 0, 0
	}
	return m.bytes(t.Blocks), t.Blocks
}

// Capacity depends on the medium category: closed media hold exactly their
// data, rewritable media can be reused whole, and anything else can only
// take what is still free.
func (m *Medium) Capacity() (bytes, blocks int64) {
	switch {
	case m.flags.Any(FlagClosed):
		return m.DataSize()
	case m.flags.Any(FlagRewritable):
		_, data := m.DataSize()
		_, free := m.FreeSpace()
		return m.bytes(data + free), data + free
	default:
		return m.FreeSpace()
	}
}

// NextWritableAddress returns where the next session may start. Random
// writable formats never report one; for them the end of data rounded up to
// 16 blocks is used.
func (m *Medium) NextWritableAddress() (int64, bool) {
	if m.flags.RandomWritable() {
		_, data := m.DataSize()
		return roundUp16(data), true
	}
	if m.flags.Any(FlagClosed) || m.nextWritable < 0 {
		return 0, false
	}
	return m.nextWritable, true
}

func roundUp16(v int64) int64 { return (v + 15) &^ 15 }

// Speeds returns a copy of the speed lists in KB/s.
func (m *Medium) Speeds() SpeedSet { return m.speeds.clone() }

// WriteSpeeds returns the write speeds in bytes per second, fastest first.
func (m *Medium) WriteSpeeds() []int64 { return toBytesPerSecond(m.speeds.Write) }

// ReadSpeeds returns the read speeds in bytes per second, fastest first.
func (m *Medium) ReadSpeeds() []int64 { return toBytesPerSecond(m.speeds.Read) }

// MaxWriteSpeed returns the fastest write speed in bytes per second.
func (m *Medium) MaxWriteSpeed() int64 {
	if len(m.speeds.Write) == 0 {
		return 0
	}
	return int64(m.speeds.Write[0]) * bytesPerKB
}

func toBytesPerSecond(kbps []int) []int64 {
	if len(kbps) == 0 {
		return nil
	}
	out := make([]int64, len(kbps))
	for i, v := range kbps {
		out[i] = int64(v) * bytesPerKB
	}
	return out
}

// CanBeWritten reports whether data can be added to the medium.
func (m *Medium) CanBeWritten() bool {
	if m.flags.Any(FlagClosed) && !m.flags.Any(FlagRewritable) {
		return false
	}
	if m.flags.Any(FlagProtected) {
		return false
	}
	return m.flags.Any(FlagWritable | FlagRewritable)
}

// CanBeRewritten reports whether the medium can be erased and reused.
// CD-RW and sequential DVD-RW need the blank command; the other rewritable
// formats are overwritable by definition.
func (m *Medium) CanBeRewritten() bool {
	if !m.flags.Any(FlagRewritable) {
		return false
	}
	switch m.flags.Format() {
	case CDRW, DVDRW:
		return m.caps.Blank
	case DVDRWRestricted, DVDPlusRW, DVDPlusRWDL, DVDRAM, BDRE:
		return true
	default:
		return false
	}
}

func (m *Medium) CanUseSAO() bool         { return m.caps.SAO }
func (m *Medium) CanUseTAO() bool         { return m.caps.TAO }
func (m *Medium) CanUseBurnFree() bool    { return m.caps.BurnFree }
func (m *Medium) CanUseDummyForSAO() bool { return m.caps.DummySAO }
func (m *Medium) CanUseDummyForTAO() bool { return m.caps.DummyTAO }

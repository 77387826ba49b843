package wire

import "encoding/binary"

// Get16 reads a big-endian uint16.
func Get16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// Get24 reads a big-endian 24-bit value.
func Get24(b []byte) uint32 { return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]) }

// Get32 reads a big-endian uint32.
func Get32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// Put16 writes a big-endian uint16.
func Put16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// Put24 writes a big-endian 24-bit value.
func Put24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// Put32 writes a big-endian uint32.
func Put32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// FramesPerSecond is the CD sector rate.
const FramesPerSecond = 75

// MSFOffset is the 2 second pregap between MSF 00:00:00 and LBA 0.
const MSFOffset = 150

// MSFToLBA converts an absolute minute/second/frame address to an LBA.
func MSFToLBA(m, s, f int) int64 {
	return int64((m*60+s)*FramesPerSecond+f) - MSFOffset
}

// LBAToMSF converts an LBA to minute/second/frame.
func LBAToMSF(lba int64) (m, s, f int) {
	frames := lba + MSFOffset
	if frames < 0 {
		frames = 0
	}
	f = int(frames % FramesPerSecond)
	frames /= FramesPerSecond
	s = int(frames % 60)
	m = int(frames / 60)
	return m, s, f
}

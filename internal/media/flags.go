// Package media holds the immutable snapshot produced by a medium probe and
// the read-only queries built on it.
package media

import "strings"

// Flags describes a medium along two axes. The format bits name exactly one
// physical type; the state bits combine freely.
type Flags uint32

// Format axis.
const (
	FlagCD Flags = 1 << iota
	FlagDVD
	FlagBD
	FlagROM
	FlagWritable
	FlagRewritable
	FlagPlus
	FlagSequential
	FlagRestricted
	FlagJump
	FlagRandom
	FlagSRM
	FlagPOW
	FlagRAM
	FlagDualLayer
)

// State axis.
const (
	FlagProtected Flags = 1 << (iota + 16)
	FlagUnformatted
	FlagBlank
	FlagAppendable
	FlagClosed
	FlagHasData
	FlagHasAudio
)

// Physical types.
const (
	CDROM            = FlagCD | FlagROM
	CDR              = FlagCD | FlagWritable
	CDRW             = FlagCD | FlagRewritable
	DVDROM           = FlagDVD | FlagROM
	DVDR             = FlagDVD | FlagSequential | FlagWritable
	DVDRW            = FlagDVD | FlagSequential | FlagRewritable
	DVDRWRestricted  = FlagDVD | FlagRestricted | FlagRewritable
	DVDRDL           = DVDR | FlagDualLayer
	DVDRJumpDL       = FlagDVD | FlagJump | FlagWritable | FlagDualLayer
	DVDPlusR         = FlagDVD | FlagPlus | FlagWritable
	DVDPlusRW        = FlagDVD | FlagPlus | FlagRewritable
	DVDPlusRDL       = DVDPlusR | FlagDualLayer
	DVDPlusRWDL      = DVDPlusRW | FlagDualLayer
	DVDRAM           = FlagDVD | FlagRAM | FlagRewritable
	BDROM            = FlagBD | FlagROM
	BDRSRM           = FlagBD | FlagSRM | FlagWritable
	BDRSRMPOW        = BDRSRM | FlagPOW
	BDRRandom        = FlagBD | FlagRandom | FlagWritable
	BDRE             = FlagBD | FlagRewritable
	formatMask Flags = 0xFFFF
	stateMask  Flags = ^formatMask
)

// Has reports whether every bit of want is set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Any reports whether at least one bit of want is set.
func (f Flags) Any(want Flags) bool { return f&want != 0 }

// Format returns the physical type bits only.
func (f Flags) Format() Flags { return f & formatMask }

// State returns the state bits only.
func (f Flags) State() Flags { return f & stateMask }

// Is reports whether the physical type is exactly format.
func (f Flags) Is(format Flags) bool { return f.Format() == format }

// RandomWritable reports the formats that have no sessions and are always
// overwritten in place: DVD+RW, restricted overwrite DVD-RW and DVD+RW DL.
func (f Flags) RandomWritable() bool {
	return f.Is(DVDPlusRW) || f.Is(DVDRWRestricted) || f.Is(DVDPlusRWDL)
}

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagCD, "cd"}, {FlagDVD, "dvd"}, {FlagBD, "bd"}, {FlagROM, "rom"},
	{FlagWritable, "writable"}, {FlagRewritable, "rewritable"}, {FlagPlus, "plus"},
	{FlagSequential, "sequential"}, {FlagRestricted, "restricted"}, {FlagJump, "jump"},
	{FlagRandom, "random"}, {FlagSRM, "srm"}, {FlagPOW, "pow"}, {FlagRAM, "ram"},
	{FlagDualLayer, "dual_layer"},
	{FlagProtected, "protected"}, {FlagUnformatted, "unformatted"}, {FlagBlank, "blank"},
	{FlagAppendable, "appendable"}, {FlagClosed, "closed"}, {FlagHasData, "has_data"},
	{FlagHasAudio, "has_audio"},
}

// Names lists the set bits in a fixed order.
func (f Flags) Names() []string {
	var out []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

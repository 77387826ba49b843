package media

import "fmt"

var typeNames = map[Flags]string{
	CDROM:           "CD-ROM",
	CDR:             "CD-R",
	CDRW:            "CD-RW",
	DVDROM:          "DVD-ROM",
	DVDR:            "DVD-R",
	DVDRW:           "DVD-RW",
	DVDRWRestricted: "DVD-RW",
	DVDRDL:          "Double Layer DVD-R",
	DVDRJumpDL:      "Double Layer DVD-R",
	DVDPlusR:        "DVD+R",
	DVDPlusRW:       "DVD+RW",
	DVDPlusRDL:      "Double Layer DVD+R",
	DVDPlusRWDL:     "Double Layer DVD+RW",
	DVDRAM:          "DVD-RAM",
	BDROM:           "Blu-ray disc",
	BDRSRM:          "Writable Blu-ray disc",
	BDRSRMPOW:       "Writable Blu-ray disc",
	BDRRandom:       "Writable Blu-ray disc",
	BDRE:            "Rewritable Blu-ray disc",
}

// TypeName returns the display name of the physical type in f.
func TypeName(f Flags) string {
	if name, ok := typeNames[f.Format()]; ok {
		return name
	}
	return "Unknown medium"
}

// Tooltip builds the one line description shown for a medium in a drive,
// e.g. "Audio and data CD-RW in HL-DT-ST BD-RE WH16NS60".
func (m *Medium) Tooltip() string {
	name := m.driveName
	if name == "" {
		name = "drive"
	}
	switch f := m.flags; {
	case f.Any(FlagBlank):
		return fmt.Sprintf("Blank %s in %s", m.typeName, name)
	case f.Has(FlagHasAudio | FlagHasData):
		return fmt.Sprintf("Audio and data %s in %s", m.typeName, name)
	case f.Any(FlagHasAudio):
		return fmt.Sprintf("Audio %s in %s", m.typeName, name)
	case f.Any(FlagHasData):
		return fmt.Sprintf("Data %s in %s", m.typeName, name)
	default:
		return fmt.Sprintf("%s in %s", m.typeName, name)
	}
}

package scsi

import "fmt"

// Operation codes issued by the MMC bindings.
const (
	OpTestUnitReady        byte = 0x00
	OpInquiry              byte = 0x12
	OpReadFormatCapacities byte = 0x23
	OpRead10               byte = 0x28
	OpReadTOC              byte = 0x43
	OpGetConfiguration     byte = 0x46
	OpReadDiscInformation  byte = 0x51
	OpReadTrackInformation byte = 0x52
	OpModeSelect10         byte = 0x55
	OpModeSense10          byte = 0x5A
	OpGetPerformance       byte = 0xAC
	OpReadCD               byte = 0xBE
)

var opcodeNames = map[byte]string{
	OpTestUnitReady:        "TEST UNIT READY",
	OpInquiry:              "INQUIRY",
	OpReadFormatCapacities: "READ FORMAT CAPACITIES",
	OpRead10:               "READ(10)",
	OpReadTOC:              "READ TOC/PMA/ATIP",
	OpGetConfiguration:     "GET CONFIGURATION",
	OpReadDiscInformation:  "READ DISC INFORMATION",
	OpReadTrackInformation: "READ TRACK INFORMATION",
	OpModeSelect10:         "MODE SELECT(10)",
	OpModeSense10:          "MODE SENSE(10)",
	OpGetPerformance:       "GET PERFORMANCE",
	OpReadCD:               "READ CD",
}

// OpcodeName returns a readable name for an operation code.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode 0x%02x", op)
}

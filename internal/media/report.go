package media

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"discprobe/internal/mmc/cdtext"
)

// Report is the serialisable view of a Medium used by the CLI and the
// history store.
type Report struct {
	ID             string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type           string       `json:"type" yaml:"type"`
	Profile        string       `json:"profile" yaml:"profile"`
	ProfileCode    uint16       `json:"profile_code" yaml:"profile_code"`
	Flags          []string     `json:"flags" yaml:"flags"`
	Drive          string       `json:"drive,omitempty" yaml:"drive,omitempty"`
	Label          string       `json:"label,omitempty" yaml:"label,omitempty"`
	Title          string       `json:"title,omitempty" yaml:"title,omitempty"`
	Tooltip        string       `json:"tooltip" yaml:"tooltip"`
	BlockSize      int64        `json:"block_size" yaml:"block_size"`
	CapacityBlocks int64        `json:"capacity_blocks" yaml:"capacity_blocks"`
	CapacityBytes  int64        `json:"capacity_bytes" yaml:"capacity_bytes"`
	DataBlocks     int64        `json:"data_blocks" yaml:"data_blocks"`
	DataBytes      int64        `json:"data_bytes" yaml:"data_bytes"`
	FreeBlocks     int64        `json:"free_blocks" yaml:"free_blocks"`
	FreeBytes      int64        `json:"free_bytes" yaml:"free_bytes"`
	NextWritable   *int64       `json:"next_writable,omitempty" yaml:"next_writable,omitempty"`
	FirstOpenTrack int          `json:"first_open_track,omitempty" yaml:"first_open_track,omitempty"`
	Tracks         []Track      `json:"tracks" yaml:"tracks"`
	Speeds         SpeedSet     `json:"speeds" yaml:"speeds"`
	WriteCaps      WriteCaps    `json:"write_caps" yaml:"write_caps"`
	Writable       bool         `json:"writable" yaml:"writable"`
	Rewritable     bool         `json:"rewritable" yaml:"rewritable"`
	CDText         *cdtext.Text `json:"cd_text,omitempty" yaml:"cd_text,omitempty"`
	ProbedAt       time.Time    `json:"probed_at" yaml:"probed_at"`
}

// Report builds the serialisable view of m.
func (m *Medium) Report() Report {
	capBytes, capBlocks := m.Capacity()
	dataBytes, dataBlocks := m.DataSize()
	freeBytes, freeBlocks := m.FreeSpace()
	r := Report{
		ID:             m.id,
		Type:           m.typeName,
		Profile:        m.profileName,
		ProfileCode:    m.profile,
		Flags:          m.flags.Names(),
		Drive:          m.driveName,
		Label:          m.volumeLabel,
		Title:          m.Title(),
		Tooltip:        m.Tooltip(),
		BlockSize:      m.blockSize,
		CapacityBlocks: capBlocks,
		CapacityBytes:  capBytes,
		DataBlocks:     dataBlocks,
		DataBytes:      dataBytes,
		FreeBlocks:     freeBlocks,
		FreeBytes:      freeBytes,
		FirstOpenTrack: m.firstOpenTrack,
		Tracks:         m.Tracks(),
		Speeds:         m.Speeds(),
		WriteCaps:      m.caps,
		Writable:       m.CanBeWritten(),
		Rewritable:     m.CanBeRewritten(),
		CDText:         m.text,
		ProbedAt:       m.probedAt,
	}
	if nwa, ok := m.NextWritableAddress(); ok {
		r.NextWritable = &nwa
	}
	return r
}

// JSON encodes the report with indentation.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// YAML encodes the report as a YAML document.
func (r Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// Package wire decodes and encodes fixed big-endian MMC structures from
// declarative field tables.
//
// A Layout lists every field of a structure as (name, byte offset, bit
// offset, bit width). Fields wider than a byte are read as big-endian
// integers spanning consecutive bytes; sub-byte fields are masked and shifted
// explicitly, so decoding never depends on host bit-field order. Layouts
// that name every bit, reserved ones included, round-trip any buffer exactly.
package wire

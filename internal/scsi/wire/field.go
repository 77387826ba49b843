package wire

import "fmt"

// Kind separates integer fields from opaque byte runs.
type Kind uint8

const (
	KindUint Kind = iota
	KindBytes
)

// Field describes one named run of bits. For integer fields the run starts at
// bit Bit (0 = least significant) of the big-endian window that begins at
// byte Offset and is just wide enough to hold Bit+Width bits.
type Field struct {
	Name   string
	Offset int
	Bit    int
	Width  int
	Kind   Kind
}

// U8 is a whole byte.
func U8(name string, offset int) Field { return Field{Name: name, Offset: offset, Width: 8} }

// U16 is a big-endian 16-bit integer.
func U16(name string, offset int) Field { return Field{Name: name, Offset: offset, Width: 16} }

// U24 is a big-endian 24-bit integer.
func U24(name string, offset int) Field { return Field{Name: name, Offset: offset, Width: 24} }

// U32 is a big-endian 32-bit integer.
func U32(name string, offset int) Field { return Field{Name: name, Offset: offset, Width: 32} }

// Bits is a sub-byte field of width bits starting at bit.
func Bits(name string, offset, bit, width int) Field {
	return Field{Name: name, Offset: offset, Bit: bit, Width: width}
}

// Flag is a single bit.
func Flag(name string, offset, bit int) Field { return Bits(name, offset, bit, 1) }

// Bytes is an opaque run of n bytes.
func Bytes(name string, offset, n int) Field {
	return Field{Name: name, Offset: offset, Width: n * 8, Kind: KindBytes}
}

// Reserved covers n whole bytes that carry no meaning.
func Reserved(offset, n int) Field {
	return Bytes(fmt.Sprintf("reserved_%d", offset), offset, n)
}

// ReservedBits covers unused bits inside a byte.
func ReservedBits(offset, bit, width int) Field {
	return Bits(fmt.Sprintf("reserved_%d_%d", offset, bit), offset, bit, width)
}

// span returns the number of bytes the field touches.
func (f Field) span() int {
	if f.Kind == KindBytes {
		return f.Width / 8
	}
	return (f.Bit + f.Width + 7) / 8
}

func (f Field) mask() uint64 {
	if f.Width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.Width) - 1
}

func (f Field) validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("field at offset %d has no name", f.Offset)
	case f.Offset < 0 || f.Bit < 0 || f.Width <= 0:
		return fmt.Errorf("field %s: invalid geometry", f.Name)
	case f.Kind == KindBytes && (f.Bit != 0 || f.Width%8 != 0):
		return fmt.Errorf("field %s: byte runs must be byte aligned", f.Name)
	case f.Kind == KindUint && f.span() > 8:
		return fmt.Errorf("field %s: integer wider than 64 bits", f.Name)
	case f.Kind == KindUint && f.Width > 8 && f.Bit != 0 && (f.Bit+f.Width)%8 != 0:
		return fmt.Errorf("field %s: multi-byte field must end on a byte boundary", f.Name)
	}
	return nil
}

// bitRange returns absolute bit positions [start, end) counted from the
// first bit (MSB) of byte 0.
func (f Field) bitRange() (int, int) {
	if f.Kind == KindBytes {
		start := f.Offset * 8
		return start, start + f.Width
	}
	end := (f.Offset+f.span())*8 - f.Bit
	return end - f.Width, end
}

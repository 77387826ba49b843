package wire

import (
	"fmt"
	"sort"
)

// Layout is an ordered field table for one wire structure.
type Layout struct {
	name   string
	size   int
	fields []Field
	index  map[string]int
}

// NewLayout builds a layout of size bytes. It panics on malformed tables,
// which are static program data.
func NewLayout(name string, size int, fields ...Field) *Layout {
	l := &Layout{name: name, size: size, fields: append([]Field(nil), fields...), index: make(map[string]int, len(fields))}
	for i, f := range l.fields {
		if err := f.validate(); err != nil {
			panic(fmt.Sprintf("wire: layout %s: %v", name, err))
		}
		if f.Offset+f.span() > size {
			panic(fmt.Sprintf("wire: layout %s: field %s exceeds %d bytes", name, f.Name, size))
		}
		if _, dup := l.index[f.Name]; dup {
			panic(fmt.Sprintf("wire: layout %s: duplicate field %s", name, f.Name))
		}
		l.index[f.Name] = i
	}
	return l
}

// Name returns the structure name.
func (l *Layout) Name() string { return l.name }

// Size returns the fixed size in bytes.
func (l *Layout) Size() int { return l.size }

// Fields returns a copy of the field table.
func (l *Layout) Fields() []Field { return append([]Field(nil), l.fields...) }

func (l *Layout) field(name string) Field {
	i, ok := l.index[name]
	if !ok {
		panic(fmt.Sprintf("wire: layout %s has no field %q", l.name, name))
	}
	return l.fields[i]
}

// Uint reads an integer field. Fields past the end of buf read as zero so
// callers can decode truncated optional tails.
func (l *Layout) Uint(buf []byte, name string) uint64 {
	return getUint(buf, l.field(name))
}

// Int reads an integer field as int64.
func (l *Layout) Int(buf []byte, name string) int64 {
	return int64(l.Uint(buf, name))
}

// Flag reads a field and reports whether it is non-zero.
func (l *Layout) Flag(buf []byte, name string) bool {
	return l.Uint(buf, name) != 0
}

// Bytes returns a copy of a byte-run field, or nil when buf is too short.
func (l *Layout) Bytes(buf []byte, name string) []byte {
	f := l.field(name)
	if f.Offset+f.span() > len(buf) {
		return nil
	}
	return append([]byte(nil), buf[f.Offset:f.Offset+f.span()]...)
}

// SetUint writes an integer field in place.
func (l *Layout) SetUint(buf []byte, name string, v uint64) {
	putUint(buf, l.field(name), v)
}

// SetFlag writes a one-bit field.
func (l *Layout) SetFlag(buf []byte, name string, on bool) {
	var v uint64
	if on {
		v = 1
	}
	l.SetUint(buf, name, v)
}

// Values is the decoded content of one structure.
type Values struct {
	Uints map[string]uint64
	Blobs map[string][]byte
}

// Decode extracts every field of the layout from buf.
func (l *Layout) Decode(buf []byte) (Values, error) {
	if len(buf) < l.size {
		return Values{}, fmt.Errorf("%s: need %d bytes, have %d", l.name, l.size, len(buf))
	}
	vals := Values{Uints: make(map[string]uint64), Blobs: make(map[string][]byte)}
	for _, f := range l.fields {
		if f.Kind == KindBytes {
			vals.Blobs[f.Name] = append([]byte(nil), buf[f.Offset:f.Offset+f.span()]...)
			continue
		}
		vals.Uints[f.Name] = getUint(buf, f)
	}
	return vals, nil
}

// Encode writes vals into buf, which must hold at least Size bytes. Fields
// absent from vals are left untouched.
func (l *Layout) Encode(vals Values, buf []byte) error {
	if len(buf) < l.size {
		return fmt.Errorf("%s: need %d bytes, have %d", l.name, l.size, len(buf))
	}
	for _, f := range l.fields {
		if f.Kind == KindBytes {
			if blob, ok := vals.Blobs[f.Name]; ok {
				if len(blob) != f.span() {
					return fmt.Errorf("%s.%s: blob has %d bytes, want %d", l.name, f.Name, len(blob), f.span())
				}
				copy(buf[f.Offset:], blob)
			}
			continue
		}
		if v, ok := vals.Uints[f.Name]; ok {
			if v&^f.mask() != 0 {
				return fmt.Errorf("%s.%s: value %d overflows %d bits", l.name, f.Name, v, f.Width)
			}
			putUint(buf, f, v)
		}
	}
	return nil
}

// CheckCoverage reports gaps or overlaps between fields. A layout without
// either round-trips every buffer bit for bit.
func (l *Layout) CheckCoverage() error {
	type span struct {
		start, end int
		name       string
	}
	spans := make([]span, 0, len(l.fields))
	for _, f := range l.fields {
		s, e := f.bitRange()
		spans = append(spans, span{s, e, f.Name})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			return fmt.Errorf("%s: bits %d-%d not covered (before %s)", l.name, pos, s.start-1, s.name)
		}
		if s.start < pos {
			return fmt.Errorf("%s: field %s overlaps at bit %d", l.name, s.name, s.start)
		}
		pos = s.end
	}
	if pos != l.size*8 {
		return fmt.Errorf("%s: bits %d-%d not covered", l.name, pos, l.size*8-1)
	}
	return nil
}

func getUint(buf []byte, f Field) uint64 {
	n := f.span()
	if f.Offset+n > len(buf) {
		return 0
	}
	var w uint64
	for _, b := range buf[f.Offset : f.Offset+n] {
		w = w<<8 | uint64(b)
	}
	return (w >> f.Bit) & f.mask()
}

func putUint(buf []byte, f Field, v uint64) {
	n := f.span()
	if f.Offset+n > len(buf) {
		return
	}
	var w uint64
	for _, b := range buf[f.Offset : f.Offset+n] {
		w = w<<8 | uint64(b)
	}
	w &^= f.mask() << f.Bit
	w |= (v & f.mask()) << f.Bit
	for i := n - 1; i >= 0; i-- {
		buf[f.Offset+i] = byte(w)
		w >>= 8
	}
}

package media

import "sort"

// bytesPerKB converts drive speed units to bytes per second.
const bytesPerKB = 1000

// SpeedSet holds read and write speeds in KB/s as reported by the drive.
// After a probe both lists are sorted fastest first.
type SpeedSet struct {
	Read  []int `json:"read_kbps,omitempty" yaml:"read_kbps,omitempty"`
	Write []int `json:"write_kbps,omitempty" yaml:"write_kbps,omitempty"`
}

// Sort orders both lists descending and drops zero entries.
func (s *SpeedSet) Sort() {
	s.Read = sortDescending(s.Read)
	s.Write = sortDescending(s.Write)
}

func sortDescending(v []int) []int {
	out := v[:0]
	for _, x := range v {
		if x > 0 {
			out = append(out, x)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s SpeedSet) clone() SpeedSet {
	return SpeedSet{
		Read:  append([]int(nil), s.Read...),
		Write: append([]int(nil), s.Write...),
	}
}

// WriteCaps are the write modes found while probing. Each value is best
// effort: absence of a feature in one command is not conclusive.
type WriteCaps struct {
	SAO      bool `json:"sao" yaml:"sao"`
	TAO      bool `json:"tao" yaml:"tao"`
	DummySAO bool `json:"dummy_sao" yaml:"dummy_sao"`
	DummyTAO bool `json:"dummy_tao" yaml:"dummy_tao"`
	BurnFree bool `json:"burnfree" yaml:"burnfree"`
	Blank    bool `json:"blank" yaml:"blank"`
}

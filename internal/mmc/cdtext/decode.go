package cdtext

import (
	"bytes"
	"errors"
	"sort"
)

// ErrNoText is returned when the pack area holds no text packs.
var ErrNoText = errors.New("cd-text: no text packs")

// Entry is the text attached to the album (track 0) or one track.
type Entry struct {
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Performer  string `json:"performer,omitempty" yaml:"performer,omitempty"`
	Songwriter string `json:"songwriter,omitempty" yaml:"songwriter,omitempty"`
	Composer   string `json:"composer,omitempty" yaml:"composer,omitempty"`
	Arranger   string `json:"arranger,omitempty" yaml:"arranger,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
	// Code is the UPC/EAN for the album and the ISRC for tracks.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
}

func (e *Entry) set(t PackType, v string) {
	switch t {
	case PackTitle:
		e.Title = v
	case PackPerformer:
		e.Performer = v
	case PackSongwriter:
		e.Songwriter = v
	case PackComposer:
		e.Composer = v
	case PackArranger:
		e.Arranger = v
	case PackMessage:
		e.Message = v
	case PackCode:
		e.Code = v
	}
}

// Block is one language block of CD-TEXT.
type Block struct {
	Number     int           `json:"number" yaml:"number"`
	Language   uint8         `json:"language" yaml:"language"`
	Charset    Charset       `json:"charset" yaml:"charset"`
	FirstTrack int           `json:"first_track" yaml:"first_track"`
	LastTrack  int           `json:"last_track" yaml:"last_track"`
	Album      Entry         `json:"album" yaml:"album"`
	Tracks     map[int]Entry `json:"tracks,omitempty" yaml:"tracks,omitempty"`
	DiscID     string        `json:"disc_id,omitempty" yaml:"disc_id,omitempty"`
	GenreCode  uint16        `json:"genre_code,omitempty" yaml:"genre_code,omitempty"`
	Genre      string        `json:"genre,omitempty" yaml:"genre,omitempty"`
}

// Text is the decoded CD-TEXT of a disc.
type Text struct {
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Title returns the album title of the first block that has one.
func (t *Text) Title() string {
	if t == nil {
		return ""
	}
	for _, b := range t.Blocks {
		if b.Album.Title != "" {
			return b.Album.Title
		}
	}
	return ""
}

var textTypes = []PackType{PackTitle, PackPerformer, PackSongwriter, PackComposer, PackArranger, PackMessage, PackCode}

// Decode parses a raw pack area (without the 4 byte READ TOC header).
func Decode(raw []byte) (*Text, error) {
	packs, err := ParsePacks(raw)
	if err != nil {
		return nil, err
	}

	byBlock := make(map[int][]Pack)
	for _, p := range packs {
		if p.Type < PackTitle || p.Type > PackSizeInfo {
			continue
		}
		byBlock[p.Block] = append(byBlock[p.Block], p)
	}

	numbers := make([]int, 0, len(byBlock))
	for n := range byBlock {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	out := &Text{}
	for _, n := range numbers {
		block, ok := decodeBlock(n, byBlock[n])
		if ok {
			out.Blocks = append(out.Blocks, block)
		}
	}
	if len(out.Blocks) == 0 {
		return nil, ErrNoText
	}
	return out, nil
}

func decodeBlock(number int, packs []Pack) (Block, bool) {
	sort.SliceStable(packs, func(i, j int) bool { return packs[i].Sequence < packs[j].Sequence })

	block := Block{Number: number, Charset: CharsetASCII, Tracks: make(map[int]Entry)}
	if info := collect(packs, PackSizeInfo); len(info) >= 4 {
		block.Charset = Charset(info[0])
		block.FirstTrack = int(info[1])
		block.LastTrack = int(info[2])
		if len(info) > 28+number {
			block.Language = info[28+number]
		}
	}

	found := false
	for _, typ := range textTypes {
		first, dbcc, ok := firstPack(packs, typ)
		if !ok {
			continue
		}
		found = true
		strs := trimTrailingEmpty(split(collect(packs, typ), dbcc))
		prev := ""
		for i, s := range strs {
			track := first + i
			if block.LastTrack > 0 && track > block.LastTrack {
				break
			}
			var v string
			if isTab(s, dbcc) {
				v = prev
			} else {
				v = toUTF8(block.Charset, s)
			}
			prev = v
			if track == 0 {
				block.Album.set(typ, v)
				continue
			}
			e := block.Tracks[track]
			e.set(typ, v)
			block.Tracks[track] = e
		}
	}

	if id := collect(packs, PackDiscID); len(id) > 0 {
		found = true
		if strs := split(id, false); len(strs) > 0 {
			block.DiscID = asciiOnly(strs[0])
		}
	}
	if genre := collect(packs, PackGenre); len(genre) >= 2 {
		found = true
		block.GenreCode = uint16(genre[0])<<8 | uint16(genre[1])
		if strs := split(genre[2:], false); len(strs) > 0 {
			block.Genre = asciiOnly(strs[0])
		}
	}
	if len(block.Tracks) == 0 {
		block.Tracks = nil
	}
	return block, found
}

func firstPack(packs []Pack, typ PackType) (track int, dbcc bool, ok bool) {
	for _, p := range packs {
		if p.Type == typ && !p.Extension {
			return p.Track, p.DBCC, true
		}
	}
	return 0, false, false
}

// collect concatenates the payloads of every pack of one type in sequence
// order.
func collect(packs []Pack, typ PackType) []byte {
	var buf []byte
	for _, p := range packs {
		if p.Type == typ && !p.Extension {
			buf = append(buf, p.Text...)
		}
	}
	return buf
}

// split cuts a payload stream at NUL terminators (a NUL pair for double
// byte text). Padding after the last terminator is dropped.
func split(buf []byte, dbcc bool) [][]byte {
	var out [][]byte
	if !dbcc {
		for {
			i := bytes.IndexByte(buf, 0)
			if i < 0 {
				break
			}
			out = append(out, buf[:i])
			buf = buf[i+1:]
		}
		return out
	}
	start := 0
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] == 0 && buf[i+1] == 0 {
			out = append(out, buf[start:i])
			start = i + 2
		}
	}
	return out
}

func trimTrailingEmpty(strs [][]byte) [][]byte {
	for len(strs) > 0 && len(strs[len(strs)-1]) == 0 {
		strs = strs[:len(strs)-1]
	}
	return strs
}

// isTab reports the "same as previous track" marker.
func isTab(s []byte, dbcc bool) bool {
	if dbcc {
		return len(s) == 2 && s[0] == '\t' && s[1] == '\t'
	}
	return len(s) == 1 && s[0] == '\t'
}

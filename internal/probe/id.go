package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"discprobe/internal/media"
)

// fingerprintLength is the number of hex digits kept from the digest.
const fingerprintLength = 16

// mediumID returns the disc identification number when the drive reports a
// valid one and a layout fingerprint otherwise. DVD media IDs would need READ
// DISC STRUCTURE, which is not issued, so DVD+-R media fall back to the
// fingerprint unless disc info carries an ID.
func (r *run) mediumID() string {
	if r.disc != nil && r.disc.DiscIDValid {
		return fmt.Sprintf("%08X", r.disc.DiscID)
	}
	return fingerprint(r.b.Flags(), r.b.Tracks(), r.b.VolumeLabel())
}

// fingerprint hashes what identifies written content. Free space is left out
// so appending to a disc keeps the identity of its existing sessions stable.
func fingerprint(flags media.Flags, tracks []media.Track, label string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(flags.Format()), 16)))
	_, _ = h.Write([]byte{0})
	for _, t := range tracks {
		if t.IsLeadout() {
			continue
		}
		_, _ = fmt.Fprintf(h, "%d:%d:%d:%d", t.Number, t.Type, t.Start, t.Blocks)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte(label))
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLength]
}

package drive

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"discprobe/internal/media"
	"discprobe/internal/mmc"
	"discprobe/internal/scsi"
)

// Drive is one optical drive and the medium currently known to be in it.
type Drive struct {
	path string
	fake bool

	mu       sync.RWMutex
	identity *mmc.Identity
	medium   *media.Medium
}

// New returns the drive at device path.
func New(path string) *Drive {
	return &Drive{path: path}
}

// NewFake returns a drive standing for an image file. It has no device and
// is never probed.
func NewFake(name string) *Drive {
	return &Drive{path: name, fake: true}
}

// Path returns the device node.
func (d *Drive) Path() string { return d.path }

// IsFake reports whether d is an image file drive.
func (d *Drive) IsFake() bool { return d.fake }

// Identify reads the INQUIRY identity through t and keeps it.
func (d *Drive) Identify(ctx context.Context, t scsi.Transport) (*mmc.Identity, error) {
	id, err := mmc.Inquiry(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("identify %s: %w", d.path, err)
	}
	if id.DeviceType != mmc.DeviceTypeCDROM {
		return nil, fmt.Errorf("identify %s: peripheral type 0x%02x: %w", d.path, id.DeviceType, ErrNotOptical)
	}
	d.mu.Lock()
	d.identity = id
	d.mu.Unlock()
	return id, nil
}

// Identity returns the INQUIRY data read by Identify, if any.
func (d *Drive) Identity() (mmc.Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.identity == nil {
		return mmc.Identity{}, false
	}
	return *d.identity, true
}

// DisplayName is "vendor product" when known and the device path otherwise.
func (d *Drive) DisplayName() string {
	if d.fake {
		return "Image File"
	}
	id, ok := d.Identity()
	if !ok {
		return d.path
	}
	name := strings.TrimSpace(id.Vendor + " " + id.Product)
	if name == "" {
		return d.path
	}
	return name
}

// Medium returns the medium of the last finished probe.
func (d *Drive) Medium() *media.Medium {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.medium
}

// SetMedium records a finished probe.
func (d *Drive) SetMedium(m *media.Medium) {
	d.mu.Lock()
	d.medium = m
	d.mu.Unlock()
}

// ClearMedium forgets the medium after an ejection.
func (d *Drive) ClearMedium() {
	d.SetMedium(nil)
}

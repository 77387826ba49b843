package drive

import "errors"

// ErrNotOptical is returned for devices that are not CD/DVD/BD drives.
var ErrNotOptical = errors.New("not an optical drive")

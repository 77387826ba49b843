package mmc

import "errors"

// ErrFeatureAbsent is returned when GET CONFIGURATION succeeds but does not
// list the requested feature.
var ErrFeatureAbsent = errors.New("feature not reported")

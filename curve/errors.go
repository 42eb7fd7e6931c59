package curve

import "errors"

// ErrInvalidArgument is returned for malformed knot data: empty or
// mismatched arrays, non-finite values, or times that are not strictly
// increasing and positive.
var ErrInvalidArgument = errors.New("curve: invalid argument")

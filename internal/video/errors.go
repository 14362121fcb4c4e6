package video

import "errors"

// ErrStitch is returned when the rendered parts cannot be joined into a
// single output file.
var ErrStitch = errors.New("video stitching failed")

package triangular

import "errors"

// ErrMalformedTriangular reports a triangular that cannot be scored: a missing
// team, a team playing itself, or results that contradict their scores.
var ErrMalformedTriangular = errors.New("malformed triangular")

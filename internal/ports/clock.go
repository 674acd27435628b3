package ports

import "time"

type Clock interface {
	Now() time.Time
}

// RandomSource yields uniform values in [0,1). Implementations must be safe
// for concurrent use.
type RandomSource interface {
	Float64() float64
}

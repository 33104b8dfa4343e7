package clock

import "time"

// Clock abstracts "now" so settlement-delay comparisons are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

package confidence

import "time"

// SetNow overrides the clock used for year plausibility.
func (c *Calculator) SetNow(now func() time.Time) {
	c.now = now
}

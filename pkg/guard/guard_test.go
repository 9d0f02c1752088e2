package guard

import (
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestWithinBound(t *testing.T) {
	now := time.Now()
	assert.Check(t, WithinBound(now, time.Minute))
	assert.Check(t, !WithinBound(now.Add(-2*time.Minute), time.Minute))
	// exactly at the bound counts as exceeded
	assert.Check(t, !WithinBound(now.Add(-time.Hour), time.Hour))
	assert.Check(t, !WithinBound(now, 0))
}

func TestFuncIsConsultedEveryCall(t *testing.T) {
	calls := 0
	g := Func(func(time.Time, time.Duration) bool {
		calls++
		return calls < 3
	})
	start := time.Now()
	assert.Check(t, g.WithinBound(start, time.Hour))
	assert.Check(t, g.WithinBound(start, time.Hour))
	assert.Check(t, !g.WithinBound(start, time.Hour))
	assert.Equal(t, calls, 3)
}

func TestWall(t *testing.T) {
	assert.Check(t, Wall.WithinBound(time.Now(), time.Second))
}

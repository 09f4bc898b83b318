package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestFixedWindow_AllowsUpToLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := NewFixedWindow(10, 5*time.Second, clock.Now)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("u1"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("u1"), "11th request in window is denied")
	assert.True(t, l.Allow("u2"), "subjects are independent")
}

func TestFixedWindow_DenialDoesNotExtendWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := NewFixedWindow(2, 5*time.Second, clock.Now)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))

	clock.Advance(4 * time.Second)
	assert.False(t, l.Allow("u1"))

	// 窗口从第一次请求算起，拒绝不会重新计时
	clock.Advance(time.Second)
	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestFixedWindow_Reset(t *testing.T) {
	l := NewFixedWindow(1, time.Minute, nil)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.Equal(t, 1, l.Len())

	l.Reset()
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Allow("u1"))
}

func TestNewFixedWindow_PanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() { NewFixedWindow(0, time.Second, nil) })
	assert.Panics(t, func() { NewFixedWindow(1, 0, nil) })
}

// Package ratelimit 提供房间内使用的固定窗口限流器。
package ratelimit

import "time"

type window struct {
	start time.Time
	count int
}

// FixedWindow 按 subject (通常是 userId) 计数的固定窗口限流器。
// 不加锁：只在房间 actor 的 goroutine 中调用。
type FixedWindow struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

// NewFixedWindow 创建限流器。now 为 nil 时使用 time.Now。
func NewFixedWindow(limit int, size time.Duration, now func() time.Time) *FixedWindow {
	if limit <= 0 {
		panic("ratelimit: limit must be positive")
	}
	if size <= 0 {
		panic("ratelimit: window must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &FixedWindow{
		limit:   limit,
		window:  size,
		now:     now,
		windows: make(map[string]*window),
	}
}

// Allow 判断 subject 本次请求是否放行。
// 窗口在下一次调用时惰性翻转；被拒绝的请求不会延长窗口。
func (l *FixedWindow) Allow(subject string) bool {
	now := l.now()
	w, ok := l.windows[subject]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[subject] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset 清空所有计数
func (l *FixedWindow) Reset() {
	l.windows = make(map[string]*window)
}

// Len 返回当前跟踪的 subject 数量
func (l *FixedWindow) Len() int {
	return len(l.windows)
}

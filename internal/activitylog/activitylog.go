// Package activitylog is a scroll-aware ring buffer of activity-feed
// entries shown to an operator — the only ring buffer in the codebase that
// carries viewport state alongside its eviction policy.
package activitylog

import "time"

// EventType is one of the fixed, enumerated activity-log event kinds.
type EventType int

const (
	WorkerSpawn EventType = iota
	WorkerStop
	WorkerTransition
	TaskPickup
	TaskComplete
	TaskFailed
	ApiCall
	HealthCheck
	Info
	Warning
	Error
)

// Color is the fixed display color for an EventType.
type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorCyan   Color = "cyan"
	ColorGray   Color = "gray"
)

// colorOf is the fixed event-type -> color table.
var colorOf = map[EventType]Color{
	WorkerSpawn:      ColorGreen,
	WorkerStop:       ColorGray,
	WorkerTransition: ColorBlue,
	TaskPickup:       ColorCyan,
	TaskComplete:     ColorGreen,
	TaskFailed:       ColorRed,
	ApiCall:          ColorBlue,
	HealthCheck:      ColorCyan,
	Info:             ColorGray,
	Warning:          ColorYellow,
	Error:            ColorRed,
}

// Color returns the fixed color for t.
func (t EventType) Color() Color {
	return colorOf[t]
}

// Entry is one activity-log line.
type Entry struct {
	Type      EventType
	WorkerID  string
	Message   string
	Timestamp time.Time
}

const defaultCapacity = 100

// Log is a fixed-capacity FIFO ring with an operator-controlled scroll
// viewport. While AutoScrollPaused, pushing a new entry increments the
// scroll offset by one so whatever the operator is looking at does not
// shift under them.
type Log struct {
	capacity         int
	entries          []Entry
	scrollOffset     int
	autoScrollPaused bool
	totalAdded       int
	droppedCount     int
}

// New creates a Log with the default capacity (100).
func New() *Log {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity creates a Log with a caller-chosen capacity.
func NewWithCapacity(capacity int) *Log {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

// Push appends entry, evicting the oldest if at capacity.
func (l *Log) Push(entry Entry) {
	l.totalAdded++
	if len(l.entries) >= l.capacity {
		l.entries = append(l.entries[1:], entry)
		l.droppedCount++
	} else {
		l.entries = append(l.entries, entry)
	}
	if l.autoScrollPaused {
		l.scrollOffset++
	}
}

// TotalAdded is the lifetime count of Push calls, including evicted entries.
func (l *Log) TotalAdded() int { return l.totalAdded }

// DroppedCount is the number of entries evicted to stay within capacity.
func (l *Log) DroppedCount() int { return l.droppedCount }

// ScrollUp moves the viewport back by n entries (further from the newest),
// pausing auto-scroll.
func (l *Log) ScrollUp(n int) {
	l.autoScrollPaused = true
	l.scrollOffset += n
	if max := len(l.entries); l.scrollOffset > max {
		l.scrollOffset = max
	}
}

// ScrollDown moves the viewport forward by n entries (toward the newest).
func (l *Log) ScrollDown(n int) {
	l.scrollOffset -= n
	if l.scrollOffset <= 0 {
		l.scrollOffset = 0
		l.autoScrollPaused = false
	}
}

// ScrollToTop jumps to the oldest entry, pausing auto-scroll.
func (l *Log) ScrollToTop() {
	l.autoScrollPaused = true
	l.scrollOffset = len(l.entries)
}

// ScrollToBottom jumps to the newest entry and resumes auto-scroll.
func (l *Log) ScrollToBottom() {
	l.scrollOffset = 0
	l.autoScrollPaused = false
}

// AutoScrollPaused reports whether the viewport is currently pinned away
// from the newest entry.
func (l *Log) AutoScrollPaused() bool {
	return l.autoScrollPaused
}

// VisibleEntries returns up to maxLines entries ending at
// len(entries) - scroll_offset.
func (l *Log) VisibleEntries(maxLines int) []Entry {
	end := len(l.entries) - l.scrollOffset
	if end < 0 {
		end = 0
	}
	if end > len(l.entries) {
		end = len(l.entries)
	}
	start := end - maxLines
	if start < 0 {
		start = 0
	}
	out := make([]Entry, end-start)
	copy(out, l.entries[start:end])
	return out
}

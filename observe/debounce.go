package observe

import "time"

// DebounceConfig controls event batching ahead of classification.
type DebounceConfig struct {
	// Window is the debounce time. Default: 250ms.
	Window time.Duration
	// MaxBuffer flushes immediately when this many events accumulate.
	// Default: 1000.
	MaxBuffer int
}

func (dc *DebounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 250 * time.Millisecond
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 1000
	}
}

// Debouncer collects change events and hands them to the flush function
// when the window expires or the buffer fills.
type Debouncer struct {
	cfg     DebounceConfig
	events  []ChangeEvent
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func([]ChangeEvent)
}

// NewDebouncer creates a Debouncer with the given flush callback.
func NewDebouncer(cfg DebounceConfig, flushFn func([]ChangeEvent)) *Debouncer {
	cfg.defaults()
	return &Debouncer{
		cfg:     cfg,
		events:  make([]ChangeEvent, 0, cfg.MaxBuffer),
		flushFn: flushFn,
	}
}

// Add pushes an event into the buffer. Returns true when the buffer filled
// and an immediate flush was triggered.
func (d *Debouncer) Add(ev ChangeEvent) bool {
	d.events = append(d.events, ev)

	if len(d.events) >= d.cfg.MaxBuffer {
		d.Flush()
		return true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// TimerC returns the channel that fires when the debounce window expires.
// Nil while the buffer is empty.
func (d *Debouncer) TimerC() <-chan time.Time {
	return d.timerCh
}

// Flush compacts and emits the buffered events, then resets.
func (d *Debouncer) Flush() {
	if len(d.events) == 0 {
		return
	}

	compacted := compact(d.events)
	d.flushFn(compacted)

	d.events = d.events[:0]
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}

// compact collapses runs of changes that supersede each other:
//   - consecutive attribute changes on the same (target, name) keep the
//     last value with the old value of the first
//   - consecutive character-data changes on the same (target, text node)
//     keep the last
//   - child-list changes are structurally significant and never collapse
func compact(events []ChangeEvent) []ChangeEvent {
	if len(events) <= 1 {
		return events
	}

	result := make([]ChangeEvent, 0, len(events))

	for i := 0; i < len(events); i++ {
		ev := events[i]

		switch ev.Kind {
		case KindAttribute:
			firstOld := ev.OldValue
			j := i + 1
			for j < len(events) &&
				events[j].Kind == KindAttribute &&
				events[j].Target == ev.Target &&
				events[j].Name == ev.Name {
				ev = events[j]
				j++
			}
			ev.OldValue = firstOld
			result = append(result, ev)
			i = j - 1

		case KindCharacterData:
			firstOld := ev.OldValue
			j := i + 1
			for j < len(events) &&
				events[j].Kind == KindCharacterData &&
				events[j].Target == ev.Target &&
				events[j].Index == ev.Index {
				ev = events[j]
				j++
			}
			ev.OldValue = firstOld
			result = append(result, ev)
			i = j - 1

		default:
			result = append(result, ev)
		}
	}

	return result
}

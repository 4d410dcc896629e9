package observe

import (
	"sync"
	"time"

	"github.com/osawyer/domscope/dom"
)

// Local is an in-process Source backed directly by an Arena. Mutations are
// applied through its methods and the corresponding events fan out to all
// matching subscriptions. It backs tests, offline replay of recorded
// mutation logs, and the HTTP-driven analysis path where no browser is
// attached.
type Local struct {
	arena *dom.Arena

	mu     sync.Mutex
	subs   []*localSub
	closed bool
}

// NewLocal creates a Local source over an arena.
func NewLocal(a *dom.Arena) *Local {
	return &Local{arena: a}
}

// Arena returns the arena this source mutates.
func (l *Local) Arena() *dom.Arena { return l.arena }

type localSub struct {
	src   *Local
	scope dom.Handle
	kinds map[ChangeKind]bool
	ch    chan ChangeEvent
	once  sync.Once
}

func (s *localSub) Events() <-chan ChangeEvent { return s.ch }

func (s *localSub) Unsubscribe() {
	s.once.Do(func() {
		s.src.drop(s)
		close(s.ch)
	})
}

// Subscribe implements Source.
func (l *Local) Subscribe(scope dom.Handle, kinds ...ChangeKind) Subscription {
	sub := &localSub{
		src:   l,
		scope: scope,
		kinds: make(map[ChangeKind]bool, len(kinds)),
		ch:    make(chan ChangeEvent, 256),
	}
	for _, k := range kinds {
		sub.kinds[k] = true
	}
	l.mu.Lock()
	l.subs = append(l.subs, sub)
	l.mu.Unlock()
	return sub
}

// Close unsubscribes every stream.
func (l *Local) Close() {
	l.mu.Lock()
	subs := append([]*localSub(nil), l.subs...)
	l.closed = true
	l.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (l *Local) drop(sub *localSub) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

// SetAttr applies an attribute change and emits it.
func (l *Local) SetAttr(h dom.Handle, name, value string) {
	old := l.arena.SetAttr(h, name, value)
	l.emit(ChangeEvent{
		Kind: KindAttribute, Target: h,
		Name: name, Value: value, OldValue: old,
		At: time.Now(),
	})
}

// RemoveAttr applies an attribute removal and emits it.
func (l *Local) RemoveAttr(h dom.Handle, name string) {
	old := l.arena.RemoveAttr(h, name)
	l.emit(ChangeEvent{
		Kind: KindAttribute, Target: h,
		Name: name, OldValue: old,
		At: time.Now(),
	})
}

// SetText replaces an element's text content and emits a character-data
// change.
func (l *Local) SetText(h dom.Handle, text string) {
	old := l.arena.SetText(h, text)
	l.emit(ChangeEvent{
		Kind: KindCharacterData, Target: h,
		Value: text, OldValue: old,
		At: time.Now(),
	})
}

// SpliceText updates the single text node at child index idx under parent
// and emits a character-data change. Unlike SetText, element children of
// parent keep their nodes and handles.
func (l *Local) SpliceText(parent dom.Handle, idx int, text string) {
	old, ok := l.arena.SetTextNode(parent, idx, text)
	if !ok {
		return
	}
	l.emit(ChangeEvent{
		Kind: KindCharacterData, Target: parent, Index: idx,
		Value: text, OldValue: old,
		At: time.Now(),
	})
}

// InsertHTML appends a parsed fragment under parent and emits a child-list
// change listing the inserted elements.
func (l *Local) InsertHTML(parent dom.Handle, fragment string) ([]dom.Handle, error) {
	added, err := l.arena.InsertHTML(parent, fragment)
	if err != nil {
		return nil, err
	}
	l.emit(ChangeEvent{
		Kind: KindChildList, Target: parent,
		Added: added,
		At:    time.Now(),
	})
	return added, nil
}

// Remove detaches a subtree and emits a child-list change on its parent.
func (l *Local) Remove(h dom.Handle) {
	parent := l.arena.Parent(h)
	l.arena.Remove(h)
	l.emit(ChangeEvent{
		Kind: KindChildList, Target: parent,
		Removed: []dom.Handle{h},
		At:      time.Now(),
	})
}

// emit fans an event out to matching subscriptions. A full subscription
// channel drops the event rather than blocking the mutator.
func (l *Local) emit(ev ChangeEvent) {
	l.mu.Lock()
	subs := append([]*localSub(nil), l.subs...)
	l.mu.Unlock()

	for _, s := range subs {
		if len(s.kinds) > 0 && !s.kinds[ev.Kind] {
			continue
		}
		if s.scope != 0 && !l.inScope(s.scope, ev.Target) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}

func (l *Local) inScope(scope, h dom.Handle) bool {
	for cur := h; cur != 0; cur = l.arena.Parent(cur) {
		if cur == scope {
			return true
		}
	}
	return false
}

// Package observe defines the change-stream capability consumed by the
// trackers. Any runtime able to report DOM mutations (a live browser over
// CDP, or the in-process Local source) implements Source; tracker logic
// depends only on this interface.
package observe

import (
	"time"

	"github.com/osawyer/domscope/dom"
)

// ChangeKind is the category of a DOM change.
type ChangeKind string

const (
	KindAttribute     ChangeKind = "attribute"
	KindChildList     ChangeKind = "childlist"
	KindCharacterData ChangeKind = "chardata"
)

// ChangeEvent is one observed DOM change, addressed by arena handle.
type ChangeEvent struct {
	Kind   ChangeKind
	Target dom.Handle

	// Attribute changes.
	Name     string
	Value    string
	OldValue string

	// Character-data changes: position of the text node in the target's
	// child list, counted the way DOM childNodes counts.
	Index int

	// Child-list changes.
	Added   []dom.Handle
	Removed []dom.Handle

	At time.Time
}

// Subscription is one registered event stream. Events are delivered on a
// buffered channel; a full channel drops the event (mutation-observer
// semantics: batched, not lossless).
type Subscription interface {
	Events() <-chan ChangeEvent
	Unsubscribe()
}

// Source produces change events for a document.
type Source interface {
	// Subscribe registers a stream scoped to the subtree of scope
	// (0 = whole document), filtered to the given kinds. No kinds means
	// all kinds.
	Subscribe(scope dom.Handle, kinds ...ChangeKind) Subscription
}

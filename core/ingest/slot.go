package ingest

import "sync"

// Slot keeps the single most recent upload. Writes overwrite; there is no
// history.
type Slot struct {
	mu  sync.RWMutex
	doc Document
	set bool
}

// NewSlot returns an empty slot.
func NewSlot() *Slot { return &Slot{} }

// Store replaces the current document.
func (s *Slot) Store(d Document) {
	s.mu.Lock()
	s.doc = d
	s.set = true
	s.mu.Unlock()
}

// Latest returns the stored document. ok is false when nothing usable has been
// uploaded yet.
func (s *Slot) Latest() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set || !s.doc.HasData() {
		return Document{}, false
	}
	return s.doc, true
}

// Reset empties the slot.
func (s *Slot) Reset() {
	s.mu.Lock()
	s.doc = Document{}
	s.set = false
	s.mu.Unlock()
}

// Receiver accepts decoded uploads from a transport such as HTTP or MQTT.
type Receiver interface {
	Receive(transport string, d Document)
}

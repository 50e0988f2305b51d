package model

import "time"

// Item is the domain model for a todo entry.
// ID and Date are assigned once at creation; Done is the only field toggled afterwards.
type Item struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Content string    `json:"content"`
	Done    bool      `json:"done"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Content *string
	Done    *bool
}

// Apply returns a copy of it with the set fields replaced.
func (p Patch) Apply(it Item) Item {
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Done != nil {
		it.Done = *p.Done
	}
	return it
}

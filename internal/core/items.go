package core

import "time"

// Channel identifies a configured source of items. The handle is the
// provider-facing identity (channel id, handle, or uploads playlist id);
// Name is only used for logs and email subjects.
type Channel struct {
	Handle string `json:"handle" yaml:"handle"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// DisplayName returns the configured name, falling back to the handle.
func (c Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Handle
}

// Item is a single deliverable unit as reported by a lister. Duration is
// zero when the provider did not report one.
type Item struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title" yaml:"title"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// URL returns the canonical watch URL for the item.
func (i Item) URL() string {
	return "https://www.youtube.com/watch?v=" + i.ID
}

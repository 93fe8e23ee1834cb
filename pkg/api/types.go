package api

import "github.com/shoshosho1210/coinrader/pkg/track"

// PathNode is one element of the serialized ancestor chain the SDK sends,
// deepest element first.
type PathNode struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// ClickRequest is the collect payload posted by the page SDK for one
// click.
type ClickRequest struct {
	// EventID is an SDK-generated idempotency token; retried submissions
	// carry the same id and insert at most once.
	EventID string `json:"event_id,omitempty"`

	// ClientID identifies the browser instance (GA client id).
	ClientID string `json:"client_id,omitempty"`

	// PageURL is the page the click happened on.
	PageURL string `json:"page_url"`

	// Path is the clicked element and its ancestors, deepest first.
	Path []PathNode `json:"path"`

	// Button is the pointer button identifier.
	Button int `json:"button"`

	// Modifier key state at click time.
	Alt   bool `json:"alt,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
	Shift bool `json:"shift,omitempty"`
}

// Element rebuilds the serialized chain as linked track elements and
// returns the deepest one, or nil for an empty path.
func (r *ClickRequest) Element() *track.Element {
	var parent *track.Element
	for i := len(r.Path) - 1; i >= 0; i-- {
		parent = &track.Element{
			Tag:    r.Path[i].Tag,
			Attrs:  r.Path[i].Attrs,
			Parent: parent,
		}
	}
	return parent
}

// Collect response statuses.
const (
	StatusRecorded = "recorded"
	StatusIgnored  = "ignored"
)

// ClickResponse tells the SDK what happened with one click.
type ClickResponse struct {
	// Status is recorded or ignored.
	Status string `json:"status"`

	// Category is the classification bucket.
	Category string `json:"category"`

	// Event is the emitted analytics event name, empty when ignored.
	Event string `json:"event,omitempty"`

	// Held reports that the SDK deferred navigation for this click and
	// the response was held until the analytics call settled.
	Held bool `json:"held"`

	// Resume tells the SDK to navigate now; Href is the destination.
	// Only set for held clicks.
	Resume bool   `json:"resume,omitempty"`
	Href   string `json:"href,omitempty"`
}

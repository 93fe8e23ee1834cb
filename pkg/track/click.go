package track

import "strings"

// Mouse button identifiers as delivered by pointer events.
const (
	ButtonMain   = 0
	ButtonMiddle = 1
	ButtonRight  = 2
)

// Click is one pointer event captured on the page. It exists only for the
// duration of classification; nothing about a click is shared across clicks.
type Click struct {
	// PageURL is the full URL of the page the click happened on.
	PageURL string

	// Target is the deepest element under the pointer.
	Target *Element

	// Button is the mouse button identifier (0 main, 1 middle, 2 right).
	Button int

	// Modifier key state at the time of the click.
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool

	// ClientID identifies the browser instance for analytics attribution.
	ClientID string

	// EventID is the SDK-assigned idempotency token for this click, used
	// upstream to guard against duplicate submissions. Optional.
	EventID string

	// Resume releases a navigation the classifier chose to hold. The
	// embedding layer supplies it; the classifier guarantees it is called
	// at most once, and always within the completion timeout. May be nil
	// when the embedding layer never defers navigation.
	Resume func()
}

// NewTabIntent reports whether the click would open the link somewhere
// other than the current tab: an explicit blank target frame, a middle
// button press, or a modifier key the browser maps to new-tab/new-window
// behavior.
func (c *Click) NewTabIntent(anchor *Element) bool {
	if target, ok := anchor.Attr("target"); ok && strings.EqualFold(target, "_blank") {
		return true
	}
	if c.Button == ButtonMiddle {
		return true
	}
	return c.Ctrl || c.Meta || c.Shift
}

package track

// Category is the classification bucket a click falls into.
type Category string

const (
	CategoryCTA       Category = "cta"
	CategoryAffiliate Category = "affiliate"
	CategoryOutbound  Category = "outbound"
	CategoryIgnored   Category = "ignored"
)

// Analytics event names emitted by the classifier.
const (
	EventCTAClick       = "cta_click"
	EventAffiliateClick = "affiliate_click"
	EventOutboundClick  = "outbound_click"
)

// Event is one analytics event: a name plus a flat parameter mapping.
// Parameter values are strings or numbers, matching what the downstream
// analytics transport accepts.
type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// NewEvent creates an event with an empty parameter mapping.
func NewEvent(name string) *Event {
	return &Event{Name: name, Params: make(map[string]any)}
}

// Set adds a parameter, skipping empty string values so the emitted
// payload carries only populated fields.
func (e *Event) Set(key string, value any) *Event {
	if s, ok := value.(string); ok && s == "" {
		return e
	}
	e.Params[key] = value
	return e
}

// Param returns the string value of a parameter, or "" if absent or not
// a string.
func (e *Event) Param(key string) string {
	if e == nil || e.Params == nil {
		return ""
	}
	s, _ := e.Params[key].(string)
	return s
}

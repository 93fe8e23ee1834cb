package track

import "strings"

// Element is a lightweight view of a DOM node as reported by the page SDK.
// The SDK serializes the clicked node and its ancestor chain, so the
// classifier can resolve marker attributes without a live document.
type Element struct {
	Tag    string            `json:"tag"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Parent *Element          `json:"parent,omitempty"`
}

// Attr returns the attribute value for key and whether it was present.
// Keys are matched case-insensitively; HTML attribute names are not
// case-sensitive and SDK builds have not been consistent about casing.
func (e *Element) Attr(key string) (string, bool) {
	if e == nil || e.Attrs == nil {
		return "", false
	}
	if v, ok := e.Attrs[key]; ok {
		return v, true
	}
	for k, v := range e.Attrs {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// maxChainDepth caps ancestor walks so a malformed payload with a parent
// cycle cannot hang classification.
const maxChainDepth = 256

// Closest walks the ancestor chain (including the element itself) and
// returns the first element whose tag matches, or nil if none does.
// This mirrors DOM closest() for the serialized chain.
func (e *Element) Closest(tag string) *Element {
	n := 0
	for cur := e; cur != nil && n < maxChainDepth; cur = cur.Parent {
		if strings.EqualFold(cur.Tag, tag) {
			return cur
		}
		n++
	}
	return nil
}

// Depth returns the length of the ancestor chain, subject to the same cap
// as Closest.
func (e *Element) Depth() int {
	n := 0
	for cur := e; cur != nil && n < maxChainDepth; cur = cur.Parent {
		n++
	}
	return n
}

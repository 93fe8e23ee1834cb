package track

import "testing"

func TestElementClosest(t *testing.T) {
	a := &Element{Tag: "A", Attrs: map[string]string{"href": "https://coinrader.net/"}}
	div := &Element{Tag: "div", Parent: a}
	span := &Element{Tag: "span", Parent: div}

	t.Run("walks ancestors", func(t *testing.T) {
		if got := span.Closest("a"); got != a {
			t.Errorf("Expected the anchor ancestor, got %+v", got)
		}
	})

	t.Run("matches self", func(t *testing.T) {
		if got := a.Closest("a"); got != a {
			t.Errorf("Expected the element itself, got %+v", got)
		}
	})

	t.Run("tag match is case-insensitive", func(t *testing.T) {
		if got := span.Closest("A"); got != a {
			t.Errorf("Expected case-insensitive tag match, got %+v", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if got := span.Closest("button"); got != nil {
			t.Errorf("Expected nil for missing ancestor, got %+v", got)
		}
	})

	t.Run("nil element", func(t *testing.T) {
		var e *Element
		if got := e.Closest("a"); got != nil {
			t.Errorf("Expected nil for nil element, got %+v", got)
		}
	})
}

func TestElementAttr(t *testing.T) {
	el := &Element{
		Tag: "a",
		Attrs: map[string]string{
			"href":     "https://coinrader.net/",
			"DATA-AFF": "exchange_a",
		},
	}

	t.Run("exact key", func(t *testing.T) {
		v, ok := el.Attr("href")
		if !ok || v != "https://coinrader.net/" {
			t.Errorf("Expected href value, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("case-insensitive key", func(t *testing.T) {
		v, ok := el.Attr("data-aff")
		if !ok || v != "exchange_a" {
			t.Errorf("Expected data-aff value, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, ok := el.Attr("data-cta"); ok {
			t.Error("Expected missing attribute to report not present")
		}
	})

	t.Run("nil element", func(t *testing.T) {
		var e *Element
		if _, ok := e.Attr("href"); ok {
			t.Error("Expected nil element to report not present")
		}
	})
}

func TestElementDepthCapsCycles(t *testing.T) {
	a := &Element{Tag: "a"}
	b := &Element{Tag: "div", Parent: a}
	a.Parent = b // malformed payload

	if got := a.Depth(); got != 256 {
		t.Errorf("Expected depth walk to cap at 256, got %d", got)
	}
}

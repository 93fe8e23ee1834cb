package track

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// captureReporter records dispatched events and optionally signals
// completion synchronously.
type captureReporter struct {
	mu           sync.Mutex
	events       []*Event
	opts         []ReportOptions
	completeSync bool
}

func (r *captureReporter) Report(ctx context.Context, event *Event, opts ReportOptions) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.opts = append(r.opts, opts)
	done := opts.Done
	r.mu.Unlock()

	if r.completeSync && done != nil {
		done()
	}
}

func (r *captureReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *captureReporter) last() (*Event, ReportOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil, ReportOptions{}
	}
	return r.events[len(r.events)-1], r.opts[len(r.opts)-1]
}

func anchorEl(attrs map[string]string) *Element {
	return &Element{Tag: "a", Attrs: attrs}
}

func clickOn(el *Element) *Click {
	return &Click{
		PageURL:  "https://coinrader.net/",
		Target:   el,
		ClientID: "test-client",
	}
}

func TestHandleClickNonAnchor(t *testing.T) {
	reporter := &captureReporter{}
	classifier := NewClassifier(nil, reporter)

	div := &Element{Tag: "div"}
	span := &Element{Tag: "span", Parent: div}

	disp := classifier.HandleClick(context.Background(), clickOn(span))
	if disp.Category != CategoryIgnored {
		t.Errorf("Expected category ignored, got %s", disp.Category)
	}
	if disp.Event != nil {
		t.Error("Expected no event for a non-anchor click")
	}
	if reporter.count() != 0 {
		t.Errorf("Expected no reports, got %d", reporter.count())
	}
}

func TestHandleClickNestedTargetResolvesAnchor(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":    "https://coinrader.net/ranking",
		"data-ga": "home_ranking",
	})
	img := &Element{Tag: "img", Parent: a}

	disp := classifier.HandleClick(context.Background(), clickOn(img))
	if disp.Category != CategoryCTA {
		t.Errorf("Expected category cta, got %s", disp.Category)
	}
}

func TestHandleClickCTA(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":         "https://coinrader.net/news/today",
		"data-ga":      "news_today",
		"data-cta-pos": "hero",
		"data-partner": "self",
		"data-pr":      "1",
	})

	var resumed atomic.Int32
	click := clickOn(a)
	click.Resume = func() { resumed.Add(1) }

	disp := classifier.HandleClick(context.Background(), click)

	if disp.Category != CategoryCTA {
		t.Fatalf("Expected category cta, got %s", disp.Category)
	}
	if disp.Held {
		t.Error("Expected CTA click to never hold navigation")
	}
	if !disp.Reported {
		t.Error("Expected CTA click to be reported")
	}
	if reporter.count() != 1 {
		t.Fatalf("Expected exactly one report, got %d", reporter.count())
	}

	event, opts := reporter.last()
	if event.Name != EventCTAClick {
		t.Errorf("Expected event %s, got %s", EventCTAClick, event.Name)
	}
	if got := event.Param("cta_id"); got != "news_today" {
		t.Errorf("Expected cta_id news_today, got %q", got)
	}
	if got := event.Param("placement"); got != "hero" {
		t.Errorf("Expected placement hero, got %q", got)
	}
	if got := event.Param("partner"); got != "self" {
		t.Errorf("Expected partner self, got %q", got)
	}
	if got := event.Param("link_domain"); got != "coinrader.net" {
		t.Errorf("Expected link_domain coinrader.net, got %q", got)
	}
	if pr, ok := event.Params["pr"].(int); !ok || pr != 1 {
		t.Errorf("Expected pr 1, got %v", event.Params["pr"])
	}
	if opts.Beacon {
		t.Error("Expected no beacon hint on CTA clicks")
	}
	if opts.ClientID != "test-client" {
		t.Errorf("Expected client id forwarded to transport, got %q", opts.ClientID)
	}
	if got := resumed.Load(); got != 0 {
		t.Errorf("Expected Resume to never run for CTA clicks, got %d", got)
	}
}

func TestHandleClickAffiliateSameTab(t *testing.T) {
	reporter := &captureReporter{}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":         "https://partner.example.com/offer",
		"data-aff":     "exchange_a",
		"data-partner": "Exchange A",
		"data-pos":     "sidebar",
	})

	var resumed atomic.Int32
	click := clickOn(a)
	click.Resume = func() { resumed.Add(1) }

	disp := classifier.HandleClick(context.Background(), click)

	if disp.Category != CategoryAffiliate {
		t.Fatalf("Expected category affiliate, got %s", disp.Category)
	}
	if !disp.Held {
		t.Fatal("Expected same-tab affiliate click to hold navigation")
	}
	if disp.Gate == nil {
		t.Fatal("Expected a gate for a held navigation")
	}
	if got := resumed.Load(); got != 0 {
		t.Fatalf("Expected navigation still held before completion, resumed %d times", got)
	}

	event, opts := reporter.last()
	if event.Name != EventAffiliateClick {
		t.Errorf("Expected event %s, got %s", EventAffiliateClick, event.Name)
	}
	if got := event.Param("partner"); got != "Exchange A" {
		t.Errorf("Expected partner %q, got %q", "Exchange A", got)
	}
	if got := event.Param("placement"); got != "sidebar" {
		t.Errorf("Expected placement sidebar, got %q", got)
	}
	if !opts.Beacon {
		t.Error("Expected beacon hint on affiliate clicks")
	}

	// Transport completes: navigation resumes exactly once, a second
	// completion signal has no effect.
	opts.Done()
	opts.Done()
	if got := resumed.Load(); got != 1 {
		t.Errorf("Expected exactly one resume, got %d", got)
	}
}

func TestHandleClickAffiliateTimeoutResumes(t *testing.T) {
	rules := DefaultRules()
	rules.CompletionTimeout = 15 * time.Millisecond

	reporter := &captureReporter{} // never completes
	classifier := NewClassifier(rules, reporter)

	a := anchorEl(map[string]string{
		"href":     "https://partner.example.com/offer",
		"data-aff": "exchange_a",
	})

	var resumed atomic.Int32
	click := clickOn(a)
	click.Resume = func() { resumed.Add(1) }

	disp := classifier.HandleClick(context.Background(), click)
	if !disp.Held {
		t.Fatal("Expected navigation to be held")
	}

	deadline := time.Now().Add(2 * time.Second)
	for resumed.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected timeout to resume navigation")
		}
		time.Sleep(time.Millisecond)
	}
	if got := resumed.Load(); got != 1 {
		t.Errorf("Expected exactly one resume, got %d", got)
	}
}

func TestHandleClickAffiliateNewTabIntent(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		mod   func(*Click)
	}{
		{
			name:  "blank target frame",
			attrs: map[string]string{"target": "_blank"},
			mod:   func(c *Click) {},
		},
		{
			name:  "middle button",
			attrs: map[string]string{},
			mod:   func(c *Click) { c.Button = ButtonMiddle },
		},
		{
			name:  "ctrl click",
			attrs: map[string]string{},
			mod:   func(c *Click) { c.Ctrl = true },
		},
		{
			name:  "meta click",
			attrs: map[string]string{},
			mod:   func(c *Click) { c.Meta = true },
		},
		{
			name:  "shift click",
			attrs: map[string]string{},
			mod:   func(c *Click) { c.Shift = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := &captureReporter{}
			classifier := NewClassifier(nil, reporter)

			attrs := map[string]string{
				"href":     "https://partner.example.com/offer",
				"data-aff": "exchange_a",
			}
			for k, v := range tt.attrs {
				attrs[k] = v
			}

			var resumed atomic.Int32
			click := clickOn(anchorEl(attrs))
			click.Resume = func() { resumed.Add(1) }
			tt.mod(click)

			disp := classifier.HandleClick(context.Background(), click)
			if disp.Category != CategoryAffiliate {
				t.Fatalf("Expected category affiliate, got %s", disp.Category)
			}
			if disp.Held {
				t.Error("Expected new-tab affiliate click to not hold navigation")
			}
			if reporter.count() != 1 {
				t.Errorf("Expected exactly one report, got %d", reporter.count())
			}
			if got := resumed.Load(); got != 0 {
				t.Errorf("Expected Resume untouched, got %d", got)
			}
		})
	}
}

func TestHandleClickOutbound(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{"href": "https://example.org/article"})

	disp := classifier.HandleClick(context.Background(), clickOn(a))
	if disp.Category != CategoryOutbound {
		t.Fatalf("Expected category outbound, got %s", disp.Category)
	}
	if disp.Held {
		t.Error("Expected outbound click to never hold navigation")
	}

	event, opts := reporter.last()
	if event.Name != EventOutboundClick {
		t.Errorf("Expected event %s, got %s", EventOutboundClick, event.Name)
	}
	if got := event.Param("link_domain"); got != "example.org" {
		t.Errorf("Expected link_domain example.org, got %q", got)
	}
	if !opts.Beacon {
		t.Error("Expected beacon hint on outbound clicks")
	}
}

func TestHandleClickSameOriginUnmarked(t *testing.T) {
	reporter := &captureReporter{}
	classifier := NewClassifier(nil, reporter)

	tests := []struct {
		name string
		href string
	}{
		{"plain path", "https://coinrader.net/about"},
		{"explicit default port", "https://coinrader.net:443/about"},
		{"scheme case", "HTTPS://coinrader.net/about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := anchorEl(map[string]string{"href": tt.href})
			disp := classifier.HandleClick(context.Background(), clickOn(a))
			if disp.Category != CategoryIgnored {
				t.Errorf("Expected category ignored, got %s", disp.Category)
			}
		})
	}
	if reporter.count() != 0 {
		t.Errorf("Expected no reports, got %d", reporter.count())
	}
}

func TestHandleClickUnusableDestinations(t *testing.T) {
	reporter := &captureReporter{}
	classifier := NewClassifier(nil, reporter)

	tests := []struct {
		name string
		href string
	}{
		{"missing href", ""},
		{"relative path", "/ranking"},
		{"fragment", "#top"},
		{"javascript scheme", "javascript:void(0)"},
		{"mailto scheme", "mailto:info@coinrader.net"},
		{"schemeless", "coinrader.net/ranking"},
		{"control character", "https://coinrader.net/\x7f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := map[string]string{"data-aff": "exchange_a"}
			if tt.href != "" {
				attrs["href"] = tt.href
			}
			disp := classifier.HandleClick(context.Background(), clickOn(anchorEl(attrs)))
			if disp.Category != CategoryIgnored {
				t.Errorf("Expected category ignored for %q, got %s", tt.href, disp.Category)
			}
		})
	}
	if reporter.count() != 0 {
		t.Errorf("Expected no reports for unusable destinations, got %d", reporter.count())
	}
}

func TestHandleClickCTAOutranksAffiliate(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":     "https://partner.example.com/offer",
		"data-cta": "promo_banner",
		"data-aff": "exchange_a",
	})

	disp := classifier.HandleClick(context.Background(), clickOn(a))
	if disp.Category != CategoryCTA {
		t.Errorf("Expected CTA to outrank affiliate, got %s", disp.Category)
	}
	if disp.Held {
		t.Error("Expected CTA click to not hold navigation")
	}
}

func TestHandleClickPartnerFallsBackToAffiliateID(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":     "https://partner.example.com/offer",
		"data-aff": "exchange_a",
		"target":   "_blank",
	})

	classifier.HandleClick(context.Background(), clickOn(a))
	event, _ := reporter.last()
	if got := event.Param("partner"); got != "exchange_a" {
		t.Errorf("Expected partner to fall back to affiliate id, got %q", got)
	}
}

func TestHandleClickNilReporter(t *testing.T) {
	classifier := NewClassifier(nil, nil)

	t.Run("cta still classified", func(t *testing.T) {
		a := anchorEl(map[string]string{
			"href":    "https://coinrader.net/news",
			"data-ga": "news",
		})
		disp := classifier.HandleClick(context.Background(), clickOn(a))
		if disp.Category != CategoryCTA {
			t.Errorf("Expected category cta, got %s", disp.Category)
		}
		if disp.Reported {
			t.Error("Expected Reported false with nil reporter")
		}
	})

	t.Run("deferred navigation resumes immediately", func(t *testing.T) {
		a := anchorEl(map[string]string{
			"href":     "https://partner.example.com/offer",
			"data-aff": "exchange_a",
		})
		var resumed atomic.Int32
		click := clickOn(a)
		click.Resume = func() { resumed.Add(1) }

		disp := classifier.HandleClick(context.Background(), click)
		if disp.Category != CategoryAffiliate {
			t.Fatalf("Expected category affiliate, got %s", disp.Category)
		}
		if got := resumed.Load(); got != 1 {
			t.Errorf("Expected immediate resume with nil reporter, got %d", got)
		}
	})
}

func TestHandleClickResumePanicSwallowed(t *testing.T) {
	reporter := &captureReporter{completeSync: true}
	classifier := NewClassifier(nil, reporter)

	a := anchorEl(map[string]string{
		"href":     "https://partner.example.com/offer",
		"data-aff": "exchange_a",
	})
	click := clickOn(a)
	click.Resume = func() { panic("resume hook failure") }

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Expected resume panic to be swallowed, got %v", r)
		}
	}()
	disp := classifier.HandleClick(context.Background(), click)
	if !disp.Gate.Fired() {
		t.Error("Expected gate fired despite resume panic")
	}
}

func TestSetRulesSwapsAtomically(t *testing.T) {
	classifier := NewClassifier(nil, &captureReporter{completeSync: true})

	custom := DefaultRules()
	custom.AffiliateKey = "data-sponsor"
	classifier.SetRules(custom)

	a := anchorEl(map[string]string{
		"href":         "https://partner.example.com/offer",
		"data-sponsor": "exchange_b",
		"target":       "_blank",
	})
	disp := classifier.HandleClick(context.Background(), clickOn(a))
	if disp.Category != CategoryAffiliate {
		t.Errorf("Expected swapped rules to classify affiliate, got %s", disp.Category)
	}

	classifier.SetRules(nil)
	if classifier.Rules() != custom {
		t.Error("Expected SetRules(nil) to keep the previous rules")
	}
}

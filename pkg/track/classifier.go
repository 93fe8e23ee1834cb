package track

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
)

// Anchor is the descriptor derived from a clicked anchor element: its
// destination plus the marker attributes the rules recognize.
type Anchor struct {
	Href        string
	URL         *url.URL
	TargetFrame string
	CTAID       string
	AffiliateID string
	Partner     string
	Placement   string
	Promo       bool
}

// Domain returns the destination hostname without port.
func (a *Anchor) Domain() string {
	if a == nil || a.URL == nil {
		return ""
	}
	return a.URL.Hostname()
}

// Disposition is the outcome of classifying one click.
type Disposition struct {
	Category Category

	// Event is the emitted analytics event, nil when the click was ignored.
	Event *Event

	// Anchor is the resolved descriptor, nil when the click was ignored.
	Anchor *Anchor

	// Held reports that the classifier took ownership of the click's
	// Resume callback: navigation stays deferred until the gate fires.
	Held bool

	// Reported reports that a transport dispatch happened.
	Reported bool

	// SameOrigin and NewTab record the determinations made during
	// classification, for downstream storage. Meaningless for ignored
	// clicks.
	SameOrigin bool
	NewTab     bool

	// Gate is the completion gate for a held navigation, nil otherwise.
	Gate *Gate
}

// Classifier turns clicks into analytics events. It is safe for concurrent
// use; rules can be swapped at runtime without interrupting in-flight
// classifications.
type Classifier struct {
	reporter Reporter
	rules    atomic.Pointer[Rules]
}

// NewClassifier creates a classifier with the given rules and reporter.
// A nil rules falls back to DefaultRules. A nil reporter is valid: events
// are still classified but no transport call occurs, and any navigation
// that would have been deferred resumes immediately.
func NewClassifier(rules *Rules, reporter Reporter) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{reporter: reporter}
	c.rules.Store(rules)
	return c
}

// Rules returns the currently active rules.
func (c *Classifier) Rules() *Rules {
	return c.rules.Load()
}

// SetRules atomically replaces the active rules. In-flight classifications
// keep the rules they started with.
func (c *Classifier) SetRules(r *Rules) {
	if r == nil {
		return
	}
	c.rules.Store(r)
}

// HandleClick classifies one click and dispatches the resulting analytics
// event, if any.
//
// Classification walks the target's ancestor chain for the nearest anchor,
// requires an absolute http(s) destination, and then buckets the click in
// priority order: CTA marker, affiliate marker, cross-origin outbound.
// Same-origin links without markers are ignored. CTA and outbound clicks
// never hold navigation; a same-tab affiliate click defers navigation
// until the transport completes or the rules' timeout elapses, whichever
// first, with the resume callback guaranteed to run at most once.
//
// Failures are swallowed: a malformed destination means the click is
// ignored, and a missing reporter degrades to an immediate resume.
func (c *Classifier) HandleClick(ctx context.Context, click *Click) Disposition {
	ignored := Disposition{Category: CategoryIgnored}
	if click == nil || click.Target == nil {
		return ignored
	}

	anchorEl := click.Target.Closest("a")
	if anchorEl == nil {
		return ignored
	}

	rules := c.Rules()
	anchor := resolveAnchor(anchorEl, rules)
	if anchor == nil {
		return ignored
	}

	sameOrigin := sameOrigin(click.PageURL, anchor.URL)
	newTab := click.NewTabIntent(anchorEl)
	timeout := rules.Timeout()

	switch {
	case anchor.CTAID != "":
		event := NewEvent(EventCTAClick).
			Set("cta_id", anchor.CTAID).
			Set("partner", anchor.Partner).
			Set("placement", anchor.Placement).
			Set("link_url", anchor.Href).
			Set("link_domain", anchor.Domain())
		if anchor.Promo {
			event.Set("pr", 1)
		}
		Dispatch(ctx, c.reporter, event, DispatchOptions{
			Timeout:  timeout,
			ClientID: click.ClientID,
		})
		return Disposition{
			Category:   CategoryCTA,
			Event:      event,
			Anchor:     anchor,
			Reported:   c.reporter != nil,
			SameOrigin: sameOrigin,
			NewTab:     newTab,
		}

	case anchor.AffiliateID != "":
		event := NewEvent(EventAffiliateClick).
			Set("partner", anchor.Partner).
			Set("placement", anchor.Placement).
			Set("link_url", anchor.Href).
			Set("link_domain", anchor.Domain())
		if anchor.Promo {
			event.Set("pr", 1)
		}
		disp := Disposition{
			Category:   CategoryAffiliate,
			Event:      event,
			Anchor:     anchor,
			Reported:   c.reporter != nil,
			SameOrigin: sameOrigin,
			NewTab:     newTab,
		}
		if newTab {
			// The original tab keeps its page; nothing to defer.
			Dispatch(ctx, c.reporter, event, DispatchOptions{
				Timeout:  timeout,
				Beacon:   true,
				ClientID: click.ClientID,
			})
			return disp
		}
		disp.Held = true
		disp.Gate = Dispatch(ctx, c.reporter, event, DispatchOptions{
			Done:     click.Resume,
			Timeout:  timeout,
			Beacon:   true,
			ClientID: click.ClientID,
		})
		return disp

	case !sameOrigin:
		event := NewEvent(EventOutboundClick).
			Set("link_url", anchor.Href).
			Set("link_domain", anchor.Domain())
		Dispatch(ctx, c.reporter, event, DispatchOptions{
			Timeout:  timeout,
			Beacon:   true,
			ClientID: click.ClientID,
		})
		return Disposition{
			Category:   CategoryOutbound,
			Event:      event,
			Anchor:     anchor,
			Reported:   c.reporter != nil,
			SameOrigin: sameOrigin,
			NewTab:     newTab,
		}

	default:
		return ignored
	}
}

// resolveAnchor extracts the descriptor for an anchor element, or nil when
// the anchor has no usable absolute http(s) destination.
func resolveAnchor(el *Element, rules *Rules) *Anchor {
	href, ok := el.Attr("href")
	if !ok || href == "" {
		return nil
	}

	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	anchor := &Anchor{Href: u.String(), URL: u}
	anchor.TargetFrame, _ = el.Attr("target")

	for _, key := range rules.CTAKeys {
		if v, ok := el.Attr(key); ok && v != "" {
			anchor.CTAID = v
			break
		}
	}
	anchor.AffiliateID, _ = el.Attr(rules.AffiliateKey)

	anchor.Placement, _ = el.Attr(rules.PlacementKey)
	if anchor.CTAID != "" && rules.CTAPlacementKey != "" {
		if v, ok := el.Attr(rules.CTAPlacementKey); ok && v != "" {
			anchor.Placement = v
		}
	}

	anchor.Partner, _ = el.Attr(rules.PartnerKey)
	if anchor.Partner == "" && anchor.AffiliateID != "" {
		anchor.Partner = anchor.AffiliateID
	}

	if v, _ := el.Attr(rules.PromoKey); v == "1" {
		anchor.Promo = true
	}

	return anchor
}

// sameOrigin reports whether the destination shares scheme, host, and port
// with the page. Default ports are normalized the way browser origins are,
// so https://example.com and https://example.com:443 match. An unparseable
// page URL means the origin cannot be established and the destination is
// treated as cross-origin.
func sameOrigin(pageURL string, dest *url.URL) bool {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return false
	}
	return strings.EqualFold(page.Scheme, dest.Scheme) &&
		strings.EqualFold(page.Hostname(), dest.Hostname()) &&
		effectivePort(page) == effectivePort(dest)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}

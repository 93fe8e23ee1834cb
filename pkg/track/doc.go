// Package track classifies anchor clicks into analytics event categories
// and forwards them to a reporting transport without ever blocking a
// user's navigation on analytics.
//
// # Overview
//
// The page SDK captures clicks at the document root and posts them to the
// collector; this package resolves the nearest anchor for each click,
// classifies it by marker attributes (CTA, affiliate, generic outbound),
// and dispatches the analytics event. A same-tab affiliate click may defer
// navigation until the transport completes or a fixed timeout elapses,
// whichever comes first.
//
// # Classification
//
// Priority order per click:
//   - CTA marker present: emit cta_click, navigation proceeds.
//   - Affiliate marker present: emit affiliate_click; same-tab clicks hold
//     navigation behind a completion gate.
//   - Cross-origin destination: emit outbound_click, navigation proceeds.
//   - Otherwise the click is ignored.
//
// # Completion gate
//
// Deferred navigation resumes through a single-use Gate: a race between
// transport completion and a one-shot timer, guarded by a compare-and-swap
// so the resume callback runs at most once regardless of which side fires
// first. Analytics failures never propagate; the worst case is the timeout
// delay.
//
// # Usage Example
//
//	classifier := track.NewClassifier(track.DefaultRules(), reporter)
//	disp := classifier.HandleClick(ctx, &track.Click{
//		PageURL:  "https://coinrader.net/",
//		Target:   element,
//		ClientID: clientID,
//		Resume:   release,
//	})
//	if disp.Held {
//		// navigation resumes when disp.Gate fires
//	}
//
// # Related Packages
//
//   - pkg/ga: the GA4 Measurement Protocol reporter
//   - pkg/api: the collect endpoint feeding this package
package track

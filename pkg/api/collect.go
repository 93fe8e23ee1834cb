package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/analytics"
	"github.com/shoshosho1210/coinrader/pkg/async"
	"github.com/shoshosho1210/coinrader/pkg/enrich"
	"github.com/shoshosho1210/coinrader/pkg/httputil"
	"github.com/shoshosho1210/coinrader/pkg/track"
)

// insertTimeout bounds the async click insert so a slow database cannot
// pile up goroutines.
const insertTimeout = 5 * time.Second

// collectClick handles POST /t/click.
//
// The SDK prevents default navigation before posting, so for held
// categories the response is not written until the analytics gate fires;
// the body then tells the SDK whether and where to resume. The gate
// bounds the wait, and the click row is inserted off the request path so
// storage latency never delays navigation.
func (s *Server) collectClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.PageURL, "page_url") {
		return
	}
	if len(req.Path) == 0 {
		httputil.WriteValidationError(w, "path is required")
		return
	}

	resumed := make(chan struct{}, 1)
	click := &track.Click{
		PageURL:  req.PageURL,
		Target:   req.Element(),
		Button:   req.Button,
		Alt:      req.Alt,
		Ctrl:     req.Ctrl,
		Meta:     req.Meta,
		Shift:    req.Shift,
		ClientID: req.ClientID,
		EventID:  req.EventID,
		Resume: func() {
			select {
			case resumed <- struct{}{}:
			default:
			}
		},
	}

	start := time.Now()
	disp := s.classifier.HandleClick(r.Context(), click)

	s.recordClick(r.Context(), disp.Category)

	resp := ClickResponse{
		Status:   StatusRecorded,
		Category: string(disp.Category),
		Held:     disp.Held,
	}
	if disp.Category == track.CategoryIgnored {
		resp.Status = StatusIgnored
		httputil.WriteSuccess(w, resp)
		return
	}
	resp.Event = disp.Event.Name

	if disp.Held {
		outcome := s.awaitResume(r.Context(), resumed)
		s.recordHold(r.Context(), time.Since(start), outcome)
		resp.Resume = true
		resp.Href = disp.Anchor.Href
	}

	s.storeClick(r, req, disp)
	httputil.WriteSuccess(w, resp)
}

// awaitResume blocks until the classifier releases the navigation. The
// gate fires within its timeout by construction; the extra deadline here
// only guards against a broken resume wiring, and client disconnects
// release the wait early.
func (s *Server) awaitResume(ctx context.Context, resumed <-chan struct{}) string {
	guard := time.NewTimer(s.holdGuard())
	defer guard.Stop()

	select {
	case <-resumed:
		return "completed"
	case <-ctx.Done():
		return "disconnected"
	case <-guard.C:
		s.logger.Error("Resume signal never fired for held click")
		return "guard_timeout"
	}
}

// holdGuard sizes the resume deadline from the active rules, so a tuned
// completion timeout never outlives the guard.
func (s *Server) holdGuard() time.Duration {
	return 2 * s.classifier.Rules().Timeout()
}

// storeClick persists the classified click off the request path.
func (s *Server) storeClick(r *http.Request, req ClickRequest, disp track.Disposition) {
	if s.tracker == nil {
		return
	}

	// Request-scoped values are captured before the handler returns;
	// the insert itself runs detached from the request context.
	ip := analytics.GetClientIP(r)
	userAgent := analytics.GetUserAgent(r)
	referer := analytics.GetReferrer(r)

	visitor := enrich.Visitor{Country: enrich.UnknownCountry}
	if s.enricher != nil {
		visitor = s.enricher.Enrich(ip, userAgent, referer)
	} else {
		visitor.Device = enrich.DeviceType(userAgent)
		visitor.Source = enrich.TrafficSource(referer)
	}

	event := analytics.ClickEvent{
		EventID:       req.EventID,
		ClientID:      req.ClientID,
		Category:      string(disp.Category),
		CTAID:         disp.Anchor.CTAID,
		Partner:       disp.Anchor.Partner,
		Placement:     disp.Anchor.Placement,
		Promo:         disp.Anchor.Promo,
		LinkURL:       disp.Anchor.Href,
		LinkDomain:    disp.Anchor.Domain(),
		PageURL:       req.PageURL,
		SameOrigin:    disp.SameOrigin,
		NewTab:        disp.NewTab,
		Held:          disp.Held,
		Reported:      disp.Reported,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Referer:       referer,
		Country:       visitor.Country,
		Device:        visitor.Device,
		TrafficSource: visitor.Source,
	}

	async.SafeGo(context.Background(), insertTimeout, "click insert", func(ctx context.Context) error {
		err := s.tracker.TrackClick(ctx, event)
		s.recordInsert(ctx, err)
		return err
	})
}

func (s *Server) recordClick(ctx context.Context, category track.Category) {
	if s.metrics != nil {
		s.metrics.ClicksTotal.WithLabelValues(string(category)).Inc()
	}
	if s.otelMetrics != nil {
		s.otelMetrics.RecordClick(ctx, string(category))
	}
}

func (s *Server) recordHold(ctx context.Context, d time.Duration, outcome string) {
	if s.metrics != nil {
		s.metrics.NavigationHoldDuration.Observe(d.Seconds())
	}
	if s.otelMetrics != nil {
		s.otelMetrics.RecordNavigationHold(ctx, d, outcome)
	}
}

func (s *Server) recordInsert(ctx context.Context, err error) {
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ClickInsertsTotal.WithLabelValues(status).Inc()
	}
	if s.otelMetrics != nil {
		s.otelMetrics.RecordClickInsert(ctx, err)
	}
}

package enrich

import (
	"fmt"
	"net"
	"strings"

	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"
)

// Device types derived from the User-Agent.
const (
	DeviceBot     = "Bot"
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
	DeviceUnknown = "Unknown"
)

// Traffic sources derived from the Referer.
const (
	SourceDirect   = "Direct"
	SourceSearch   = "Search"
	SourceSocial   = "Social"
	SourceReferral = "Referral"
)

// UnknownCountry is recorded when GeoIP is unavailable or a lookup fails.
const UnknownCountry = "XX"

var searchEngines = []string{
	"google.", "bing.", "yahoo.", "duckduckgo.", "baidu.", "yandex.",
}

var socialNetworks = []string{
	"facebook.", "twitter.", "x.com", "t.co", "linkedin.", "reddit.",
	"instagram.", "youtube.", "tiktok.", "line.me", "note.com", "hatena.",
}

// Visitor is the enrichment derived from one request.
type Visitor struct {
	Country string `json:"country"`
	Device  string `json:"device"`
	Source  string `json:"source"`
}

// Enricher derives visitor attributes from request metadata. The GeoIP
// database is optional; without it country resolution degrades to
// UnknownCountry. All methods degrade to neutral values, never fail.
type Enricher struct {
	geo *geoip2.Reader
}

// New creates an enricher. An empty geoDBPath disables GeoIP lookups.
func New(geoDBPath string) (*Enricher, error) {
	e := &Enricher{}
	if geoDBPath == "" {
		return e, nil
	}

	geo, err := geoip2.Open(geoDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	e.geo = geo
	return e, nil
}

// Close releases the GeoIP database, if any.
func (e *Enricher) Close() error {
	if e.geo == nil {
		return nil
	}
	return e.geo.Close()
}

// Enrich derives all visitor attributes at once.
func (e *Enricher) Enrich(ip, userAgent, referer string) Visitor {
	return Visitor{
		Country: e.Country(ip),
		Device:  DeviceType(userAgent),
		Source:  TrafficSource(referer),
	}
}

// Country resolves the ISO country code for an IP address, falling back
// to UnknownCountry when GeoIP is unavailable or the lookup fails.
func (e *Enricher) Country(ip string) string {
	if e == nil || e.geo == nil || ip == "" {
		return UnknownCountry
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return UnknownCountry
	}

	record, err := e.geo.Country(parsed)
	if err != nil {
		return UnknownCountry
	}
	if record.Country.IsoCode == "" {
		return UnknownCountry
	}
	return record.Country.IsoCode
}

// DeviceType buckets a User-Agent into bot, mobile, or desktop.
func DeviceType(ua string) string {
	if ua == "" {
		return DeviceUnknown
	}

	parsed := useragent.New(ua)
	if parsed.Bot() {
		return DeviceBot
	}
	if parsed.Mobile() {
		return DeviceMobile
	}
	return DeviceDesktop
}

// TrafficSource categorizes a Referer into direct, search, social, or
// referral traffic.
func TrafficSource(referer string) string {
	if referer == "" {
		return SourceDirect
	}

	ref := strings.ToLower(referer)
	for _, engine := range searchEngines {
		if strings.Contains(ref, engine) {
			return SourceSearch
		}
	}
	for _, social := range socialNetworks {
		if strings.Contains(ref, social) {
			return SourceSocial
		}
	}
	return SourceReferral
}

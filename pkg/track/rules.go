package track

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCompletionTimeout bounds how long a deferred navigation waits for
// the analytics transport before resuming anyway.
const DefaultCompletionTimeout = 850 * time.Millisecond

// Rules defines the marker attributes the classifier recognizes and the
// completion timeout for deferred navigation. The zero value is not usable;
// start from DefaultRules or LoadRules.
type Rules struct {
	// CTAKeys are attribute names whose presence marks a CTA link. The
	// first populated key supplies the CTA id.
	CTAKeys []string `yaml:"cta_keys"`

	// CTAPlacementKey overrides PlacementKey for CTA links when present.
	CTAPlacementKey string `yaml:"cta_placement_key"`

	// AffiliateKey marks affiliate links and supplies the affiliate id.
	AffiliateKey string `yaml:"affiliate_key"`

	// PartnerKey supplies the partner name for affiliate and CTA links.
	PartnerKey string `yaml:"partner_key"`

	// PlacementKey supplies the on-page placement slot.
	PlacementKey string `yaml:"placement_key"`

	// PromoKey flags promotional links; the value "1" means promotional.
	PromoKey string `yaml:"promo_key"`

	// CompletionTimeout bounds deferred navigation. Zero means
	// DefaultCompletionTimeout.
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
}

// DefaultRules returns the attribute surface the site templates emit.
func DefaultRules() *Rules {
	return &Rules{
		CTAKeys:           []string{"data-ga", "data-cta"},
		CTAPlacementKey:   "data-cta-pos",
		AffiliateKey:      "data-aff",
		PartnerKey:        "data-partner",
		PlacementKey:      "data-pos",
		PromoKey:          "data-pr",
		CompletionTimeout: DefaultCompletionTimeout,
	}
}

// LoadRules reads rules from a YAML file. Fields left empty in the file
// fall back to the defaults so a partial override file stays valid.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the rules are internally usable.
func (r *Rules) Validate() error {
	if len(r.CTAKeys) == 0 {
		return fmt.Errorf("cta_keys must not be empty")
	}
	for i, k := range r.CTAKeys {
		if k == "" {
			return fmt.Errorf("cta_keys[%d] is empty", i)
		}
	}
	if r.AffiliateKey == "" {
		return fmt.Errorf("affiliate_key is required")
	}
	if r.CompletionTimeout < 0 {
		return fmt.Errorf("completion_timeout must not be negative")
	}
	if r.CompletionTimeout > 10*time.Second {
		return fmt.Errorf("completion_timeout %s exceeds the 10s ceiling", r.CompletionTimeout)
	}
	return nil
}

// Timeout returns the effective completion timeout.
func (r *Rules) Timeout() time.Duration {
	if r.CompletionTimeout <= 0 {
		return DefaultCompletionTimeout
	}
	return r.CompletionTimeout
}

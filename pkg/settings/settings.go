// Package settings resolves a user's raw auto-reply configuration into a
// complete, defaulted policy.
package settings

import (
	"github.com/replyhub/autoreply-go/pkg/db/models"
)

const (
	// DefaultDelayMinutes is the spacing between successive scheduled
	// replies when the user never configured one.
	DefaultDelayMinutes = 30

	// DefaultTone is applied when the user never picked a reply tone.
	DefaultTone = "friendly"
)

// Overrides is the partial form of the configuration: nil means the user
// never set the field.
type Overrides struct {
	Enabled           *bool
	DelayMinutes      *int
	Tone              *string
	RespondToPositive *bool
	RespondToNeutral  *bool
	RespondToNegative *bool
}

// Policy is a fully populated auto-reply configuration.
type Policy struct {
	Enabled           bool
	DelayMinutes      int
	Tone              string
	RespondToPositive bool
	RespondToNeutral  bool
	RespondToNegative bool
}

// Normalize resolves partial configuration into a complete policy.
// Defaults: disabled, DefaultDelayMinutes spacing, DefaultTone, all three
// sentiment gates on. Pure and idempotent:
// Normalize(Normalize(x).Raw()) == Normalize(x).
func Normalize(raw Overrides) Policy {
	p := Policy{
		Enabled:           false,
		DelayMinutes:      DefaultDelayMinutes,
		Tone:              DefaultTone,
		RespondToPositive: true,
		RespondToNeutral:  true,
		RespondToNegative: true,
	}

	if raw.Enabled != nil {
		p.Enabled = *raw.Enabled
	}
	if raw.DelayMinutes != nil && *raw.DelayMinutes > 0 {
		p.DelayMinutes = *raw.DelayMinutes
	}
	if raw.Tone != nil && *raw.Tone != "" {
		p.Tone = *raw.Tone
	}
	if raw.RespondToPositive != nil {
		p.RespondToPositive = *raw.RespondToPositive
	}
	if raw.RespondToNeutral != nil {
		p.RespondToNeutral = *raw.RespondToNeutral
	}
	if raw.RespondToNegative != nil {
		p.RespondToNegative = *raw.RespondToNegative
	}

	return p
}

// Raw converts a policy back into the fully-set partial form.
func (p Policy) Raw() Overrides {
	return Overrides{
		Enabled:           &p.Enabled,
		DelayMinutes:      &p.DelayMinutes,
		Tone:              &p.Tone,
		RespondToPositive: &p.RespondToPositive,
		RespondToNeutral:  &p.RespondToNeutral,
		RespondToNegative: &p.RespondToNegative,
	}
}

// FromStored builds Overrides from the persisted settings record. Zero
// values for delay and tone are treated as unset so rows written before a
// field existed still normalize cleanly.
func FromStored(s models.AutoReplySettings) Overrides {
	o := Overrides{
		Enabled:           &s.Enabled,
		RespondToPositive: s.RespondToPositive,
		RespondToNeutral:  s.RespondToNeutral,
		RespondToNegative: s.RespondToNegative,
	}
	if s.DelayMinutes > 0 {
		delay := s.DelayMinutes
		o.DelayMinutes = &delay
	}
	if s.Tone != "" {
		tone := s.Tone
		o.Tone = &tone
	}
	return o
}

// Gate reports whether the policy allows responding to the given sentiment
// bucket.
func (p Policy) Gate(sentiment models.Sentiment) bool {
	switch sentiment {
	case models.SentimentPositive:
		return p.RespondToPositive
	case models.SentimentNeutral:
		return p.RespondToNeutral
	case models.SentimentNegative:
		return p.RespondToNegative
	default:
		return false
	}
}

package notifications

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tenderbell/pkg/sanitizer"
)

// Preferences is the complete preference record. Every field always has a
// value; use DefaultPreferences as the starting point.
type Preferences struct {
	EmailNotifications bool     `json:"emailNotifications" yaml:"email_notifications"`
	PushNotifications  bool     `json:"pushNotifications" yaml:"push_notifications"`
	SoundEnabled       bool     `json:"soundEnabled" yaml:"sound_enabled"`
	MorningTime        string   `json:"morningTime" yaml:"morning_time"`
	AfternoonTime      string   `json:"afternoonTime" yaml:"afternoon_time"`
	EveningTime        string   `json:"eveningTime" yaml:"evening_time"`
	Categories         []string `json:"categories" yaml:"categories"`
	Regions            []string `json:"regions" yaml:"regions"`
}

// DefaultPreferences returns email, push and sound on, reminders at
// 08:00, 13:00 and 18:00, and no category or region subscriptions.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		PushNotifications:  true,
		SoundEnabled:       true,
		MorningTime:        "08:00",
		AfternoonTime:      "13:00",
		EveningTime:        "18:00",
		Categories:         []string{},
		Regions:            []string{},
	}
}

// Clone returns a deep copy with non-nil sets.
func (p Preferences) Clone() Preferences {
	p.Categories = cloneSet(p.Categories)
	p.Regions = cloneSet(p.Regions)
	return p
}

// Merge returns p with every field set in patch overridden. Categories and
// Regions are replaced wholesale, never merged element by element, after
// blanks and case-insensitive duplicates are dropped.
func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	out := p.Clone()
	if patch.EmailNotifications != nil {
		out.EmailNotifications = *patch.EmailNotifications
	}
	if patch.PushNotifications != nil {
		out.PushNotifications = *patch.PushNotifications
	}
	if patch.SoundEnabled != nil {
		out.SoundEnabled = *patch.SoundEnabled
	}
	if patch.MorningTime != nil {
		out.MorningTime = *patch.MorningTime
	}
	if patch.AfternoonTime != nil {
		out.AfternoonTime = *patch.AfternoonTime
	}
	if patch.EveningTime != nil {
		out.EveningTime = *patch.EveningTime
	}
	if patch.Categories != nil {
		out.Categories = sanitizer.CleanSet(*patch.Categories)
	}
	if patch.Regions != nil {
		out.Regions = sanitizer.CleanSet(*patch.Regions)
	}
	return out
}

// Equal compares two preference records, treating nil and empty sets alike.
func (p Preferences) Equal(o Preferences) bool {
	return p.EmailNotifications == o.EmailNotifications &&
		p.PushNotifications == o.PushNotifications &&
		p.SoundEnabled == o.SoundEnabled &&
		p.MorningTime == o.MorningTime &&
		p.AfternoonTime == o.AfternoonTime &&
		p.EveningTime == o.EveningTime &&
		slices.Equal(cloneSet(p.Categories), cloneSet(o.Categories)) &&
		slices.Equal(cloneSet(p.Regions), cloneSet(o.Regions))
}

// Validate rejects malformed reminder times.
func (p Preferences) Validate() error {
	return errors.Join(
		checkTime("morningTime", &p.MorningTime),
		checkTime("afternoonTime", &p.AfternoonTime),
		checkTime("eveningTime", &p.EveningTime),
	)
}

// PreferencesPatch is a partial update. Nil fields are left unchanged.
type PreferencesPatch struct {
	EmailNotifications *bool     `json:"emailNotifications,omitempty"`
	PushNotifications  *bool     `json:"pushNotifications,omitempty"`
	SoundEnabled       *bool     `json:"soundEnabled,omitempty"`
	MorningTime        *string   `json:"morningTime,omitempty"`
	AfternoonTime      *string   `json:"afternoonTime,omitempty"`
	EveningTime        *string   `json:"eveningTime,omitempty"`
	Categories         *[]string `json:"categories,omitempty"`
	Regions            *[]string `json:"regions,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p == PreferencesPatch{}
}

// Validate rejects malformed reminder times among the set fields.
func (p PreferencesPatch) Validate() error {
	return errors.Join(
		checkTime("morningTime", p.MorningTime),
		checkTime("afternoonTime", p.AfternoonTime),
		checkTime("eveningTime", p.EveningTime),
	)
}

// Diff returns the patch that turns p into target.
func (p Preferences) Diff(target Preferences) PreferencesPatch {
	var patch PreferencesPatch
	if p.EmailNotifications != target.EmailNotifications {
		patch.EmailNotifications = &target.EmailNotifications
	}
	if p.PushNotifications != target.PushNotifications {
		patch.PushNotifications = &target.PushNotifications
	}
	if p.SoundEnabled != target.SoundEnabled {
		patch.SoundEnabled = &target.SoundEnabled
	}
	if p.MorningTime != target.MorningTime {
		patch.MorningTime = &target.MorningTime
	}
	if p.AfternoonTime != target.AfternoonTime {
		patch.AfternoonTime = &target.AfternoonTime
	}
	if p.EveningTime != target.EveningTime {
		patch.EveningTime = &target.EveningTime
	}
	if !slices.Equal(cloneSet(p.Categories), cloneSet(target.Categories)) {
		c := cloneSet(target.Categories)
		patch.Categories = &c
	}
	if !slices.Equal(cloneSet(p.Regions), cloneSet(target.Regions)) {
		r := cloneSet(target.Regions)
		patch.Regions = &r
	}
	return patch
}

// ValidTimeOfDay reports whether s is a 24-hour HH:MM wall-clock time.
func ValidTimeOfDay(s string) bool {
	if len(s) != len("15:04") {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func checkTime(field string, v *string) error {
	if v == nil || ValidTimeOfDay(*v) {
		return nil
	}
	return fmt.Errorf("%w: %s=%q", ErrInvalidTimeOfDay, field, *v)
}

// LoadPreferencesYAML reads a preferences file. Keys missing from the file
// keep their DefaultPreferences value; an empty file yields the defaults.
func LoadPreferencesYAML(r io.Reader) (Preferences, error) {
	p := DefaultPreferences()
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Preferences{}, fmt.Errorf("notifications: decode preferences: %w", err)
	}
	p = p.Clone()
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

func cloneSet(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

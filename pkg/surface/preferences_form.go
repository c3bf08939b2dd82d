package surface

import (
	"slices"
	"sync"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// PreferenceSource is what the preferences form reads and saves through.
// *notifications.PreferenceManager implements it.
type PreferenceSource interface {
	Current() notifications.Preferences
	Update(patch notifications.PreferencesPatch) (notifications.Preferences, error)
}

// TimeSlot names one of the three daily reminder times.
type TimeSlot string

const (
	Morning   TimeSlot = "morning"
	Afternoon TimeSlot = "afternoon"
	Evening   TimeSlot = "evening"
)

// PreferencesForm is an editable draft of the preferences.
type PreferencesForm struct {
	src PreferenceSource

	mu    sync.Mutex
	base  notifications.Preferences
	draft notifications.Preferences
}

func NewPreferencesForm(src PreferenceSource) *PreferencesForm {
	f := &PreferencesForm{src: src}
	f.Reset()
	return f
}

// Draft returns the current draft.
func (f *PreferencesForm) Draft() notifications.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

func (f *PreferencesForm) SetEmail(on bool) {
	f.edit(func(p *notifications.Preferences) { p.EmailNotifications = on })
}

func (f *PreferencesForm) SetPush(on bool) {
	f.edit(func(p *notifications.Preferences) { p.PushNotifications = on })
}

func (f *PreferencesForm) SetSound(on bool) {
	f.edit(func(p *notifications.Preferences) { p.SoundEnabled = on })
}

// SetTime sets a reminder time. Malformed values are rejected and leave the
// draft unchanged.
func (f *PreferencesForm) SetTime(slot TimeSlot, value string) error {
	if !notifications.ValidTimeOfDay(value) {
		return notifications.ErrInvalidTimeOfDay
	}
	f.edit(func(p *notifications.Preferences) {
		switch slot {
		case Morning:
			p.MorningTime = value
		case Afternoon:
			p.AfternoonTime = value
		case Evening:
			p.EveningTime = value
		}
	})
	return nil
}

// ToggleCategory adds or removes a category subscription.
func (f *PreferencesForm) ToggleCategory(name string) {
	f.edit(func(p *notifications.Preferences) { p.Categories = toggle(p.Categories, name) })
}

// ToggleRegion adds or removes a region subscription.
func (f *PreferencesForm) ToggleRegion(name string) {
	f.edit(func(p *notifications.Preferences) { p.Regions = toggle(p.Regions, name) })
}

// Dirty reports whether the draft differs from the saved preferences.
func (f *PreferencesForm) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.base.Equal(f.draft)
}

// Patch returns the changed fields only.
func (f *PreferencesForm) Patch() notifications.PreferencesPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base.Diff(f.draft)
}

// Save sends the changed fields. Saving an unchanged draft is a no-op.
func (f *PreferencesForm) Save() (notifications.Preferences, error) {
	patch := f.Patch()
	if patch.IsEmpty() {
		return f.Draft(), nil
	}

	saved, err := f.src.Update(patch)
	if err != nil {
		return notifications.Preferences{}, err
	}

	f.mu.Lock()
	f.base = saved.Clone()
	f.draft = saved.Clone()
	f.mu.Unlock()
	return saved, nil
}

// Reset discards the draft and reloads the current preferences.
func (f *PreferencesForm) Reset() {
	current := f.src.Current()
	f.mu.Lock()
	f.base = current.Clone()
	f.draft = current.Clone()
	f.mu.Unlock()
}

func (f *PreferencesForm) edit(fn func(p *notifications.Preferences)) {
	f.mu.Lock()
	fn(&f.draft)
	f.mu.Unlock()
}

func toggle(set []string, name string) []string {
	if i := slices.Index(set, name); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), name)
}

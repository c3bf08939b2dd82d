package surface_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

type mockSource struct {
	mock.Mock
	current notifications.Preferences
}

func (m *mockSource) Current() notifications.Preferences { return m.current.Clone() }

func (m *mockSource) Update(p notifications.PreferencesPatch) (notifications.Preferences, error) {
	args := m.Called(p)
	if err := args.Error(1); err != nil {
		return notifications.Preferences{}, err
	}
	m.current = m.current.Merge(p)
	return m.current.Clone(), nil
}

func TestPreferencesForm_SaveSendsChangedFieldsOnly(t *testing.T) {
	t.Parallel()

	src := &mockSource{current: notifications.DefaultPreferences()}
	src.On("Update", mock.MatchedBy(func(p notifications.PreferencesPatch) bool {
		return p.SoundEnabled != nil && !*p.SoundEnabled &&
			p.Categories != nil && len(*p.Categories) == 1 &&
			p.EveningTime != nil && *p.EveningTime == "21:15" &&
			p.EmailNotifications == nil && p.PushNotifications == nil &&
			p.MorningTime == nil && p.AfternoonTime == nil && p.Regions == nil
	})).Return(notifications.Preferences{}, nil).Once()

	form := surface.NewPreferencesForm(src)
	assert.False(t, form.Dirty())

	form.SetSound(false)
	form.ToggleCategory("IT")
	form.ToggleRegion("Tigray")
	form.ToggleRegion("Tigray")
	require.NoError(t, form.SetTime(surface.Evening, "21:15"))
	assert.True(t, form.Dirty())

	saved, err := form.Save()
	require.NoError(t, err)
	assert.False(t, saved.SoundEnabled)
	assert.Equal(t, []string{"IT"}, saved.Categories)
	assert.False(t, form.Dirty())
	src.AssertExpectations(t)

	_, err = form.Save()
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "Update", 1)
}

func TestPreferencesForm_TimeValidation(t *testing.T) {
	t.Parallel()

	form := surface.NewPreferencesForm(&mockSource{current: notifications.DefaultPreferences()})

	assert.ErrorIs(t, form.SetTime(surface.Morning, "7:00"), notifications.ErrInvalidTimeOfDay)
	assert.False(t, form.Dirty())

	require.NoError(t, form.SetTime(surface.Morning, "07:00"))
	require.NoError(t, form.SetTime(surface.Afternoon, "12:30"))
	d := form.Draft()
	assert.Equal(t, "07:00", d.MorningTime)
	assert.Equal(t, "12:30", d.AfternoonTime)
}

func TestPreferencesForm_ResetAndFailure(t *testing.T) {
	t.Parallel()

	src := &mockSource{current: notifications.DefaultPreferences()}
	src.On("Update", mock.Anything).Return(notifications.Preferences{}, errors.New("offline")).Once()

	form := surface.NewPreferencesForm(src)
	form.SetEmail(false)
	form.SetPush(false)

	_, err := form.Save()
	require.Error(t, err)
	assert.True(t, form.Dirty(), "a failed save keeps the draft")

	form.Reset()
	assert.False(t, form.Dirty())
	assert.True(t, form.Draft().EmailNotifications)
}

func TestPreferencesForm_WithManager(t *testing.T) {
	t.Parallel()

	lb, _ := newSession(t)
	m := notifications.NewPreferenceManager(lb, notifications.UserScope(1))
	defer m.Close()

	form := surface.NewPreferencesForm(m)
	form.SetSound(false)
	_, err := form.Save()
	require.NoError(t, err)

	assert.False(t, m.SoundEnabled())
	assert.Contains(t, lb.emitted(), notifications.EventUpdatePreferences)
}

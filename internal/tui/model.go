// Package tui renders a session's bell panel, toast stack and preference
// summary in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmitrymomot/tenderbell/pkg/broadcast"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/sanitizer"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

// Session is the state the view renders. *tenderbell.Session implements it.
type Session interface {
	Store() *notifications.Store
	Preferences() *notifications.PreferenceManager
	Bell() *surface.BellPanel
	Toasts() *surface.ToastQueue
}

// changeMsg is sent when the store changed.
type changeMsg struct{}

// prefsMsg is sent when preferences changed.
type prefsMsg struct{}

// toastMsg is sent when the toast stack changed.
type toastMsg struct{}

// closedMsg is sent when a change feed ends.
type closedMsg struct{}

const toastTextLimit = 160

// typeCycle is the order the type filter steps through; "" means any type.
var typeCycle = append([]notifications.Type{""}, notifications.Types()...)

// Model is the root bubbletea model.
type Model struct {
	session Session
	keys    KeyMap

	changes <-chan broadcast.Message[notifications.Change]
	prefs   <-chan broadcast.Message[notifications.Preferences]
	toasts  <-chan struct{}

	items     []notifications.Notification
	cursor    int
	typeIdx   int
	searching bool
	search    textinput.Model
	err       error
	width     int
	height    int
}

// New creates the model. Change feeds are subscribed for the lifetime of ctx.
func New(ctx context.Context, s Session) Model {
	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.CharLimit = 200

	s.Bell().SetOpen(true)
	m := Model{
		session: s,
		keys:    DefaultKeyMap(),
		changes: s.Store().Changes(ctx).Receive(ctx),
		prefs:   s.Preferences().Changes(ctx).Receive(ctx),
		toasts:  s.Toasts().Changes(),
		search:  si,
		width:   80,
	}
	m.items = s.Bell().Visible()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(wait(m.changes, changeMsg{}), wait(m.prefs, prefsMsg{}), waitSignal(m.toasts))
}

// wait blocks for one message on ch and reports it as msg. Every feed has
// exactly one pending wait; it is restarted only when that feed delivers.
func wait[T any](ch <-chan broadcast.Message[T], msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return msg
	}
}

func waitSignal(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return toastMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.Width = max(msg.Width-4, 10)
		return m, nil

	case changeMsg:
		m.reload()
		return m, wait(m.changes, changeMsg{})

	case prefsMsg:
		m.reload()
		return m, wait(m.prefs, prefsMsg{})

	case toastMsg:
		return m, waitSignal(m.toasts)

	case closedMsg:
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.applyFilter(func(f *notifications.Filter) { f.Search = m.search.Value() })
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.applyFilter(func(f *notifications.Filter) { f.Search = "" })
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter(func(f *notifications.Filter) { f.Search = m.search.Value() })
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bell := m.session.Bell()
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Toggle):
		if n, ok := m.selected(); ok {
			bell.Toggle(n.ID)
		}

	case key.Matches(msg, m.keys.MarkAll):
		m.err = bell.MarkAll()

	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.selected(); ok {
			bell.Delete(n.ID)
		}

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(bell.Filter().Search)
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.ReadFilter):
		m.applyFilter(func(f *notifications.Filter) { f.ReadState = f.ReadState.Next() })

	case key.Matches(msg, m.keys.TypeFilter):
		m.typeIdx = (m.typeIdx + 1) % len(typeCycle)
		m.applyFilter(func(f *notifications.Filter) { f.Type = typeCycle[m.typeIdx] })

	case key.Matches(msg, m.keys.Sound):
		on := !m.session.Preferences().SoundEnabled()
		_, m.err = m.session.Preferences().Update(notifications.PreferencesPatch{SoundEnabled: &on})

	case key.Matches(msg, m.keys.Dismiss):
		if items := m.session.Toasts().Items(); len(items) > 0 {
			m.session.Toasts().Dismiss(items[len(items)-1].Notification.ID)
		}
	}

	m.reload()
	return m, nil
}

func (m *Model) applyFilter(edit func(f *notifications.Filter)) {
	f := m.session.Bell().Filter()
	edit(&f)
	m.session.Bell().SetFilter(f)
	m.cursor = 0
	m.reload()
}

func (m *Model) reload() {
	m.items = m.session.Bell().Visible()
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

func (m Model) selected() (notifications.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return notifications.Notification{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder
	bell := m.session.Bell()

	b.WriteString(titleStyle.Render("Notifications"))
	if badge := bell.Badge(); badge != "" {
		b.WriteString(" " + badgeStyle.Render(badge))
	}
	if bell.Connected() {
		b.WriteString("  " + onlineStyle.Render("● online"))
	} else {
		b.WriteString("  " + offlineStyle.Render("○ offline"))
	}
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(describeFilter(bell.Filter())))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	}

	if len(m.items) == 0 {
		b.WriteString(readStyle.Render("  No notifications"))
		b.WriteString("\n")
	}
	for i, n := range m.items {
		b.WriteString(m.renderItem(n, i == m.cursor))
		b.WriteString("\n")
	}

	if toasts := m.session.Toasts().Items(); len(toasts) > 0 {
		b.WriteString("\n")
		for _, t := range toasts {
			b.WriteString(toastStyle.Width(min(m.width-2, 60)).Render(toastText(t.Notification)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(metaStyle.Render(describePreferences(m.session.Preferences().Current())))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) renderItem(n notifications.Notification, selected bool) string {
	marker, style := "  ", readStyle
	if !n.IsRead {
		marker, style = "• ", unreadStyle
	}
	if selected {
		marker, style = "> ", selectedStyle
	}

	msgWidth := max(m.width-40, 20)
	line := marker + typeStyle(n.Type).Render(fmt.Sprintf("%-8s", n.Type)) + " " +
		style.Render(sanitizer.Display(n.Message, msgWidth))
	var meta []string
	if title := sanitizer.Display(n.Tender.TitleOr(""), 40); title != "" {
		meta = append(meta, title)
	}
	if cat := sanitizer.Display(n.Tender.CategoryName(), 30); cat != "" {
		meta = append(meta, cat)
	}
	if !n.CreatedAt.IsZero() {
		meta = append(meta, n.CreatedAt.Local().Format(time.DateTime))
	}
	if len(meta) > 0 {
		line += "  " + metaStyle.Render(strings.Join(meta, " · "))
	}
	return line
}

func toastText(n notifications.Notification) string {
	msg := sanitizer.Display(n.Message, toastTextLimit)
	if title := sanitizer.Display(n.Tender.TitleOr(""), toastTextLimit); title != "" {
		return title + "\n" + msg
	}
	return msg
}

func describeFilter(f notifications.Filter) string {
	rs := f.ReadState
	if rs == "" {
		rs = notifications.ReadAll
	}
	typ := "any"
	if f.Type != "" {
		typ = string(f.Type)
	}
	s := fmt.Sprintf("showing: %s · type: %s", rs, typ)
	if f.Category != "" {
		s += " · category: " + f.Category
	}
	if f.Search != "" {
		s += fmt.Sprintf(" · search: %q", f.Search)
	}
	return s
}

func describePreferences(p notifications.Preferences) string {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("sound %s · email %s · push %s · reminders %s/%s/%s",
		onOff(p.SoundEnabled), onOff(p.EmailNotifications), onOff(p.PushNotifications),
		p.MorningTime, p.AfternoonTime, p.EveningTime)
}

func (m Model) helpLine() string {
	parts := make([]string, 0, len(m.keys.help()))
	for _, k := range m.keys.help() {
		h := k.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+" "+helpLabelStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, s Session, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, s), opts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

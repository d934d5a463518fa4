package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"flashdl/internal/media"
)

// Picker names accepted by Choose.
const (
	PickerTUI = "tui"
	PickerFzf = "fzf"
)

// optionItem adapts a media.Option to list.DefaultItem.
type optionItem struct {
	index int
	opt   media.Option
}

func (i optionItem) Title() string { return i.opt.Label }

func (i optionItem) Description() string {
	desc := "." + i.opt.Ext
	if i.opt.RequiresMerge {
		desc += " " + mergeTag(mergeLabel)
	}
	return desc
}

func (i optionItem) FilterValue() string { return i.opt.Label }

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type pickerModel struct {
	list   list.Model
	choose key.Binding
	chosen int
}

func newPickerModel(title string, opts []media.Option) pickerModel {
	items := make([]list.Item, len(opts))
	for i, opt := range opts {
		items[i] = optionItem{index: i, opt: opt}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(accentColor).
		Foreground(accentColor).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

	l := list.New(items, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)

	return pickerModel{
		list: l,
		choose: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "download"),
		),
		chosen: -1,
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if key.Matches(msg, m.choose) {
			if item, ok := m.list.SelectedItem().(optionItem); ok {
				m.chosen = item.index
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return docStyle.Render(m.list.View())
}

// Pick runs an inline list of opts on out and returns the chosen index.
func Pick(title string, opts []media.Option, in io.Reader, out io.Writer) (int, error) {
	if len(opts) == 0 {
		return -1, fmt.Errorf("no options to select from")
	}

	final, err := tea.NewProgram(newPickerModel(title, opts), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || m.chosen < 0 {
		return -1, ErrCancelled
	}
	return m.chosen, nil
}

// Choose asks the user for one of res.Options with the named picker.
func Choose(picker string, res *media.Resolution, in io.Reader, out io.Writer) (int, error) {
	switch strings.ToLower(picker) {
	case PickerFzf:
		items := make([]string, len(res.Options))
		for i, opt := range res.Options {
			items[i] = plainLine(opt)
		}
		return Select(res.Title, items)
	case PickerTUI, "":
		return Pick(res.Title, res.Options, in, out)
	default:
		return -1, fmt.Errorf("unknown picker %q", picker)
	}
}

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nanofab-cli/client"
	"nanofab-cli/config"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// Launch runs the interactive terminal UI. It owns the terminal until
// the user exits.
func Launch(cl *client.Client, log zerolog.Logger) error {
	m := newModel(cl, log)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type state int

const (
	stateUsername state = iota
	statePassword
	stateAuthenticating
	stateSaveLogin
	stateMenu
	stateToolSearch
	stateLoadingView
	stateView
	stateConfirmDelete
	stateError
)

const (
	menuOpenings    = "List Tool Openings"
	menuBookings    = "List User Bookings"
	menuDeleteLogin = "Delete Saved Login"
	menuExit        = "Exit"
)

type model struct {
	client *client.Client
	log    zerolog.Logger
	state  state

	// login flow
	username  string
	password  string
	login     client.Login
	fromSaved bool
	saveYes   bool

	// menu and confirm prompts
	menuCursor int
	confirmYes bool

	// tool search
	tools      []client.Tool
	search     string
	toolCursor int

	// scrollable text view
	viewTitle string
	lines     []string
	scroll    int

	errMsg string
	width  int
	height int
}

func newModel(cl *client.Client, log zerolog.Logger) model {
	m := model{client: cl, log: log, height: 24, width: 80}
	if login, ok, err := config.LoadLogin(); err == nil && ok {
		m.login = login
		m.fromSaved = true
		m.state = stateAuthenticating
	}
	return m
}

type authDoneMsg struct{ err error }

type toolsMsg struct {
	tools []client.Tool
	err   error
}

type viewMsg struct {
	title string
	text  string
	err   error
}

func (m model) Init() tea.Cmd {
	if m.state == stateAuthenticating {
		return m.authenticate()
	}
	return nil
}

func (m model) authenticate() tea.Cmd {
	login := m.login
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return authDoneMsg{err: m.client.Authenticate(ctx, login)}
	}
}

func (m model) fetchTools() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tools, err := m.client.Tools(ctx)
		return toolsMsg{tools: tools, err: err}
	}
}

func (m model) fetchOpenings(tool client.Tool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		now := time.Now()
		bookings, err := m.client.ToolBookings(ctx, tool, &now, nil)
		if err != nil {
			return viewMsg{err: err}
		}
		openings := bookings.Invert()
		openings.SubtractBefore(now)
		openings.SubtractWeekends(now)
		openings.SubtractAfterHours(now)
		return viewMsg{
			title: fmt.Sprintf("Openings for `%s`", tool.Label),
			text:  openings.String(),
		}
	}
}

func (m model) fetchBookings() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		bookings, err := m.client.UserBookings(ctx)
		if err != nil {
			return viewMsg{err: err}
		}
		return viewMsg{title: "Your bookings", text: bookings.String()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case authDoneMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("login failed")
			m.errMsg = msg.err.Error()
			m.state = stateError
			// A stale saved login should not lock the user out.
			m.fromSaved = false
			return m, nil
		}
		if m.fromSaved {
			m.state = stateMenu
			return m, nil
		}
		m.saveYes = false
		m.state = stateSaveLogin
		return m, nil

	case toolsMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.state = stateError
			return m, nil
		}
		m.tools = msg.tools
		m.search = ""
		m.toolCursor = 0
		m.state = stateToolSearch
		return m, nil

	case viewMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.state = stateError
			return m, nil
		}
		m.viewTitle = msg.title
		m.lines = strings.Split(msg.text, "\n")
		m.scroll = 0
		m.state = stateView
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.state {
	case stateUsername:
		switch key.Type {
		case tea.KeyEnter:
			m.state = statePassword
		case tea.KeyEsc:
			return m, tea.Quit
		default:
			m.username = editLine(m.username, key)
		}

	case statePassword:
		switch key.Type {
		case tea.KeyEnter:
			m.login = client.Login{Username: m.username, Password: m.password}
			m.state = stateAuthenticating
			return m, m.authenticate()
		case tea.KeyEsc:
			m.password = ""
			m.state = stateUsername
		default:
			m.password = editLine(m.password, key)
		}

	case stateSaveLogin:
		switch key.Type {
		case tea.KeyLeft, tea.KeyRight, tea.KeyTab:
			m.saveYes = !m.saveYes
		case tea.KeyEnter:
			if m.saveYes {
				if err := config.SaveLogin(m.login); err != nil {
					m.log.Warn().Err(err).Msg("save login")
				}
			}
			m.state = stateMenu
		}

	case stateMenu:
		options := m.menuOptions()
		switch {
		case key.Type == tea.KeyUp || keyRune(key) == 'k':
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case key.Type == tea.KeyDown || keyRune(key) == 'j':
			if m.menuCursor < len(options)-1 {
				m.menuCursor++
			}
		case key.Type == tea.KeyEsc || keyRune(key) == 'q':
			return m, tea.Quit
		case key.Type == tea.KeyEnter:
			switch options[m.menuCursor] {
			case menuExit:
				return m, tea.Quit
			case menuOpenings:
				m.state = stateLoadingView
				return m, m.fetchTools()
			case menuBookings:
				m.state = stateLoadingView
				return m, m.fetchBookings()
			case menuDeleteLogin:
				m.confirmYes = false
				m.state = stateConfirmDelete
			}
		}

	case stateToolSearch:
		filtered := filterTools(m.tools, m.search)
		switch key.Type {
		case tea.KeyEsc:
			m.state = stateMenu
		case tea.KeyUp:
			if m.toolCursor > 0 {
				m.toolCursor--
			}
		case tea.KeyDown:
			if m.toolCursor < len(filtered)-1 {
				m.toolCursor++
			}
		case tea.KeyEnter:
			if len(filtered) > 0 {
				tool := filtered[min(m.toolCursor, len(filtered)-1)]
				m.state = stateLoadingView
				return m, m.fetchOpenings(tool)
			}
		default:
			before := m.search
			m.search = editLine(m.search, key)
			if m.search != before {
				m.toolCursor = 0
			}
		}

	case stateView:
		visible := m.height - 2
		maxScroll := len(m.lines) - visible
		if maxScroll < 0 {
			maxScroll = 0
		}
		switch {
		case key.Type == tea.KeyUp || keyRune(key) == 'k':
			if m.scroll > 0 {
				m.scroll--
			}
		case key.Type == tea.KeyDown || keyRune(key) == 'j':
			if m.scroll < maxScroll {
				m.scroll++
			}
		case key.Type == tea.KeyPgUp:
			m.scroll -= visible
			if m.scroll < 0 {
				m.scroll = 0
			}
		case key.Type == tea.KeyPgDown:
			m.scroll += visible
			if m.scroll > maxScroll {
				m.scroll = maxScroll
			}
		case key.Type == tea.KeyEnter || key.Type == tea.KeyEsc:
			m.state = stateMenu
		case keyRune(key) == 'q':
			return m, tea.Quit
		}

	case stateConfirmDelete:
		switch key.Type {
		case tea.KeyLeft, tea.KeyRight, tea.KeyTab:
			m.confirmYes = !m.confirmYes
		case tea.KeyEsc:
			m.state = stateMenu
		case tea.KeyEnter:
			if m.confirmYes {
				if err := config.DeleteLogin(); err != nil {
					m.log.Warn().Err(err).Msg("delete login")
				}
				m.menuCursor = 0
			}
			m.state = stateMenu
		}

	case stateError:
		switch key.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.errMsg = ""
			if m.fromSaved {
				m.state = stateMenu
			} else if m.username == "" {
				m.state = stateUsername
			} else {
				m.password = ""
				m.state = statePassword
			}
		}
	}
	return m, nil
}

func (m model) menuOptions() []string {
	options := []string{menuOpenings, menuBookings}
	if config.HasSavedLogin() {
		options = append(options, menuDeleteLogin)
	}
	return append(options, menuExit)
}

func (m model) View() string {
	var b strings.Builder
	switch m.state {
	case stateUsername:
		fmt.Fprintf(&b, "Enter username: %s\n", m.username)

	case statePassword:
		fmt.Fprintf(&b, "Enter username: %s\n", m.username)
		fmt.Fprintf(&b, "Enter password: %s\n", strings.Repeat("*", len(m.password)))

	case stateAuthenticating:
		b.WriteString("Logging in...\n")

	case stateSaveLogin:
		b.WriteString("Save login? ")
		b.WriteString(choices(m.saveYes))
		b.WriteString("\n")

	case stateMenu:
		options := m.menuOptions()
		cursor := m.menuCursor
		if cursor >= len(options) {
			cursor = len(options) - 1
		}
		for i, opt := range options {
			if i == cursor {
				fmt.Fprintf(&b, "> %s\n", opt)
			} else {
				fmt.Fprintf(&b, "  %s\n", opt)
			}
		}

	case stateToolSearch:
		b.WriteString("Search for tool:\n")
		b.WriteString(m.search + "\n")
		filtered := filterTools(m.tools, m.search)
		visible := m.height - 3
		if visible < 1 {
			visible = 1
		}
		for i, tool := range filtered {
			if i >= visible {
				break
			}
			if i == m.toolCursor {
				fmt.Fprintf(&b, "> %s\n", tool.Label)
			} else {
				fmt.Fprintf(&b, "  %s\n", tool.Label)
			}
		}

	case stateLoadingView:
		b.WriteString("Loading...\n")

	case stateView:
		b.WriteString(m.viewTitle + "\n")
		visible := m.height - 2
		if visible < 1 {
			visible = 1
		}
		end := m.scroll + visible
		if end > len(m.lines) {
			end = len(m.lines)
		}
		start := m.scroll
		if start > len(m.lines) {
			start = len(m.lines)
		}
		b.WriteString(strings.Join(m.lines[start:end], "\n"))
		b.WriteString("\n")

	case stateConfirmDelete:
		b.WriteString("Are you sure? ")
		b.WriteString(choices(m.confirmYes))
		b.WriteString("\n")

	case stateError:
		fmt.Fprintf(&b, "Error: %s\n\nPress enter to continue.\n", m.errMsg)
	}
	return b.String()
}

func choices(yes bool) string {
	if yes {
		return "[>Yes] [ No]"
	}
	return "[ Yes] [>No]"
}

// editLine applies a key press to a hand-driven text input.
func editLine(s string, key tea.KeyMsg) string {
	switch key.Type {
	case tea.KeyBackspace:
		if len(s) > 0 {
			runes := []rune(s)
			return string(runes[:len(runes)-1])
		}
		return s
	case tea.KeyRunes, tea.KeySpace:
		if key.Type == tea.KeySpace {
			return s + " "
		}
		return s + string(key.Runes)
	}
	return s
}

func keyRune(key tea.KeyMsg) rune {
	if key.Type == tea.KeyRunes && len(key.Runes) == 1 {
		return key.Runes[0]
	}
	return 0
}

func filterTools(tools []client.Tool, search string) []client.Tool {
	if search == "" {
		return tools
	}
	search = strings.ToLower(search)
	var out []client.Tool
	for _, tool := range tools {
		if strings.Contains(strings.ToLower(tool.Label), search) {
			out = append(out, tool)
		}
	}
	return out
}

package tui

import (
	"testing"

	"nanofab-cli/client"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func pressKey(t *testing.T, m model, key tea.KeyMsg) model {
	t.Helper()
	next, _ := m.Update(key)
	got, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return got
}

func TestEditLine(t *testing.T) {
	s := ""
	s = editLine(s, keyMsg('a'))
	s = editLine(s, keyMsg('b'))
	s = editLine(s, tea.KeyMsg{Type: tea.KeySpace})
	s = editLine(s, keyMsg('c'))
	if s != "ab c" {
		t.Fatalf("want %q, got %q", "ab c", s)
	}
	s = editLine(s, tea.KeyMsg{Type: tea.KeyBackspace})
	if s != "ab " {
		t.Fatalf("backspace: want %q, got %q", "ab ", s)
	}
	if got := editLine("", tea.KeyMsg{Type: tea.KeyBackspace}); got != "" {
		t.Errorf("backspace on empty input should be a no-op, got %q", got)
	}
}

func TestFilterTools(t *testing.T) {
	tools := []client.Tool{
		{Label: "Sputter System 1"},
		{Label: "Wire Bonder"},
	}
	if got := filterTools(tools, ""); len(got) != 2 {
		t.Errorf("empty search should keep everything, got %v", got)
	}
	got := filterTools(tools, "WIRE")
	if len(got) != 1 || got[0].Label != "Wire Bonder" {
		t.Errorf("search should ignore case, got %v", got)
	}
}

func TestLoginFlowAdvancesStates(t *testing.T) {
	m := model{state: stateUsername, height: 24}
	m = pressKey(t, m, keyMsg('j'))
	m = pressKey(t, m, keyMsg('o'))
	if m.username != "jo" {
		t.Fatalf("want username %q, got %q", "jo", m.username)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != statePassword {
		t.Fatalf("enter should move to the password prompt, got state %d", m.state)
	}
	m = pressKey(t, m, keyMsg('x'))
	if m.password != "x" {
		t.Fatalf("want password %q, got %q", "x", m.password)
	}
}

func TestMenuNavigation(t *testing.T) {
	m := model{state: stateMenu, height: 24}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.menuCursor != 1 {
		t.Fatalf("down should advance the cursor, got %d", m.menuCursor)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.menuCursor != 0 {
		t.Fatalf("cursor should stop at the top, got %d", m.menuCursor)
	}
}

func TestSaveLoginToggle(t *testing.T) {
	m := model{state: stateSaveLogin, height: 24}
	if m.saveYes {
		t.Fatal("save-login prompt should default to No")
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if !m.saveYes {
		t.Fatal("left should select Yes")
	}
}

func TestViewMsgEntersScrollView(t *testing.T) {
	m := model{state: stateLoadingView, height: 4}
	next, _ := m.Update(viewMsg{title: "Openings", text: "a\nb\nc\nd\ne\nf"})
	m = next.(model)
	if m.state != stateView {
		t.Fatalf("want scroll view, got state %d", m.state)
	}
	if len(m.lines) != 6 {
		t.Fatalf("want 6 lines, got %d", len(m.lines))
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.scroll != 1 {
		t.Fatalf("down should scroll, got %d", m.scroll)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	if maxScroll := len(m.lines) - (m.height - 2); m.scroll > maxScroll {
		t.Fatalf("scroll past the end: %d > %d", m.scroll, maxScroll)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateMenu {
		t.Fatalf("esc should return to the menu, got state %d", m.state)
	}
}

func TestErrorMsgShowsAndDismisses(t *testing.T) {
	m := model{state: stateAuthenticating, username: "jo", password: "bad", height: 24}
	next, _ := m.Update(authDoneMsg{err: errFake{}})
	m = next.(model)
	if m.state != stateError {
		t.Fatalf("auth failure should show the error screen, got state %d", m.state)
	}
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != statePassword {
		t.Fatalf("dismissing should return to the password prompt, got state %d", m.state)
	}
	if m.password != "" {
		t.Error("password should be cleared after a failed login")
	}
}

type errFake struct{}

func (errFake) Error() string { return "bad login" }

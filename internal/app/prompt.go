package app

import (
	"strings"

	"github.com/1ureka/peerchat/internal/config"
)

// namePromptState asks for a display name, then starts the role chosen in
// the menu.
type namePromptState struct {
	base
	role config.Role
}

func newNamePromptState(a *App, role config.Role) *namePromptState {
	return &namePromptState{base: base{a}, role: role}
}

func (s *namePromptState) String() string { return "name prompt (" + string(s.role) + ")" }

func (s *namePromptState) Enter() {
	s.app.display.ShowLine("Enter your name (" + ExitKeyword + " to quit):")
}

func (s *namePromptState) HandleInput(line string) {
	name := strings.TrimSpace(line)
	switch name {
	case ExitKeyword:
		s.app.goTo(newQuitState(s.app))
	case "":
		s.Enter()
	default:
		s.app.nickname = name
		s.app.goTo(s.app.activeState(s.role))
	}
}

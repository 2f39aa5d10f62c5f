package app

import (
	"strconv"
	"strings"

	"github.com/1ureka/peerchat/internal/config"
)

// menuState is the initial state and where failed sessions return to.
type menuState struct {
	base
}

func newMenuState(a *App) *menuState { return &menuState{base{a}} }

func (s *menuState) String() string { return "menu" }

// Enter drops whatever a failed session left in the directory.
func (s *menuState) Enter() {
	s.app.dir.Clear()
	s.showOptions()
}

func (s *menuState) showOptions() {
	d := s.app.display
	d.ShowLine("1) host  start a session on port " + strconv.Itoa(s.app.cfg.Port))
	d.ShowLine("2) join  join " + s.app.hostAddr())
	d.ShowLine("3) quit")
}

func (s *menuState) HandleInput(line string) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "1", "host":
		s.app.goTo(newNamePromptState(s.app, config.RoleHost))
	case "2", "join":
		s.app.goTo(newNamePromptState(s.app, config.RoleClient))
	case "3", "quit", ExitKeyword:
		s.app.goTo(newQuitState(s.app))
	default:
		s.app.display.ShowLine(noticef("unknown option %q", line))
		s.showOptions()
	}
}

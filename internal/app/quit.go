package app

// quitState is terminal: it drops every link and stops the input loop.
type quitState struct {
	base
}

func newQuitState(a *App) *quitState { return &quitState{base{a}} }

func (s *quitState) String() string { return "quitting" }

func (s *quitState) Enter() {
	s.app.quit()
	s.app.display.ShowLine("Press Enter to close window...")
}

// Exit keeps the final screen.
func (s *quitState) Exit() {}

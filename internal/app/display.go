package app

import "fmt"

// Display is the terminal surface the session renders to and reads from.
type Display interface {
	ShowLine(text string)
	ShowUserLine(text string, isLocal bool)
	ClearMessages()
	ClearUserList()
	// ReadLine blocks for the next input line. An empty line means no input
	// yet; an error means input is closed for good.
	ReadLine() (string, error)
}

// Line prefixes a Display may style differently from chat lines.
const (
	NoticePrefix = "* "
	ErrorPrefix  = "! "
)

func chatLine(name, text string) string {
	return name + ": " + text
}

func noticef(format string, args ...interface{}) string {
	return NoticePrefix + fmt.Sprintf(format, args...)
}

func errorLine(err error) string {
	return ErrorPrefix + err.Error()
}

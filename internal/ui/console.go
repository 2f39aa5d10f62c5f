// Package ui renders a chat session to a terminal.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/1ureka/peerchat/internal/app"
)

const clearScreen = "\033[H\033[2J"

// Console is a line-oriented app.Display. Chat lines scroll; the user list is
// printed as a single line after every directory change.
type Console struct {
	Plain bool // no colors, no screen clearing

	mu     sync.Mutex
	out    io.Writer
	in     *bufio.Reader
	roster []string
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		out: out,
		in:  bufio.NewReader(in),
	}
}

func (c *Console) ShowLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.style(text))
}

func (c *Console) style(text string) string {
	if c.Plain {
		return text
	}
	switch {
	case strings.HasPrefix(text, app.ErrorPrefix):
		return pterm.FgRed.Sprint(text)
	case strings.HasPrefix(text, app.NoticePrefix):
		return pterm.FgCyan.Sprint(text)
	}

	if name, msg, ok := strings.Cut(text, ": "); ok {
		return pterm.Bold.Sprint(name) + ": " + msg
	}
	return text
}

func (c *Console) ShowUserLine(text string, isLocal bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isLocal {
		text += " (you)"
		if !c.Plain {
			text = pterm.FgGreen.Sprint(text)
		}
	}
	c.roster = append(c.roster, text)
}

// Flush prints the user list collected since the last ClearUserList.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.roster) == 0 {
		return
	}
	line := "online: " + strings.Join(c.roster, ", ")
	if !c.Plain {
		line = pterm.FgGray.Sprint(line)
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Plain {
		fmt.Fprint(c.out, clearScreen)
	}
}

func (c *Console) ClearUserList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roster = c.roster[:0]
}

// ReadLine returns the next input line without its terminator, or io.EOF
// once input is closed. Lines have no length limit.
func (c *Console) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal seams for tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	terminalSize = term.GetSize
)

// GetSimpleText prints a prompt to w and reads a single line of input from
// reader. The trailing newline is trimmed. If EOF occurs after some input
// was read, the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetSecret reads a token without echo when stdin is a terminal and falls
// back to a plain line read otherwise.
func GetSecret(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return GetSimpleText(reader, prompt, w)
	}
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// cellWidth fits seven day columns into the terminal, between 6 and 12
// characters each. Without a terminal it assumes 80 columns.
func cellWidth() int {
	width, _, err := terminalSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	w := width / 7
	if w < 6 {
		w = 6
	}
	if w > 12 {
		w = 12
	}
	return w
}

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

// termReadPassword is swapped out in tests.
var termReadPassword = term.ReadPassword

const textHint = "(press Enter on an empty line to finish)"

// ReadLine asks for a single value such as a username or a request title.
// The prompt goes on its own line, followed by a "> " marker. A last line
// without a newline still counts; an empty stream is io.EOF.
func ReadLine(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n> ", prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword reads the login password from the terminal with echo off.
func ReadPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}
	pw, err := termReadPassword(int(os.Stdin.Fd()))
	// the terminal swallowed the user's newline
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// ReadText collects a request description or comment body. Input ends at
// the first empty line or at end of stream; lines keep their order and the
// result is trimmed.
func ReadText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", prompt, textHint); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if err != nil {
			break
		}
	}
	return strings.TrimSpace(b.String()), nil
}

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vasilisp/chatgraph/internal/util"
	"golang.org/x/term"
)

// Prompter asks the user for a secret value.
type Prompter interface {
	Prompt(label string) (string, error)
}

// TerminalPrompter reads without echo when In is a terminal, and a plain
// line otherwise.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func (p TerminalPrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.Out, label)

	fd := int(p.In.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := readLine(p.In)
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readLine reads byte by byte so that input after the line stays unread for
// the chat loop sharing the same reader.
func readLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return b.String(), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String(), err
		}
	}
}

// ResolveCredentials fills OpenAIAPIKey and GroqAPIKey from lookup, prompting
// for any that are unset.
func (c *Config) ResolveCredentials(lookup func(string) string, p Prompter) error {
	keys := []struct {
		env  string
		dest *string
	}{
		{"OPENAI_API_KEY", &c.OpenAIAPIKey},
		{"GROQ_API_KEY", &c.GroqAPIKey},
	}

	for _, k := range keys {
		if v := lookup(k.env); v != "" {
			*k.dest = v
			util.Log.Printf("%s already set", k.env)
			continue
		}

		v, err := p.Prompt(fmt.Sprintf("Enter your %s: ", k.env))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", k.env, err)
		}
		*k.dest = v
	}

	return nil
}

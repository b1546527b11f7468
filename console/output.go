package console

import (
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/internal/util"
	"golang.org/x/text/unicode/norm"
)

var sanitize = regexp.MustCompile(`\x1B\[[0-9;]*[a-zA-Z]|[\x00-\x08\x0B-\x1F\x7F]`)

// Sanitize strips ASCII control characters and ANSI escape sequences and
// normalizes to NFC. With removeNewlines, line breaks become spaces.
func Sanitize(input string, removeNewlines bool) string {
	cleaned := sanitize.ReplaceAllString(input, "")

	var b strings.Builder
	writer := norm.NFC.Writer(&b)

	for _, r := range cleaned {
		if r == '\n' {
			if removeNewlines {
				writer.Write([]byte{' '})
				continue
			}
			writer.Write([]byte{'\n'})
		} else if unicode.IsPrint(r) || unicode.IsSpace(r) {
			writer.Write([]byte(string(r)))
		}
	}

	writer.Close()

	return b.String()
}

// Echoln returns a printer writing prefix and the sanitized message content
// on one line. A failed write is logged and the rest of the line dropped.
func Echoln(w io.Writer, prefix string) func(msg chatgraph.Message) {
	return func(msg chatgraph.Message) {
		for _, part := range []string{prefix, Sanitize(msg.Content, false), "\n"} {
			if _, err := io.WriteString(w, part); err != nil {
				util.Log.Printf("failed to print message: %v", err)
				return
			}
		}
	}
}

package util

import (
	"log"
	"os"
)

// Log is shared by every package; the CLI may redirect or silence it.
var Log = log.New(os.Stderr, "chatgraph: ", log.LstdFlags)

func Assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}

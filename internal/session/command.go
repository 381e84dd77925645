package session

import (
	"strings"

	"github.com/pavelanni/tutor/internal/evaluate"
)

// command is the result of intercepting captured input before it is
// treated as an answer.
type command int

const (
	cmdNone command = iota
	cmdRepeat
	cmdExplain
	cmdSkip
	cmdQuit
)

// Phrase sets checked in order. First family with a match wins; input
// matching none is always a literal answer.
var commandPhrases = []struct {
	cmd     command
	phrases []string
}{
	{cmdRepeat, []string{"repeat", "repeat the question", "say again"}},
	{cmdExplain, []string{"explain more", "explain", "give example"}},
	{cmdSkip, []string{"skip", "next", "pass"}},
	{cmdQuit, []string{"quit", "exit", "stop"}},
}

// interceptCommand matches captured text against the known command
// phrases, case-insensitively and tolerant of punctuation. Phrases
// match on word boundaries so ordinary answers containing "context" or
// "passport" are not swallowed as commands.
func interceptCommand(text string) command {
	norm := " " + evaluate.Normalize(text) + " "
	for _, family := range commandPhrases {
		for _, phrase := range family.phrases {
			if strings.Contains(norm, " "+phrase+" ") {
				return family.cmd
			}
		}
	}
	return cmdNone
}

// Package protocol encodes and decodes the line-oriented, colon-delimited
// commands understood by the external store service.
//
//	save:<filename>::<content>
//	search:<word>
//	load:<filename>
//
// The content of a save is the final field and is carried verbatim, without
// escaping, so it may contain colons, "::" and newlines.
package protocol

import (
	"fmt"
	"strings"

	"pkt.systems/tabedit/schema"
)

// Verb names a store command.
type Verb string

const (
	// VerbSave upserts a record.
	VerbSave Verb = "save"
	// VerbSearch asks whether a word occurs in the most recently saved record.
	VerbSearch Verb = "search"
	// VerbLoad returns a record's content.
	VerbLoad Verb = "load"
)

const (
	verbSep    = ":"
	contentSep = "::"
)

// NotFoundMarker is the response the store gives for an absent search word.
const NotFoundMarker = "Word not found!"

// Command is a single store command.
type Command struct {
	Verb     Verb
	Filename schema.Filename
	Content  string
	Word     string
}

// Save builds a save command.
func Save(filename schema.Filename, content string) (Command, error) {
	if err := schema.ValidateFilename(filename); err != nil {
		return Command{}, err
	}
	return Command{Verb: VerbSave, Filename: filename, Content: content}, nil
}

// Search builds a search command. Words are single-line.
func Search(word string) (Command, error) {
	if word == "" {
		return Command{}, schema.ErrEmptyTerm
	}
	if strings.ContainsAny(word, "\r\n") {
		return Command{}, fmt.Errorf("%w: search word spans lines", schema.ErrInvalidCommand)
	}
	return Command{Verb: VerbSearch, Word: word}, nil
}

// Load builds a load command.
func Load(filename schema.Filename) (Command, error) {
	if err := schema.ValidateFilename(filename); err != nil {
		return Command{}, err
	}
	return Command{Verb: VerbLoad, Filename: filename}, nil
}

// String encodes the command in wire form.
func (c Command) String() string {
	switch c.Verb {
	case VerbSave:
		return string(VerbSave) + verbSep + string(c.Filename) + contentSep + c.Content
	case VerbSearch:
		return string(VerbSearch) + verbSep + c.Word
	case VerbLoad:
		return string(VerbLoad) + verbSep + string(c.Filename)
	default:
		return ""
	}
}

// Parse decodes a wire command. The filename of a save ends at the first
// "::"; everything after it is content.
func Parse(line string) (Command, error) {
	verb, rest, ok := strings.Cut(line, verbSep)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", schema.ErrInvalidCommand, truncate(line))
	}
	switch Verb(verb) {
	case VerbSave:
		name, content, ok := strings.Cut(rest, contentSep)
		if !ok {
			return Command{}, fmt.Errorf("%w: save requires filename::content", schema.ErrInvalidCommand)
		}
		return Save(schema.Filename(name), content)
	case VerbSearch:
		return Search(rest)
	case VerbLoad:
		return Load(schema.Filename(rest))
	default:
		return Command{}, fmt.Errorf("%w: unknown verb %q", schema.ErrInvalidCommand, verb)
	}
}

// IsNotFound reports whether a search response signals an absent word.
func IsNotFound(response string) bool {
	return strings.Contains(strings.ToLower(response), "not found")
}

func truncate(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

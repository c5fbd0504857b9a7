// Package bibtex reads and writes BibTeX citation files.
package bibtex

import (
	"fmt"
	"strings"
)

// Entry is one parsed BibTeX entry. Field names are lower-cased.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
}

// NewEntry creates an entry with an empty field map.
func NewEntry(entryType, key string) Entry {
	return Entry{
		Type:   strings.ToLower(entryType),
		Key:    key,
		Fields: make(map[string]string),
	}
}

// Get returns a field value, or "" if the field is absent.
func (e Entry) Get(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Set stores a field value. Empty values are not stored.
func (e Entry) Set(name, value string) {
	if value == "" {
		return
	}
	e.Fields[strings.ToLower(name)] = value
}

// SyntaxError describes a malformed entry.
type SyntaxError struct {
	Line int
	Key  string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Key, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// commonStrings are the month macros every BibTeX style predefines.
var commonStrings = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// Parse parses BibTeX source and returns its entries.
// A malformed entry is skipped and reported; parsing resumes at the next '@'.
// Field values are returned with LaTeX commands decoded to Unicode.
func Parse(data []byte) ([]Entry, []error) {
	p := &parser{src: string(data), macros: make(map[string]string, len(commonStrings))}
	for k, v := range commonStrings {
		p.macros[k] = v
	}
	return p.parse()
}

type parser struct {
	src    string
	pos    int
	macros map[string]string
}

func (p *parser) parse() ([]Entry, []error) {
	var entries []Entry
	var errs []error

	for {
		at := strings.IndexByte(p.src[p.pos:], '@')
		if at < 0 {
			break
		}
		p.pos += at + 1
		start := p.pos

		entry, ok, err := p.parseEntry()
		if err != nil {
			errs = append(errs, err)
			// Resume after the '@' that started the broken entry
			p.pos = start
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	return entries, errs
}

// parseEntry parses everything after an '@'. ok is false for
// @comment, @preamble and @string blocks.
func (p *parser) parseEntry() (Entry, bool, error) {
	entryType := strings.ToLower(p.readName())
	if entryType == "" {
		return Entry{}, false, nil // Stray '@' in free text
	}

	p.skipSpace()
	if p.eof() {
		return Entry{}, false, nil
	}
	open := p.src[p.pos]
	if open != '{' && open != '(' {
		return Entry{}, false, nil
	}
	closer := byte('}')
	if open == '(' {
		closer = ')'
	}
	p.pos++

	switch entryType {
	case "comment", "preamble":
		if err := p.skipBlock(closer); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	case "string":
		name, value, err := p.parseField(closer, "")
		if err != nil {
			return Entry{}, false, err
		}
		p.macros[strings.ToLower(name)] = value
		p.skipSpace()
		if !p.eof() && p.src[p.pos] == closer {
			p.pos++
		}
		return Entry{}, false, nil
	}

	p.skipSpace()
	key := strings.TrimSpace(p.readUntil(",", string(closer)))
	entry := NewEntry(entryType, key)

	for {
		p.skipSpace()
		if p.eof() {
			return Entry{}, false, p.errorf(key, "unterminated entry")
		}
		c := p.src[p.pos]
		if c == closer {
			p.pos++
			return entry, true, nil
		}
		if c == ',' {
			p.pos++
			continue
		}

		name, value, err := p.parseField(closer, key)
		if err != nil {
			return Entry{}, false, err
		}
		entry.Fields[strings.ToLower(name)] = DecodeLaTeX(strings.TrimSpace(value))
	}
}

// parseField parses `name = value [# value ...]`.
func (p *parser) parseField(closer byte, key string) (string, string, error) {
	p.skipSpace()
	name := p.readName()
	if name == "" {
		return "", "", p.errorf(key, "expected field name")
	}
	p.skipSpace()
	if p.eof() || p.src[p.pos] != '=' {
		return "", "", p.errorf(key, "expected '=' after field %q", name)
	}
	p.pos++

	var parts []string
	for {
		p.skipSpace()
		if p.eof() {
			return "", "", p.errorf(key, "unexpected end of input in field %q", name)
		}
		part, err := p.readValue(closer, key)
		if err != nil {
			return "", "", err
		}
		parts = append(parts, part)

		p.skipSpace()
		if !p.eof() && p.src[p.pos] == '#' {
			p.pos++
			continue
		}
		break
	}

	return name, strings.Join(parts, ""), nil
}

// readValue reads one braced, quoted, numeric or macro value.
func (p *parser) readValue(closer byte, key string) (string, error) {
	switch c := p.src[p.pos]; {
	case c == '{':
		p.pos++
		return p.readBalanced('}', key)
	case c == '"':
		p.pos++
		return p.readQuoted(key)
	case c >= '0' && c <= '9':
		start := p.pos
		for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		return p.src[start:p.pos], nil
	default:
		name := p.readName()
		if name == "" {
			return "", p.errorf(key, "unexpected character %q in value", c)
		}
		if v, ok := p.macros[strings.ToLower(name)]; ok {
			return v, nil
		}
		return name, nil
	}
}

// readBalanced returns content up to the matching closing brace, keeping nested braces.
func (p *parser) readBalanced(closer byte, key string) (string, error) {
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '\\':
			p.pos++ // Skip escaped character
		case '{':
			depth++
		case '}':
			if depth == 0 && closer == '}' {
				value := p.src[start:p.pos]
				p.pos++
				return value, nil
			}
			depth--
		}
	}
	return "", p.errorf(key, "unbalanced braces")
}

// readQuoted returns content up to the closing quote outside nested braces.
func (p *parser) readQuoted(key string) (string, error) {
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '\\':
			p.pos++
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				value := p.src[start:p.pos]
				p.pos++
				return value, nil
			}
		}
	}
	return "", p.errorf(key, "unterminated quoted value")
}

// skipBlock skips a @comment or @preamble body.
func (p *parser) skipBlock(closer byte) error {
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		if c == '{' || (c == '(' && closer == ')') {
			depth++
			continue
		}
		if c == closer && depth == 0 {
			p.pos++
			return nil
		}
		if c == '}' || (c == ')' && closer == ')') {
			depth--
		}
	}
	return p.errorf("", "unterminated block")
}

// readName reads an identifier (entry type, field name, macro).
func (p *parser) readName() string {
	start := p.pos
	for !p.eof() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// readUntil reads up to (not including) any of the stop bytes.
func (p *parser) readUntil(stops ...string) string {
	start := p.pos
	for !p.eof() {
		for _, s := range stops {
			if p.src[p.pos] == s[0] {
				return p.src[start:p.pos]
			}
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errorf(key, format string, args ...interface{}) error {
	end := p.pos
	if end > len(p.src) {
		end = len(p.src)
	}
	return &SyntaxError{
		Line: strings.Count(p.src[:end], "\n") + 1,
		Key:  key,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		strings.IndexByte("_-:.+/'", c) >= 0
}

// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Style is the placeholder syntax of a statement.
type Style int

const (
	// NoPlaceholders is reported for statements without parameters.
	NoPlaceholders Style = iota
	// Question marks each bind the next parameter.
	Question
	// Dollar placeholders $1, $2, ... bind the parameter at that position.
	Dollar
)

func (s Style) String() string {
	switch s {
	case NoPlaceholders:
		return "none"
	case Question:
		return "?"
	case Dollar:
		return "$N"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// Placeholders is the result of scanning statement text.
type Placeholders struct {
	Style Style
	// Count is the number of parameters the statement expects. For Dollar
	// placeholders it is the highest position used.
	Count int
}

// Parser scans SQL for parameter placeholders. String literals, quoted
// identifiers and comments are skipped.
type Parser struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int

	result Placeholders
}

func NewParser() *Parser {
	return &Parser{}
}

// Scan is a convenience for NewParser().Parse(input).
func Scan(input string) (Placeholders, error) {
	return NewParser().Parse(input)
}

// Parse returns the placeholders of input. A statement mixing the two
// placeholder styles is an error.
func (p *Parser) Parse(input string) (ph Placeholders, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot parse sql: %s", err)
		}
	}()

	p.init(input)
	for p.pos < len(p.input) {
		if ok, err := p.skipStringLiteral(); err != nil {
			return Placeholders{}, err
		} else if ok {
			continue
		}
		if p.skipComment() {
			continue
		}

		line, col := p.lineNum, p.colNum()
		switch {
		case p.skipChar('?'):
			if err := p.use(Question, line, col); err != nil {
				return Placeholders{}, err
			}
			p.result.Count++
			continue
		case p.peekChar('$'):
			n, ok := p.parseDollar()
			if !ok {
				break
			}
			if err := p.use(Dollar, line, col); err != nil {
				return Placeholders{}, err
			}
			p.result.Count = max(p.result.Count, n)
			continue
		}
		p.advanceChar()
	}
	return p.result, nil
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.pos = 0
	p.nextPos = 0
	p.char = 0
	p.lineNum = 1
	p.lineStart = 0
	p.result = Placeholders{}
	p.advanceChar()
}

// use records a placeholder of style s found at line and col.
func (p *Parser) use(s Style, line, col int) error {
	if p.result.Style != NoPlaceholders && p.result.Style != s {
		return errorAt(fmt.Errorf("%s placeholder in statement using %s placeholders", s, p.result.Style), line, col, p.input)
	}
	p.result.Style = s
	return nil
}

// colNum calculates the current column number taking into account line breaks.
func (p *Parser) colNum() int {
	return p.pos - p.lineStart + 1
}

// advanceChar moves the parser to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (p *Parser) advanceChar() bool {
	if p.nextPos >= len(p.input) {
		p.char = 0
		p.pos = p.nextPos
		return false
	}
	if p.char == '\n' {
		p.lineStart = p.nextPos
		p.lineNum++
	}
	var size int
	p.char, size = utf8.DecodeRuneInString(p.input[p.nextPos:])
	p.pos = p.nextPos
	p.nextPos += size
	return true
}

// errorAt wraps an error with line and column information.
func errorAt(err error, line int, column int, input string) error {
	if strings.ContainsRune(input, '\n') {
		return fmt.Errorf("line %d, column %d: %w", line, column, err)
	}
	return fmt.Errorf("column %d: %w", column, err)
}

// A checkpoint struct for saving parser state to restore later.
type checkpoint struct {
	parser    *Parser
	pos       int
	nextPos   int
	char      rune
	lineNum   int
	lineStart int
}

// save takes a snapshot of the state of the parser and returns a pointer to a
// checkpoint that represents it.
func (p *Parser) save() *checkpoint {
	return &checkpoint{
		parser:    p,
		pos:       p.pos,
		nextPos:   p.nextPos,
		char:      p.char,
		lineNum:   p.lineNum,
		lineStart: p.lineStart,
	}
}

// restore sets the internal state of the parser to the values stored in the
// checkpoint.
func (cp *checkpoint) restore() {
	cp.parser.pos = cp.pos
	cp.parser.nextPos = cp.nextPos
	cp.parser.char = cp.char
	cp.parser.lineNum = cp.lineNum
	cp.parser.lineStart = cp.lineStart
}

// parseDollar parses a $N placeholder. A dollar sign not followed by a
// positive number is left for the caller to skip.
func (p *Parser) parseDollar() (int, bool) {
	cp := p.save()
	p.advanceChar()
	start := p.pos
	for p.pos < len(p.input) && p.char >= '0' && p.char <= '9' {
		p.advanceChar()
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil || n < 1 {
		cp.restore()
		return 0, false
	}
	return n, true
}

// skipComment jumps over comments as defined by the SQLite spec. If no comment
// is found the parser state is left unchanged.
func (p *Parser) skipComment() bool {
	cp := p.save()
	c := p.char
	if p.skipChar('-') || p.skipChar('/') {
		if (c == '-' && p.skipChar('-')) || (c == '/' && p.skipChar('*')) {
			var end rune
			if c == '-' {
				end = '\n'
			} else {
				end = '*'
			}
			for p.pos < len(p.input) {
				if p.char == end {
					// A -- comment leaves the newline in place.
					if end == '*' {
						p.advanceChar()
						if !p.skipChar('/') {
							continue
						}
					}
					return true
				}
				p.advanceChar()
			}
			// Reached end of input (valid comment end).
			return true
		}
		cp.restore()
		return false
	}
	return false
}

// skipStringLiteral jumps over single quoted strings, double quoted and
// backtick quoted identifiers. Doubled up quotes are escaped.
func (p *Parser) skipStringLiteral() (bool, error) {
	cp := p.save()

	c := p.char
	if p.skipChar('"') || p.skipChar('\'') || p.skipChar('`') {
		// We keep track of whether the next quote has been previously
		// escaped. If not, it might be a closing quote.
		maybeCloser := true
		for p.skipCharFind(c) {
			if maybeCloser && !p.peekChar(c) {
				return true, nil
			}
			maybeCloser = !maybeCloser
		}

		// Reached end of string and didn't find the closing quote
		cp.restore()
		return false, errorAt(fmt.Errorf("missing closing quote in string literal"), p.lineNum, p.colNum(), p.input)
	}
	return false, nil
}

// peekChar returns true if the current char equals the one passed as parameter.
func (p *Parser) peekChar(c rune) bool {
	return p.pos < len(p.input) && p.char == c
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (p *Parser) skipChar(c rune) bool {
	if p.pos < len(p.input) && p.char == c {
		p.advanceChar()
		return true
	}
	return false
}

// skipCharFind looks for a char that matches the one passed as parameter and
// then advances the parser to jump over it. In that case returns true. If the
// end of the string is reached and no matching char was found, it returns
// false and it does not change the parser.
func (p *Parser) skipCharFind(c rune) bool {
	cp := p.save()
	for p.pos < len(p.input) {
		if p.char == c {
			p.advanceChar()
			return true
		}
		p.advanceChar()
	}
	cp.restore()
	return false
}

// Package parser decodes project YAML documents and checks them for
// characters that break downstream tooling.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// IllegalChars are runes rejected in definition and mapping files.
var IllegalChars = []rune{'\u202f'}

// ErrIllegalChar is returned when a document contains one of IllegalChars.
var ErrIllegalChar = errors.New("illegal character")

// Position locates a character inside a document (1-based).
type Position struct {
	Line int
	Col  int
	Char rune
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, col %d (%U)", p.Line, p.Col, p.Char)
}

// Decode unmarshals a YAML document into out.
func Decode(data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parser: decode: %w", err)
	}
	return nil
}

// FindIllegal returns the position of every illegal character in data.
func FindIllegal(data []byte) []Position {
	var out []Position
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	line := 0
	for sc.Scan() {
		line++
		col := 0
		for _, r := range sc.Text() {
			col++
			for _, bad := range IllegalChars {
				if r == bad {
					out = append(out, Position{Line: line, Col: col, Char: r})
				}
			}
		}
	}
	return out
}

// Validate checks that data parses as YAML and contains no illegal
// characters. All problems are joined into one error.
func Validate(name string, data []byte) error {
	var errs []error
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		errs = append(errs, fmt.Errorf("parser: %s: %w", name, err))
	}
	for _, p := range FindIllegal(data) {
		errs = append(errs, fmt.Errorf("parser: %s, %s: %w", name, p, ErrIllegalChar))
	}
	return errors.Join(errs...)
}

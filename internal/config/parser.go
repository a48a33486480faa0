// SPDX-License-Identifier: GPL-3.0

// Package config loads config.txt (§6): a whitespace-insensitive,
// '%'-comment grammar of "Name=value1,value2,..." lines. Multi-valued
// parameters are swept as a Cartesian product, with the RNG seed forming
// the innermost loop. The flat key/value store itself is koanf/v2 (pulled
// from dantte-lp-gobfd, which already wires koanf providers/parsers for its
// own config), extended here with a small koanf.Parser implementation
// (rawParser) for config.txt's grammar, since it isn't one of koanf's
// built-in formats.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ErrSyntax is returned for a malformed config.txt line (§7 "Syntax").
type ErrSyntax struct {
	Line int
	Text string
}

func (e *ErrSyntax) Error() string {
	return fmt.Sprintf("config: syntax error at line %d: %q", e.Line, e.Text)
}

// rawParser implements koanf.Parser for config.txt's "Name=v1,v2[%comment]"
// grammar: it tokenizes the whole file into a flat map from key (trimmed,
// case preserved) to the ordered list of raw value tokens, which callers
// in this package then interpret and sweep.
type rawParser struct{}

// newRawParser returns a fresh rawParser.
func newRawParser() *rawParser { return &rawParser{} }

// Unmarshal implements koanf.Parser.
func (rawParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	scanner := bufio.NewScanner(bytes.NewReader(b))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, &ErrSyntax{Line: lineNo, Text: scanner.Text()}
		}
		name := strings.TrimSpace(line[:eq])
		if name == "" {
			return nil, &ErrSyntax{Line: lineNo, Text: scanner.Text()}
		}
		rawVals := strings.Split(line[eq+1:], ",")
		vals := make([]interface{}, 0, len(rawVals))
		for _, v := range rawVals {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			vals = append(vals, v)
		}
		out[name] = vals
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal implements koanf.Parser. config.txt is a write-only-by-humans
// format; the simulator never round-trips it, so this only needs to exist
// to satisfy the interface.
func (rawParser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for k, v := range m {
		fmt.Fprintf(&buf, "%s=%v\n", k, v)
	}
	return buf.Bytes(), nil
}

// stripComment removes everything from the first '%' onward.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '%'); i >= 0 {
		return line[:i]
	}
	return line
}

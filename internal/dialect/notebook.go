// ABOUTME: Jupyter notebook adapter: markdown cell sources are translatable, everything else is literal JSON
// ABOUTME: Spans cover the escaped string contents of a cell source; Decode and Encode move text in and out
package dialect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/harper/transdoc/internal/models"
)

// Notebook is the dialect name for .ipynb files
const Notebook = "notebook"

// Embedded is implemented by dialects whose translatable spans hold escaped text of another
// dialect. Chunks are hashed and translated in decoded form and encoded again on output.
type Embedded interface {
	Decode(raw string) (string, error)
	Encode(text string) string
	// Inner is the dialect of the decoded text
	Inner() Dialect
}

// Markers carry no characters JSON escapes, so they appear verbatim inside a cell source
var nbMarker = regexp.MustCompile(`<!-- ` + markerFields + ` -->`)

type notebook struct{}

// NewNotebook returns the Jupyter notebook adapter
func NewNotebook() Dialect {
	return notebook{}
}

func (notebook) Name() string { return Notebook }

func (notebook) FormatMarker(p models.Provenance) string {
	return NewMarkdown().FormatMarker(p)
}

func (notebook) ParseMarker(line string) (models.Provenance, bool) {
	return NewMarkdown().ParseMarker(line)
}

func (notebook) Inner() Dialect {
	return NewMarkdown()
}

// Decode reads the contents of one or more consecutive JSON strings as a single text
func (notebook) Decode(raw string) (string, error) {
	var parts []string
	if err := json.Unmarshal([]byte(`["`+raw+`"]`), &parts); err != nil {
		return "", fmt.Errorf("decoding cell text: %w", err)
	}
	return strings.Join(parts, ""), nil
}

// Encode escapes text for use between the quotes of a JSON string
func (notebook) Encode(text string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(text)
	out := strings.TrimSuffix(buf.String(), "\n")
	return out[1 : len(out)-1]
}

func (d notebook) Split(text string) ([]models.Span, error) {
	sources, err := cellSources(text)
	if err != nil {
		return nil, err
	}
	var spans []models.Span
	for _, src := range sources {
		if src.cellType != "markdown" {
			continue
		}
		spans = append(spans, splitSource(text, src)...)
	}
	return spans, nil
}

// cellSource locates a cell's source value: from just after the first string's opening quote
// to its last string's closing quote
type cellSource struct {
	cellType string
	start    int
	end      int
}

// unit is one escape sequence or byte of a source value
type unit struct {
	start, end int
	blank      bool
}

// splitSource cuts one markdown cell at its markers. Text between markers is translatable once
// JSON glue and surrounding whitespace are trimmed; markers are literal.
func splitSource(text string, src cellSource) []models.Span {
	units := sourceUnits(text, src.start, src.end)
	content := text[src.start:src.end]

	var spans []models.Span
	prose := func(from, to int) {
		first, last := -1, -1
		for _, u := range units {
			if u.start < from || u.end > to || u.blank {
				continue
			}
			if first < 0 {
				first = u.start
			}
			last = u.end
		}
		if first >= 0 {
			spans = append(spans, models.Span{Start: first, End: last, Kind: models.ChunkTranslatable})
		}
	}

	cur := src.start
	for _, m := range nbMarker.FindAllStringIndex(content, -1) {
		ms, me := src.start+m[0], src.start+m[1]
		prose(cur, ms)
		spans = append(spans, models.Span{Start: ms, End: me, Kind: models.ChunkLiteral})
		cur = me
	}
	prose(cur, src.end)
	return spans
}

// sourceUnits tokenizes [start, end) of a source value. Quotes, commas and whitespace between
// strings are blank glue, as are escaped newlines, tabs and spaces inside them.
func sourceUnits(text string, start, end int) []unit {
	var units []unit
	inString := true
	for i := start; i < end; {
		c := text[i]
		switch {
		case c == '"':
			units = append(units, unit{start: i, end: i + 1, blank: true})
			inString = !inString
			i++
		case !inString:
			units = append(units, unit{start: i, end: i + 1, blank: true})
			i++
		case c == '\\':
			n := 2
			if i+1 < end && text[i+1] == 'u' {
				n = 6
			}
			if i+n > end {
				n = end - i
			}
			esc := text[i : i+n]
			units = append(units, unit{start: i, end: i + n, blank: esc == `\n` || esc == `\t` || esc == `\r`})
			i += n
		default:
			units = append(units, unit{start: i, end: i + 1, blank: c == ' '})
			i++
		}
	}
	return units
}

// cellSources walks the notebook JSON and returns where each cell's source lives
func cellSources(text string) ([]cellSource, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	fail := func(reason string) error {
		return segErr(Notebook, int(dec.InputOffset()), reason)
	}

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fail("notebook is not a JSON object")
	}
	var sources []cellSource
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, fail(err.Error())
		}
		if key != "cells" {
			if err := skipValue(dec); err != nil {
				return nil, fail(err.Error())
			}
			continue
		}
		if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
			return nil, fail("cells is not an array")
		}
		for dec.More() {
			src, err := readCell(dec, text)
			if err != nil {
				return nil, fail(err.Error())
			}
			if src != nil {
				sources = append(sources, *src)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fail(err.Error())
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fail(err.Error())
	}
	return sources, nil
}

// readCell consumes one cell object and returns its non-empty source, if any
func readCell(dec *json.Decoder, text string) (*cellSource, error) {
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("cell is not an object")
	}
	src := cellSource{start: -1}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch key {
		case "cell_type":
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			s, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("cell_type is not a string")
			}
			src.cellType = s
		case "source":
			if err := readSource(dec, text, &src); err != nil {
				return nil, err
			}
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if src.start < 0 || src.end <= src.start {
		return nil, nil
	}
	return &src, nil
}

// readSource records the byte range of a source value written as a string or an array of strings
func readSource(dec *json.Decoder, text string, src *cellSource) error {
	before := int(dec.InputOffset())
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if _, ok := tok.(string); ok {
		src.start = strings.IndexByte(text[before:], '"') + before + 1
		src.end = int(dec.InputOffset()) - 1
		return nil
	}
	if tok != json.Delim('[') {
		return fmt.Errorf("source is neither a string nor an array")
	}
	for dec.More() {
		before = int(dec.InputOffset())
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if _, ok := tok.(string); !ok {
			return fmt.Errorf("source line is not a string")
		}
		if src.start < 0 {
			src.start = strings.IndexByte(text[before:], '"') + before + 1
		}
		src.end = int(dec.InputOffset()) - 1
	}
	_, err = dec.Token()
	return err
}

// skipValue consumes the next value whatever its shape
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

package descriptor

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// element is one entry of a descriptor with its attributes by name.
type element struct {
	name  string
	line  int
	attrs map[string]string
}

// elements collects every element named name, at any depth.
func elements(r io.Reader, name string) ([]element, error) {
	dec := xml.NewDecoder(r)

	var out []element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "malformed xml")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != name {
			continue
		}

		line, _ := dec.InputPos()
		el := element{name: name, line: line, attrs: make(map[string]string, len(se.Attr))}
		for _, a := range se.Attr {
			el.attrs[a.Name.Local] = a.Value
		}
		out = append(out, el)
	}
}

func (e element) has(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// attrReader reads typed attributes and keeps the first error.
type attrReader struct {
	el  element
	err error
}

func (r *attrReader) fail(key, format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Errorf("line %d: <%s> attribute %s: "+format,
			append([]interface{}{r.el.line, r.el.name, key}, args...)...)
	}
}

func (r *attrReader) raw(key string) (string, bool) {
	v, ok := r.el.attrs[key]
	if !ok {
		r.fail(key, "missing")
	}
	return v, ok
}

// str returns a required attribute, which may be empty.
func (r *attrReader) str(key string) string {
	v, _ := r.raw(key)
	return v
}

// optional returns an attribute or "" when absent.
func (r *attrReader) optional(key string) string {
	return r.el.attrs[key]
}

// number parses a required decimal or 0x-prefixed hexadecimal attribute.
func (r *attrReader) number(key string) uint64 {
	v, ok := r.raw(key)
	if !ok {
		return 0
	}
	n, err := parseUint(v)
	if err != nil {
		r.fail(key, "invalid number %q", v)
		return 0
	}
	return n
}

// flag parses a required boolean attribute.
func (r *attrReader) flag(key string) bool {
	v, ok := r.raw(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	r.fail(key, "invalid boolean %q", v)
	return false
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

package descriptor

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Kind is the type of a descriptor file.
type Kind int

const (
	Unknown Kind = iota
	Patch
	Program
	UFS
	Contents
)

func (k Kind) String() string {
	switch k {
	case Patch:
		return "patch"
	case Program:
		return "program"
	case UFS:
		return "ufs"
	case Contents:
		return "contents"
	default:
		return "unknown"
	}
}

// Classify determines the descriptor type from the root element and, for
// <data> documents, the first direct child that names a known entry.
// Other children such as <erase> or <read> are skipped.
func Classify(r io.Reader) (Kind, error) {
	dec := xml.NewDecoder(r)

	root, err := nextElement(dec)
	if err != nil {
		return Unknown, errors.Wrap(err, "read root element")
	}

	switch root.Name.Local {
	case "patches":
		return Patch, nil
	case "contents":
		return Contents, nil
	case "data":
	default:
		return Unknown, nil
	}

	for {
		child, err := nextElement(dec)
		if err == io.EOF {
			return Unknown, nil
		}
		if err != nil {
			return Unknown, errors.Wrap(err, "read entry")
		}

		switch child.Name.Local {
		case "program":
			return Program, nil
		case "ufs":
			return UFS, nil
		}
		if err := dec.Skip(); err != nil {
			return Unknown, errors.Wrapf(err, "skip <%s>", child.Name.Local)
		}
	}
}

// Detect classifies the descriptor file at path.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, errors.Wrap(err, "open descriptor")
	}
	defer func() { _ = f.Close() }()

	return Classify(f)
}

// nextElement returns the next start element, or io.EOF when the element
// stream ends first.
func nextElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, io.EOF
		}
	}
}

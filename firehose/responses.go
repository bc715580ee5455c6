package firehose

import (
	"bytes"
	"encoding/xml"
	"io"

	qdl "github.com/moffa90/go-qdl"
)

// RecordKind distinguishes diagnostic records from terminal responses.
type RecordKind int

const (
	RecordLog RecordKind = iota
	RecordResponse
)

// Record is one element of a device document.
type Record struct {
	Kind RecordKind

	// Value is the log text, or ACK/NAK for a response
	Value string

	// RawMode is set on a response announcing a raw payload exchange
	RawMode bool

	// Attrs holds every attribute of the element
	Attrs map[string]string
}

// ACK reports whether the record is a positive response.
func (r Record) ACK() bool {
	return r.Kind == RecordResponse && r.Value == ValueACK
}

// documentEnd terminates every device document.
var documentEnd = []byte("</data>")

// splitDocument returns the first complete document in buf and the bytes
// after it. ok is false when no complete document is buffered yet.
func splitDocument(buf []byte) (doc, rest []byte, ok bool) {
	i := bytes.Index(buf, documentEnd)
	if i < 0 {
		return nil, buf, false
	}
	end := i + len(documentEnd)
	return buf[:end], buf[end:], true
}

// ParseRecords decodes the log and response records of one device document.
// Unknown elements are skipped. A response without a valid value, or with a
// rawmode that is not a boolean, is a protocol error.
func ParseRecords(doc []byte) ([]Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		records []Record
		depth   int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, qdl.Protocolf("parse response", "malformed xml: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if t.Name.Local != "data" {
					return nil, qdl.Protocolf("parse response", "unexpected root <%s>", t.Name.Local)
				}
				continue
			}
			if depth != 2 {
				continue
			}
			rec, ok, err := parseRecord(t)
			if err != nil {
				return nil, err
			}
			if ok {
				records = append(records, rec)
			}
		case xml.EndElement:
			depth--
		}
	}

	if depth != 0 {
		return nil, qdl.Protocolf("parse response", "unterminated document")
	}
	return records, nil
}

func parseRecord(se xml.StartElement) (Record, bool, error) {
	attrs := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		attrs[a.Name.Local] = a.Value
	}

	switch se.Name.Local {
	case "log":
		return Record{Kind: RecordLog, Value: attrs["value"], Attrs: attrs}, true, nil

	case "response":
		rec := Record{Kind: RecordResponse, Attrs: attrs}
		value, ok := attrs["value"]
		if !ok {
			return rec, false, qdl.Protocolf("parse response", "response without value")
		}
		if value != ValueACK && value != ValueNAK {
			return rec, false, qdl.Protocolf("parse response", "unknown response value %q", value)
		}
		rec.Value = value

		switch raw, ok := attrs["rawmode"]; {
		case !ok, raw == "false":
		case raw == "true":
			rec.RawMode = true
		default:
			return rec, false, qdl.Protocolf("parse response", "invalid rawmode %q", raw)
		}
		return rec, true, nil

	default:
		return Record{}, false, nil
	}
}

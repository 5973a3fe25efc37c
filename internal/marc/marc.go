// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package marc decodes MARCXML records into a flat field list suitable for
// JSON or YAML output, and provides the record predicates used to filter a
// harvest.
package marc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrNotMARC is returned when the document root is not a MARCXML record.
var ErrNotMARC = errors.New("marc: document is not a MARCXML record")

// Subfield is a coded data element of a data field.
type Subfield struct {
	Code  string `json:"code" yaml:"code"`
	Value string `json:"value" yaml:"value"`
}

// Field is a control field (Value set) or a data field (indicators and
// subfields set), in record order.
type Field struct {
	Tag       string     `json:"tag" yaml:"tag"`
	Value     string     `json:"value,omitempty" yaml:"value,omitempty"`
	Ind1      string     `json:"ind1,omitempty" yaml:"ind1,omitempty"`
	Ind2      string     `json:"ind2,omitempty" yaml:"ind2,omitempty"`
	Subfields []Subfield `json:"subfields,omitempty" yaml:"subfields,omitempty"`
}

// Control reports whether f is a control field (tags 001-009).
func (f Field) Control() bool {
	return strings.HasPrefix(f.Tag, "00")
}

// Record is a decoded MARC bibliographic record.
type Record struct {
	Leader string  `json:"leader" yaml:"leader"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Convert decodes a MARCXML <record> document. Its signature matches the
// harvesting converter hook, so it can back a domain metadata format.
func Convert(xmlText string) (any, error) {
	return Parse(xmlText)
}

// Parse decodes a MARCXML <record>, with or without a namespace prefix.
func Parse(xmlText string) (*Record, error) {
	var doc xmlRecord
	if err := xml.Unmarshal([]byte(xmlText), &doc); err != nil {
		return nil, fmt.Errorf("marc: decoding record: %w", err)
	}
	if doc.XMLName.Local != "record" {
		return nil, fmt.Errorf("%w: root <%s>", ErrNotMARC, doc.XMLName.Local)
	}

	r := &Record{Leader: doc.Leader}
	for _, el := range doc.Fields {
		f := Field{Tag: el.Tag}
		switch el.XMLName.Local {
		case "controlfield":
			f.Value = el.Value
		case "datafield":
			f.Ind1, f.Ind2 = el.Ind1, el.Ind2
			for _, sf := range el.Subfields {
				f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: sf.Value})
			}
		default:
			continue
		}
		r.Fields = append(r.Fields, f)
	}
	return r, nil
}

// Get returns the fields with the given tag in record order.
func (r *Record) Get(tag string) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// SubfieldValues returns the values of every subfield code in fields tagged tag.
func (r *Record) SubfieldValues(tag, code string) []string {
	var out []string
	for _, f := range r.Get(tag) {
		for _, sf := range f.Subfields {
			if sf.Code == code {
				out = append(out, sf.Value)
			}
		}
	}
	return out
}

// HasISBN reports whether an 020 field carries a non-empty $a.
func (r *Record) HasISBN() bool {
	for _, v := range r.SubfieldValues("020", "a") {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// IsComponentPart reports whether the record describes a part of a host
// item: bibliographic level a, b or d in leader/07, or a 773 host entry.
func (r *Record) IsComponentPart() bool {
	if len(r.Leader) > 7 {
		switch r.Leader[7] {
		case 'a', 'b', 'd':
			return true
		}
	}
	return len(r.Get("773")) > 0
}

// Filter drops records a harvest is not interested in.
type Filter struct {
	// ISBNless drops records without an ISBN.
	ISBNless bool

	// ComponentParts drops component part records.
	ComponentParts bool
}

// Active reports whether any predicate is enabled.
func (f Filter) Active() bool {
	return f.ISBNless || f.ComponentParts
}

// Keep reports whether r passes the filter.
func (f Filter) Keep(r *Record) bool {
	if f.ISBNless && !r.HasISBN() {
		return false
	}
	if f.ComponentParts && r.IsComponentPart() {
		return false
	}
	return true
}

type xmlRecord struct {
	XMLName xml.Name
	Leader  string     `xml:"leader"`
	Fields  []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName   xml.Name
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Value     string        `xml:",chardata"`
	Subfields []xmlSubfield `xml:"subfield"`
}

type xmlSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

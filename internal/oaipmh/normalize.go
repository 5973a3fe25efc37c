// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/oai-harvest/internal/xmltree"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// Normalize extracts the header of a raw <record> and, for active records,
// its <metadata> element. The metadata of a deleted record is never read.
// A datestamp that does not parse is kept in RawDatestamp.
func Normalize(raw *etree.Element) (types.RecordHeader, *etree.Element, error) {
	h := raw.SelectElement("header")
	if h == nil {
		return types.RecordHeader{}, nil, &DecodeError{Err: errors.New("record has no header")}
	}

	header := types.RecordHeader{
		Identifier: xmltree.ChildText(h, "identifier"),
		Status:     types.StatusActive,
	}
	if h.SelectAttrValue("status", "") == string(types.StatusDeleted) {
		header.Status = types.StatusDeleted
	}

	stamp := xmltree.ChildText(h, "datestamp")
	if stamp == "" {
		return types.RecordHeader{}, nil, &DecodeError{Err: fmt.Errorf("record %q has no datestamp", header.Identifier)}
	}
	if ts, err := ParseDatestamp(stamp); err == nil {
		header.Datestamp = ts
	} else {
		header.RawDatestamp = stamp
	}

	for _, s := range h.SelectElements("setSpec") {
		header.Sets = append(header.Sets, strings.TrimSpace(s.Text()))
	}

	if header.Deleted() {
		return header, nil, nil
	}
	return header, raw.SelectElement("metadata"), nil
}

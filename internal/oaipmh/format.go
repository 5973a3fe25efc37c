// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"errors"

	"github.com/beevik/etree"

	"github.com/pdiddy/oai-harvest/internal/xmltree"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// Converter turns the re-serialized XML text of a metadata payload into a
// domain object.
type Converter func(xmlText string) (any, error)

// Formatter produces the representation of an active record's <metadata>
// element. It never modifies the tree it is given.
type Formatter func(metadata *etree.Element) (any, error)

var (
	errNoMetadata = errors.New("active record has no metadata element")
	errNoPayload  = errors.New("metadata element has no child element")
)

// NewFormatter resolves format to a Formatter. The empty format means
// object. Formats other than object and string are looked up in converters.
func NewFormatter(format types.MetadataFormat, converters map[types.MetadataFormat]Converter) (Formatter, error) {
	switch format {
	case "", types.FormatObject:
		return formatObject, nil
	case types.FormatString:
		return formatString, nil
	}
	convert, ok := converters[format]
	if !ok || convert == nil {
		return nil, &UnsupportedFormatError{Format: format}
	}
	return func(metadata *etree.Element) (any, error) {
		text, err := formatString(metadata)
		if err != nil {
			return nil, err
		}
		return convert(text.(string))
	}, nil
}

// formatObject returns a detached copy, so consumers may edit it freely.
func formatObject(metadata *etree.Element) (any, error) {
	if metadata == nil {
		return nil, errNoMetadata
	}
	return metadata.Copy(), nil
}

// formatString re-serializes the payload element, the single child of
// <metadata>, as a standalone document.
func formatString(metadata *etree.Element) (any, error) {
	if metadata == nil {
		return nil, errNoMetadata
	}
	payload := metadata.ChildElements()
	if len(payload) == 0 {
		return nil, errNoPayload
	}
	return xmltree.Document(payload[0]), nil
}

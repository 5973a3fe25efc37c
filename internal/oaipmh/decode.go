// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/oai-harvest/internal/xmltree"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// Page is the decoded result of one ListRecords round trip. When Error is
// set, Records and Token are always empty.
type Page struct {
	Records []*etree.Element
	Token   *types.ResumptionToken
	Error   *ProtocolError
}

// Decode parses a ListRecords response body. Malformed XML, a root other
// than OAI-PMH, or a missing ListRecords element yield a *DecodeError.
func Decode(body string) (Page, error) {
	root, err := xmltree.Parse(body)
	if err != nil {
		return Page{}, &DecodeError{Err: err}
	}
	if root.Tag != "OAI-PMH" {
		return Page{}, &DecodeError{Err: fmt.Errorf("unexpected root element <%s>", root.FullTag())}
	}

	if perr := protocolError(root); perr != nil {
		return Page{Error: perr}, nil
	}

	list := root.SelectElement("ListRecords")
	if list == nil {
		return Page{}, &DecodeError{Err: errors.New("response has no ListRecords element")}
	}

	return Page{
		Records: list.SelectElements("record"),
		Token:   resumptionToken(list.SelectElement("resumptionToken")),
	}, nil
}

// protocolError returns the first <error> element of root, if any.
func protocolError(root *etree.Element) *ProtocolError {
	el := root.SelectElement("error")
	if el == nil {
		return nil
	}
	return &ProtocolError{
		Code:    ErrorCode(strings.TrimSpace(el.SelectAttrValue("code", ""))),
		Message: strings.TrimSpace(xmltree.Text(el)),
	}
}

// resumptionToken extracts a token. An empty element marks the last page of
// a list and yields nil. Malformed optional attributes are left unset.
func resumptionToken(el *etree.Element) *types.ResumptionToken {
	if el == nil {
		return nil
	}
	value := strings.TrimSpace(el.Text())
	if value == "" {
		return nil
	}
	tok := &types.ResumptionToken{Token: value}
	if a := el.SelectAttr("expirationDate"); a != nil {
		if t, err := ParseDatestamp(a.Value); err == nil {
			tok.ExpirationDate = t
		}
	}
	tok.Cursor = intAttr(el, "cursor")
	tok.CompleteListSize = intAttr(el, "completeListSize")
	return tok
}

func intAttr(el *etree.Element, name string) *int {
	a := el.SelectAttr(name)
	if a == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err != nil {
		return nil
	}
	return &n
}

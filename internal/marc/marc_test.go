// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package marc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookXML = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<marc:record xmlns:marc="http://www.loc.gov/MARC21/slim">
	<marc:leader>00000cam^a22000004i^4500</marc:leader>
	<marc:controlfield tag="001">000123</marc:controlfield>
	<marc:controlfield tag="008">240115s2024    fi |||||||||||||||||fin|c</marc:controlfield>
	<marc:datafield tag="020" ind1=" " ind2=" ">
		<marc:subfield code="a">978-951-0-00000-0</marc:subfield>
		<marc:subfield code="q">sidottu</marc:subfield>
	</marc:datafield>
	<marc:datafield tag="245" ind1="1" ind2="0">
		<marc:subfield code="a">Otsikko /</marc:subfield>
		<marc:subfield code="c">Tekijä.</marc:subfield>
	</marc:datafield>
</marc:record>`

const articleXML = `<record xmlns="http://www.loc.gov/MARC21/slim">
	<leader>00000nab a2200000 i 4500</leader>
	<controlfield tag="001">000456</controlfield>
	<datafield tag="773" ind1="0" ind2=" "><subfield code="t">Host journal</subfield></datafield>
</record>`

func TestParse(t *testing.T) {
	r, err := Parse(bookXML)
	require.NoError(t, err)

	assert.Equal(t, "00000cam^a22000004i^4500", r.Leader)
	require.Len(t, r.Fields, 4)
	assert.Equal(t, Field{Tag: "001", Value: "000123"}, r.Fields[0])
	assert.True(t, r.Fields[0].Control())
	assert.False(t, r.Fields[2].Control())
	assert.Equal(t, " ", r.Fields[2].Ind1)
	assert.Equal(t, []string{"Otsikko /"}, r.SubfieldValues("245", "a"))
	assert.Equal(t, []string{"sidottu"}, r.SubfieldValues("020", "q"))
	assert.Empty(t, r.Get("100"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("<record><leader>")
	assert.Error(t, err)

	_, err = Parse("<collection/>")
	assert.ErrorIs(t, err, ErrNotMARC)
}

func TestConvert_JSONShape(t *testing.T) {
	v, err := Convert(articleXML)
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"leader": "00000nab a2200000 i 4500",
		"fields": [
			{"tag": "001", "value": "000456"},
			{"tag": "773", "ind1": "0", "ind2": " ", "subfields": [{"code": "t", "value": "Host journal"}]}
		]
	}`, string(out))
}

func TestFilter(t *testing.T) {
	book, err := Parse(bookXML)
	require.NoError(t, err)
	article, err := Parse(articleXML)
	require.NoError(t, err)

	assert.True(t, book.HasISBN())
	assert.False(t, book.IsComponentPart())
	assert.False(t, article.HasISBN())
	assert.True(t, article.IsComponentPart())

	tests := []struct {
		name        string
		filter      Filter
		keepBook    bool
		keepArticle bool
	}{
		{"none", Filter{}, true, true},
		{"isbnless", Filter{ISBNless: true}, true, false},
		{"components", Filter{ComponentParts: true}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keepBook, tt.filter.Keep(book))
			assert.Equal(t, tt.keepArticle, tt.filter.Keep(article))
		})
	}
	assert.False(t, Filter{}.Active())
}

func TestIsComponentPart_Host773Only(t *testing.T) {
	r := &Record{Leader: "00000cam a2200000 i 4500", Fields: []Field{{Tag: "773"}}}
	assert.True(t, r.IsComponentPart())
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDC = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
  <oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/">
    <dc:title>Fish &amp; Chips</dc:title>
    <dc:creator>Smith, J.</dc:creator>
    <dc:creator>Doe, A.</dc:creator>
    <dc:identifier type="uri">http://example.org/1</dc:identifier>
    <dc:relation/>
  </oai_dc:dc>
</metadata>`

func TestParse_Tree(t *testing.T) {
	root, err := Parse(sampleDC)
	require.NoError(t, err)

	assert.Equal(t, "metadata", root.Tag)
	require.Len(t, root.ChildElements(), 1)

	dc := root.ChildElements()[0]
	assert.Equal(t, "oai_dc:dc", dc.FullTag())
	assert.Equal(t, "dc", dc.Tag)
	assert.Equal(t, "oai_dc", dc.Space)

	assert.Equal(t, "Fish & Chips", ChildText(dc, "title"))
	assert.Len(t, dc.SelectElements("creator"), 2)
	assert.Equal(t, "Doe, A.", dc.SelectElements("creator")[1].Text())
	assert.Equal(t, "uri", dc.SelectElement("identifier").SelectAttrValue("type", ""))

	assert.Nil(t, dc.SelectElement("missing"))
	assert.Equal(t, "", ChildText(dc, "missing"))
	assert.Equal(t, "", ChildText(nil, "title"))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated", "<OAI-PMH><unterminated"},
		{"mismatched end", "<a><b></a></b>"},
		{"unclosed root", "<a><b/>"},
		{"two roots", "<a/><b/>"},
		{"text outside root", "<a/>junk"},
		{"empty", ""},
		{"bad entity", "<a>&nope;</a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestDocument_PrettyTabs(t *testing.T) {
	root, err := Parse(`<r a="1"><x>t</x><y><z/></y></r>`)
	require.NoError(t, err)

	want := Declaration + "\n" +
		"<r a=\"1\">\n" +
		"\t<x>t</x>\n" +
		"\t<y>\n" +
		"\t\t<z/>\n" +
		"\t</y>\n" +
		"</r>"
	assert.Equal(t, want, Document(root))
}

func TestDocument_MixedContentKeepsOrder(t *testing.T) {
	root, err := Parse(`<metadata><dc><title>alpha <i>beta</i> gamma</title></dc></metadata>`)
	require.NoError(t, err)

	want := Declaration + "\n" +
		"<dc>\n" +
		"\t<title>alpha <i>beta</i> gamma</title>\n" +
		"</dc>"
	got := Document(root.SelectElement("dc"))
	assert.Equal(t, want, got)

	again, err := Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", Text(again.SelectElement("title")))
}

func TestDocument_InheritsNamespaces(t *testing.T) {
	root, err := Parse(`<OAI-PMH xmlns:marc="http://www.loc.gov/MARC21/slim"><metadata><marc:record><marc:leader>x</marc:leader></marc:record></metadata></OAI-PMH>`)
	require.NoError(t, err)

	rec := root.SelectElement("metadata").SelectElement("record")
	require.NotNil(t, rec)

	doc := Document(rec)
	assert.Contains(t, doc, `<marc:record xmlns:marc="http://www.loc.gov/MARC21/slim">`)
	assert.Empty(t, rec.Attr, "the source tree is not modified")

	reparsed, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "x", ChildText(reparsed, "leader"))
	assert.Equal(t, "http://www.loc.gov/MARC21/slim", reparsed.NamespaceURI())
}

func TestDocument_RoundTrip(t *testing.T) {
	inputs := []string{
		sampleDC,
		`<a>mixed <b>bold</b> tail</a>`,
		`<a q="&quot;x&quot; &amp; &lt;y&gt;"><b>  padded  </b></a>`,
		`<a><![CDATA[<raw>]]></a>`,
	}
	for _, in := range inputs {
		first, err := Parse(in)
		require.NoError(t, err)

		second, err := Parse(Document(first))
		require.NoError(t, err)

		assert.Equal(t, Document(first), Document(second))
		assert.Equal(t, squash(Text(first)), squash(Text(second)))
	}
}

func TestText_DocumentOrder(t *testing.T) {
	root, err := Parse(`<p>one <b>two <i>three</i></b> four</p>`)
	require.NoError(t, err)
	assert.Equal(t, "one two three four", Text(root))
}

func TestDocument_LeavesSourceUntouched(t *testing.T) {
	root, err := Parse(`<a k="v"><b>1</b></a>`)
	require.NoError(t, err)

	doc := Document(root)
	assert.Contains(t, doc, "\n\t<b>1</b>\n")
	assert.Len(t, root.Child, 1, "indentation is applied to a copy")

	root.SelectElement("b").SetText("2")
	assert.Contains(t, doc, "<b>1</b>")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

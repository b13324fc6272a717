package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostcode(t *testing.T) {
	tests := []struct {
		token   string
		kind    PostcodeKind
		area    string
		outcode string
		incode  string
	}{
		{"YO17", OutcodeOnly, "YO", "YO17", ""},
		{"yo17 7hg", CompletePostcode, "YO", "YO17", "7HG"},
		{"YO177HG", CompletePostcode, "YO", "YO17", "7HG"},
		{"SW1A 1AA", CompletePostcode, "SW", "SW1A", "1AA"},
		{"S1", OutcodeOnly, "S", "S1", ""},
		{"M1 1AE", CompletePostcode, "M", "M1", "1AE"},
		{"QQ1", NotPostcode, "", "", ""},
		{"York", NotPostcode, "", "", ""},
		{"12345", NotPostcode, "", "", ""},
		{"YO17 7CI", NotPostcode, "", "", ""},
		{"", NotPostcode, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			pc, kind := ParsePostcode(tt.token)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.area, pc.Area)
			assert.Equal(t, tt.outcode, pc.Outcode)
			assert.Equal(t, tt.incode, pc.Incode)
		})
	}
}

func TestFindPostcodes(t *testing.T) {
	matches := FindPostcodes("335kw wind turbine in ryedale yo17 and one at rg1 1jx")
	require.Len(t, matches, 2)

	assert.Equal(t, "YO17", matches[0].Postcode.String())
	assert.Equal(t, OutcodeOnly, matches[0].Kind)
	assert.Equal(t, "RG1 1JX", matches[1].Postcode.String())
	assert.Equal(t, CompletePostcode, matches[1].Kind)

	text := "sites near sl6"
	m := FindPostcodes(text)
	require.Len(t, m, 1)
	assert.Equal(t, "sl6", text[m[0].Start:m[0].End])
}

func TestFindPostcodesIgnoresQuantities(t *testing.T) {
	assert.Empty(t, FindPostcodes("over 100kw installed after 2015 within 10 miles"))
}

func TestInAreas(t *testing.T) {
	assert.True(t, InAreas("SL6 1AA", []string{"RG", "SL"}))
	assert.True(t, InAreas("rg14 5xx", []string{"RG", "SL"}))
	assert.False(t, InAreas("S1 2AB", []string{"SL"}), "S must not match SL")
	assert.False(t, InAreas("SL6 1AA", []string{"S"}), "SL must not match S")
	assert.False(t, InAreas("", []string{"S"}))
}

func TestPostcodeOutcode(t *testing.T) {
	assert.Equal(t, "YO17", PostcodeOutcode("yo17 7hg"))
	assert.Equal(t, "YO17", PostcodeOutcode("YO177HG"))
	assert.Equal(t, "SL6", PostcodeOutcode("SL6"))
}

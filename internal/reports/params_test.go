package reports

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeReport() Report {
	return Report{
		Name: "sales_by_rca_range",
		Params: []ParamSpec{
			{Name: "codusur", Kind: KindCode},
			{Name: "data1", Kind: KindDate},
			{Name: "data2", Kind: KindDate, NotBefore: "data1"},
		},
		SQL: "SELECT * FROM v WHERE codusur = ? AND data BETWEEN TO_DATE(?, 'DD/MM/YYYY') AND TO_DATE(?, 'DD/MM/YYYY')",
	}
}

func TestBind_Valid(t *testing.T) {
	r := rangeReport()
	params, err := r.Bind(url.Values{
		"codusur": {"15"},
		"data1":   {"01/02/2025"},
		"data2":   {"28/02/2025"},
	})
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, int64(15), params[0].Value)
	assert.Equal(t, "01/02/2025", params[1].Value)
	assert.Equal(t, "28/02/2025", params[2].Value)

	req := r.Request(params)
	assert.Equal(t, "sales_by_rca_range", req.Name)
	assert.Equal(t, r.SQL, req.Template)
}

func TestBind_Rejects(t *testing.T) {
	r := rangeReport()
	cases := []struct {
		name   string
		values url.Values
		param  string
		reason ValidationReason
	}{
		{"missing code", url.Values{"data1": {"01/02/2025"}, "data2": {"01/02/2025"}}, "codusur", ReasonMissingParam},
		{"zero code", url.Values{"codusur": {"0"}, "data1": {"01/02/2025"}, "data2": {"01/02/2025"}}, "codusur", ReasonNonPositiveCode},
		{"negative code", url.Values{"codusur": {"-3"}, "data1": {"01/02/2025"}, "data2": {"01/02/2025"}}, "codusur", ReasonNonPositiveCode},
		{"text code", url.Values{"codusur": {"1 OR 1=1"}, "data1": {"01/02/2025"}, "data2": {"01/02/2025"}}, "codusur", ReasonMalformedCode},
		{"iso date", url.Values{"codusur": {"1"}, "data1": {"2025-02-01"}, "data2": {"01/02/2025"}}, "data1", ReasonMalformedDate},
		{"impossible date", url.Values{"codusur": {"1"}, "data1": {"31/02/2025"}, "data2": {"01/03/2025"}}, "data1", ReasonMalformedDate},
		{"empty date", url.Values{"codusur": {"1"}, "data1": {""}, "data2": {"01/03/2025"}}, "data1", ReasonMissingParam},
		{"inverted range", url.Values{"codusur": {"1"}, "data1": {"10/02/2025"}, "data2": {"01/02/2025"}}, "data2", ReasonInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Bind(tc.values)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.param, ve.Param)
			assert.Equal(t, tc.reason, ve.Reason)
			assert.NotEmpty(t, ve.Detail())
		})
	}
}

func TestBind_Text(t *testing.T) {
	r := Report{
		Name: "promotions",
		Params: []ParamSpec{
			{Name: "codfilial", Kind: KindCode},
			{Name: "condicoes", Kind: KindText, MaxLen: 10},
		},
	}
	params, err := r.Bind(url.Values{"codfilial": {"1"}, "condicoes": {"' OR '1'='1"}})
	require.NoError(t, err)
	assert.Equal(t, "' OR '1'='1", params[1].Value, "text is bound verbatim")

	params, err = r.Bind(url.Values{"codfilial": {"1"}, "condicoes": {""}})
	require.NoError(t, err)
	assert.Equal(t, "", params[1].Value)

	_, err = r.Bind(url.Values{"codfilial": {"1"}, "condicoes": {strings.Repeat("a", 11)}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonTextTooLong, ve.Reason)

	_, err = r.Bind(url.Values{"codfilial": {"1"}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonMissingParam, ve.Reason)
}

func TestBind_SensitiveFlagCarriesThrough(t *testing.T) {
	r := Report{Params: []ParamSpec{{Name: "doc", Kind: KindText, Sensitive: true}}}
	params, err := r.Bind(url.Values{"doc": {"12345678900"}})
	require.NoError(t, err)
	assert.True(t, params[0].Sensitive)
}

func TestBind_TextIsAlwaysSensitive(t *testing.T) {
	r := Report{Params: []ParamSpec{
		{Name: "codfilial", Kind: KindCode},
		{Name: "q", Kind: KindText},
	}}
	params, err := r.Bind(url.Values{"codfilial": {"1"}, "q": {"customer cpf 123.456.789-00"}})
	require.NoError(t, err)
	assert.False(t, params[0].Sensitive)
	assert.True(t, params[1].Sensitive)
}

package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "simple", input: "people"},
		{name: "underscore_prefix", input: "_hidden"},
		{name: "mixed", input: "Table_2"},
		{name: "empty", input: "", wantErr: "name is required"},
		{name: "dash", input: "my-table", wantErr: "must match"},
		{name: "space", input: "my table", wantErr: "must match"},
		{name: "leading_digit", input: "1col", wantErr: "must match"},
		{name: "quote_injection", input: `x"; DROP TABLE y; --`, wantErr: "must match"},
		{name: "too_long", input: strings.Repeat("a", 129), wantErr: "at most 128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"people"`, QuoteIdentifier("people"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'hello'`, QuoteLiteral("hello"))
	assert.Equal(t, `'it''s'`, QuoteLiteral("it's"))
}

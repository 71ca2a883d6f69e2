package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputValidator_ValidateFeedURL(t *testing.T) {
	validator := NewInputValidator()

	tests := map[string]struct {
		input   string
		wantErr bool
	}{
		"plain https feed":       {input: "https://example.com/feed.xml", wantErr: false},
		"http allowed":           {input: "http://example.com/rss", wantErr: false},
		"missing scheme allowed": {input: "example.com/feed", wantErr: false},
		"query string allowed":   {input: "https://example.com/feed?format=rss", wantErr: false},
		"empty":                  {input: "", wantErr: true},
		"whitespace only":        {input: "   ", wantErr: true},
		"ftp scheme rejected":    {input: "ftp://example.com/feed", wantErr: true},
		"javascript scheme":      {input: "javascript:alert(1)", wantErr: true},
		"embedded script tag":    {input: "https://example.com/<script>alert(1)</script>", wantErr: true},
		"control characters":     {input: "https://example.com/feed\x00", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := validator.ValidateFeedURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInputValidator_ValidateName(t *testing.T) {
	validator := NewInputValidator()

	tests := map[string]struct {
		input   string
		wantErr bool
	}{
		"plain name":         {input: "Tech News", wantErr: false},
		"unicode name":       {input: "ニュース", wantErr: false},
		"empty":              {input: "", wantErr: true},
		"whitespace only":    {input: "  ", wantErr: true},
		"newline rejected":   {input: "Tech\nNews", wantErr: true},
		"script injection":   {input: `<script>alert(1)</script>`, wantErr: true},
		"event handler attr": {input: `x" onload="evil()`, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := validator.ValidateName("name", tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Equal(t, "name", verr.Field)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInputValidator_ValidateExternalID(t *testing.T) {
	validator := NewInputValidator()

	assert.NoError(t, validator.ValidateExternalID("record_id", "feed-1234.abc:web"))
	assert.Error(t, validator.ValidateExternalID("record_id", ""))
	assert.Error(t, validator.ValidateExternalID("record_id", "has spaces"))
	assert.Error(t, validator.ValidateExternalID("record_id", "emoji💥"))
}

package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsletter-gate/internal/common/errors"
)

func TestFluentValidator_RequireString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid string", "hello", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFluentValidator().RequireString(tt.value, "heading")
			assert.Equal(t, tt.wantErr, v.HasErrors())
		})
	}
}

func TestFluentValidator_RequireHexColor(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"#fff", false},
		{"#000000", false},
		{"#A1b2C3", false},
		{"fff", true},
		{"#ggg", true},
		{"red", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := NewFluentValidator().RequireHexColor(tt.value, "bg_color")
			assert.Equal(t, tt.wantErr, v.HasErrors())
		})
	}
}

func TestFluentValidator_RequireEmail(t *testing.T) {
	assert.False(t, NewFluentValidator().RequireEmail("reader@example.com", "email").HasErrors())
	assert.True(t, NewFluentValidator().RequireEmail("not-an-email", "email").HasErrors())
	assert.True(t, NewFluentValidator().RequireEmail("", "email").HasErrors())

	assert.True(t, IsEmail("a@b.co"))
	assert.False(t, IsEmail("a@"))
}

func TestFluentValidator_RequireURL(t *testing.T) {
	assert.False(t, NewFluentValidator().RequireURL("https://login.example.com/oauth2/authorize", "authorize_url").HasErrors())
	assert.True(t, NewFluentValidator().RequireURL("/relative", "authorize_url").HasErrors())
	assert.True(t, NewFluentValidator().RequireURL("ftp://files.example.com", "authorize_url").HasErrors())
}

func TestFluentValidator_CombinesMessages(t *testing.T) {
	v := NewFluentValidatorWithPrefix("settings").
		RequireHexColor("blue", "color").
		RequireOneOf("x", []string{"0", "1"}, "enable_subscribe").
		RequireMaxLength("toolong", 3, "button")

	err := v.Error()
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "settings: color must be a hex color such as #fff")
	assert.Contains(t, err.Error(), "settings: enable_subscribe must be one of: 0, 1")
	assert.Len(t, v.FieldErrors(), 3)
	assert.Equal(t, "settings.color", v.FieldErrors()[0].Field)
}

func TestFluentValidator_ValidateIf(t *testing.T) {
	failing := func() error { return fmt.Errorf("boom") }

	assert.False(t, NewFluentValidator().ValidateIf(false, failing).HasErrors())
	assert.True(t, NewFluentValidator().ValidateIf(true, failing).HasErrors())
	assert.NoError(t, NewFluentValidator().Error())
}

func TestCustomTags(t *testing.T) {
	assert.NoError(t, ValidateVar("mailchimp", "provider_id"))
	assert.Error(t, ValidateVar("Mail Chimp", "provider_id"))
	assert.Error(t, ValidateVar("", "provider_id"))

	assert.NoError(t, ValidateVar("a1b2c3", "list_id"))
	assert.NoError(t, ValidateVar("", "list_id"))
	assert.Error(t, ValidateVar("bad\nid", "list_id"))
}

func TestValidateStruct(t *testing.T) {
	type login struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}

	assert.NoError(t, ValidateStruct(login{Username: "admin", Password: "longenough"}))

	err := ValidateStruct(login{Password: "short"})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "field 'username' is required")
	assert.Contains(t, err.Error(), "field 'password' must be at least 8")
}

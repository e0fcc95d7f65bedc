package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Teacher123!", true},
		{"Student123!", true},
		{"Sh0rt!", false},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigitsHere!", false},
		{"NoSymbols123", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrongPassword(tt.password))
		})
	}
}

func TestCheckPassword_ListsMissingRequirements(t *testing.T) {
	err := CheckPassword("abc")
	require.Error(t, err)
	assert.Equal(t, "password must contain at least 8 characters, an uppercase letter, a digit, a symbol", err.Error())

	assert.NoError(t, CheckPassword("Abcdefg1!"))
}

type newAccount struct {
	Username string `validate:"required,min=3"`
	Password string `validate:"required,strongpassword"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(newAccount{Username: "anna", Password: "Passw0rd!"}))

	err := Struct(newAccount{Username: "an", Password: "password"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username must be at least 3 characters")
	assert.Contains(t, err.Error(), "password must contain an uppercase letter, a digit, a symbol")

	err = Struct(newAccount{})
	require.Error(t, err)
	assert.Equal(t, "username is required; password is required", err.Error())
}

package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSchema_Validate_DuplicateID(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "name", Label: "Name", ExpectedType: FieldTypeText},
		{ID: "name", Label: "Name (again)", ExpectedType: FieldTypeText},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "duplicate field id")
}

func TestFormSchema_Validate_EmptyID(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "", Label: "Nameless", ExpectedType: FieldTypeText},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestFormSchema_Validate_UnknownType(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "f1", ExpectedType: FieldType("blob")},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestFormSchema_Validate_EmptyTypeDefaultsToText(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{{ID: "f1", Label: "Notes"}}}

	require.NoError(t, s.Validate())
	assert.Equal(t, FieldTypeText, s.Fields[0].ExpectedType)
}

func TestFormSchema_Validate_ChoiceWithoutOptions(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "f1", ExpectedType: FieldTypeChoice},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "no enumerated options")
}

func TestFormSchema_Validate_CompilesPattern(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "plz", ExpectedType: FieldTypeText, Constraints: &Constraints{Pattern: `^\d{5}$`}},
	}}

	require.NoError(t, s.Validate())
	re := s.Fields[0].Constraints.CompiledPattern()
	require.NotNil(t, re)
	assert.True(t, re.MatchString("10115"))
	assert.False(t, re.MatchString("1011"))
}

func TestFormSchema_Validate_InvalidPattern(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "f1", ExpectedType: FieldTypeText, Constraints: &Constraints{Pattern: `([`}},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestFormSchema_Validate_InvalidDateFormat(t *testing.T) {
	s := &FormSchema{Fields: []FieldDescriptor{
		{ID: "f1", ExpectedType: FieldTypeDate, Constraints: &Constraints{Format: "whenever"}},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestFormSchema_Validate_EmptySchemaOK(t *testing.T) {
	s := &FormSchema{Name: "empty"}
	assert.NoError(t, s.Validate())
}

func TestDateLayout(t *testing.T) {
	layout, err := DateLayout("DD.MM.YYYY")
	require.NoError(t, err)
	assert.Equal(t, "02.01.2006", layout)

	layout, err = DateLayout("YYYY-MM-DD")
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02", layout)

	layout, err = DateLayout("DD/MM/YY")
	require.NoError(t, err)
	assert.Equal(t, "02/01/06", layout)

	_, err = DateLayout("no tokens here")
	assert.Error(t, err)
}

func TestFieldDescriptor_DateFormat_Fallback(t *testing.T) {
	f := FieldDescriptor{ID: "d1", ExpectedType: FieldTypeDate}
	assert.Equal(t, DefaultDateFormat, f.DateFormat())

	f.Constraints = &Constraints{Format: "YYYY-MM-DD"}
	assert.Equal(t, "YYYY-MM-DD", f.DateFormat())
}

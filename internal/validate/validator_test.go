package validate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/internal/validate"
)

var bookRules = validate.Rules{
	"title":  "required|string",
	"author": "required|string",
	"rating": "required|integer|min:1|max:5",
	"review": "string",
}

func decode(t *testing.T, raw string) validate.Payload {
	t.Helper()
	var p validate.Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func Test_Validate_PassesCompletePayload(t *testing.T) {
	p := decode(t, `{"title":"Dune","author":"Herbert","rating":5,"review":"great"}`)

	res := validate.Validate(p, bookRules)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func Test_Validate_MissingRequiredFields(t *testing.T) {
	for _, field := range []string{"title", "author", "rating"} {
		t.Run(field, func(t *testing.T) {
			p := decode(t, `{"title":"Dune","author":"Herbert","rating":5}`)
			delete(p, field)

			res := validate.Validate(p, bookRules)

			assert.False(t, res.Valid)
			require.Contains(t, res.Errors, field)
			assert.Equal(t, "The "+field+" field is required.", res.Errors[field][0])
		})
	}
}

func Test_Validate_RatingOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		rating string
		want   []string
	}{
		{name: "zero", rating: `0`, want: []string{"The rating must be at least 1."}},
		{name: "negative", rating: `-3`, want: []string{"The rating must be at least 1."}},
		{name: "six", rating: `6`, want: []string{"The rating may not be greater than 5."}},
		{name: "fraction", rating: `4.5`, want: []string{"The rating must be an integer."}},
		{name: "word", rating: `"abc"`, want: []string{
			"The rating must be an integer.",
			"The rating must be at least 1.",
			"The rating may not be greater than 5.",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decode(t, `{"title":"Dune","author":"Herbert","rating":`+tt.rating+`}`)

			res := validate.Validate(p, bookRules)

			assert.False(t, res.Valid)
			assert.Equal(t, tt.want, res.Errors["rating"])
			assert.Len(t, res.Errors, 1)
		})
	}
}

func Test_Validate_NumericStringRatingPasses(t *testing.T) {
	p := decode(t, `{"title":"Dune","author":"Herbert","rating":"4"}`)

	res := validate.Validate(p, bookRules)

	assert.True(t, res.Valid)
}

func Test_Validate_AccumulatesAcrossFields(t *testing.T) {
	p := decode(t, `{"title":"","author":42,"rating":9,"review":false}`)

	res := validate.Validate(p, bookRules)

	assert.False(t, res.Valid)
	assert.Equal(t, map[string][]string{
		"title":  {"The title field is required."},
		"author": {"The author must be a string."},
		"rating": {"The rating may not be greater than 5."},
		"review": {"The review must be a string."},
	}, res.Errors)
}

func Test_Validate_IgnoresUnknownAndOptionalFields(t *testing.T) {
	p := decode(t, `{"title":"Dune","author":"Herbert","rating":3,"genre":7,"extra":{"x":1}}`)

	res := validate.Validate(p, bookRules)

	assert.True(t, res.Valid)
}

func Test_Validate_NullCountsAsMissing(t *testing.T) {
	p := decode(t, `{"title":null,"author":"Herbert","rating":3,"review":null}`)

	res := validate.Validate(p, bookRules)

	assert.Equal(t, map[string][]string{"title": {"The title field is required."}}, res.Errors)
}

func Test_Validate_StringLengthBounds(t *testing.T) {
	rules := validate.Rules{"user_name": "string|min:3|max:5"}

	short := validate.Validate(validate.Payload{"user_name": "ab"}, rules)
	long := validate.Validate(validate.Payload{"user_name": "abcdef"}, rules)
	ok := validate.Validate(validate.Payload{"user_name": "héllo"}, rules)

	assert.Equal(t, []string{"The user name must be at least 3 characters."}, short.Errors["user_name"])
	assert.Equal(t, []string{"The user name may not be greater than 5 characters."}, long.Errors["user_name"])
	assert.True(t, ok.Valid)
}

func Test_Compile_RejectsMalformedRules(t *testing.T) {
	for _, expr := range []string{"required|bogus", "min", "max:abc"} {
		_, err := validate.Compile(validate.Rules{"f": expr})
		assert.Error(t, err, expr)
	}
}

func Test_Payload_Casts(t *testing.T) {
	p := decode(t, `{"s":"x","n":4,"ns":"5","f":3.9,"b":true,"o":{}}`)

	assert.Equal(t, "x", p.String("s"))
	assert.Equal(t, "4", p.String("n"))
	assert.Equal(t, "true", p.String("b"))
	assert.Equal(t, "", p.String("o"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, 4, p.Int("n"))
	assert.Equal(t, 5, p.Int("ns"))
	assert.Equal(t, 3, p.Int("f"))
	assert.Equal(t, 0, p.Int("s"))
}

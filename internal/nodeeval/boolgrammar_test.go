package nodeeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalBoolExpr(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"true & false", false},
		{"true | false", true},
		{"!true", false},
		{"!false & true", true},
		{"(true | false) & false", false},
		{"!(true & false)", true},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := evalBoolExpr(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalBoolExprRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"true &",
		"(true",
		"true true",
		"maybe",
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := evalBoolExpr(src)
			assert.Error(t, err)
		})
	}
}

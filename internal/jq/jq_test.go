package jq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	doc := []byte(`{"results":[{"module":"discovery/whoami","status":"success"},{"module":"persistence/create-user","status":"failure"}]}`)

	testCases := []struct {
		name      string
		expr      string
		expected  string
		expectErr bool
	}{
		{
			name:     "select field",
			expr:     ".results[0].module",
			expected: `"discovery/whoami"`,
		},
		{
			name:     "filter by status",
			expr:     `[.results[] | select(.status == "failure") | .module]`,
			expected: `["persistence/create-user"]`,
		},
		{
			name:     "count",
			expr:     ".results | length",
			expected: "2",
		},
		{
			name:     "missing key yields null",
			expr:     ".nonexistent",
			expected: "null",
		},
		{
			name:      "empty expression",
			expr:      "",
			expectErr: true,
		},
		{
			name:      "invalid expression",
			expr:      ".results[",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Apply(doc, tc.expr)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(result))
		})
	}
}

func TestApplyRejectsInvalidJSON(t *testing.T) {
	_, err := Apply([]byte("not json"), ".")
	assert.Error(t, err)
}

package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	testCases := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "equal", a: "1.0", b: "1.0", expected: 0},
		{name: "numeric order", a: "2.0", b: "1.9", expected: 1},
		{name: "multi segment", a: "1.10", b: "1.9", expected: 1},
		{name: "shorter is older", a: "1.2", b: "1.2.1", expected: -1},
		{name: "trailing zero equal", a: "1.2", b: "1.2.0", expected: 0},
		{name: "plain integers", a: "3", b: "12", expected: -1},
		{name: "non numeric falls back to string order", a: "2024-01", b: "2024-02", expected: -1},
		{name: "mixed falls back to string order", a: "1.0-beta", b: "1.0", expected: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, CompareVersions(tc.a, tc.b))
			require.Equal(t, -tc.expected, CompareVersions(tc.b, tc.a))
		})
	}
}

func TestChecksum(t *testing.T) {
	require.Equal(t, Checksum([]byte("deck")), Checksum([]byte("deck")))
	require.NotEqual(t, Checksum([]byte("deck")), Checksum([]byte("deck2")))
	require.Len(t, Checksum(nil), 40)
}

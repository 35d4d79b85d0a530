package ulid

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixedIDs(t *testing.T) {
	cases := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"temp", TempID, PrefixTemp},
		{"request", RequestID, PrefixRequest},
		{"sweep", SweepID, PrefixSweep},
		{"setting", SettingID, PrefixSetting},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := tc.gen()

			assert.True(t, strings.HasPrefix(id, tc.prefix+PrefixSeparator))
			// prefix plus a 26-character ULID
			assert.Len(t, id, len(tc.prefix)+1+26)

			// Back-to-back ids must differ
			assert.NotEqual(t, id, tc.gen())
		})
	}
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID(TempID()))

	// Real identifiers must never be mistaken for temporary ones
	assert.False(t, IsTempID("cat_01AN4Z07BY79KA1307SR9X4MV3"))
	assert.False(t, IsTempID(RequestID()))
	assert.False(t, IsTempID(""))
	assert.False(t, IsTempID("temporary"))
}

func TestTempIDsSortByCreation(t *testing.T) {
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = TempID()
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted, "ids minted in sequence must sort in mint order")
}

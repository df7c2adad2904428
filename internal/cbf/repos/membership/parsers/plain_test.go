package parsers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/cbf/internal/cbf/common/log"
)

func TestParseItemList(t *testing.T) {
	in := strings.Join([]string{
		"\uFEFFalpha",
		"# full comment",
		"",
		"   beta   # inline",
		"alpha",
		"gamma delta",
		"\t",
	}, "\n")

	items, err := ParseItemList(strings.NewReader(in), "test", log.NewNoopLogger())
	require.NoError(t, err)

	got := make([]string, len(items))
	for i, it := range items {
		got[i] = string(it)
	}
	assert.Equal(t, []string{"alpha", "beta", "alpha", "gamma delta"}, got)
}

func TestParseItemList_Empty(t *testing.T) {
	items, err := ParseItemList(strings.NewReader(""), "empty", log.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, items)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestParseItemList_ReadError(t *testing.T) {
	items, err := ParseItemList(errReader{}, "broken", log.NewNoopLogger())
	assert.EqualError(t, err, "read failed")
	assert.Nil(t, items)
}

func TestParseItemList_LongLine(t *testing.T) {
	long := strings.Repeat("x", 70_000)
	_, err := ParseItemList(strings.NewReader(long), "long", log.NewNoopLogger())
	assert.Error(t, err, "lines beyond the scanner buffer fail the parse")
}

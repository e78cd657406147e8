package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", d.String())

	_, err = Parse("10/05/2024")
	assert.Error(t, err)
	_, err = Parse("2024-5-10")
	assert.Error(t, err)
}

func TestOfTruncates(t *testing.T) {
	instant := time.Date(2024, 5, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2024-05-10", Of(instant).String())

	// A zoned instant truncates to its UTC day.
	zone := time.FixedZone("UTC+5", 5*60*60)
	late := time.Date(2024, 5, 11, 2, 0, 0, 0, zone)
	assert.Equal(t, "2024-05-10", Of(late).String())
}

func TestComparisons(t *testing.T) {
	a, _ := Parse("2024-05-10")
	b := a.AddDays(1)

	assert.True(t, b.After(a))
	assert.True(t, a.Before(b))
	assert.False(t, a.After(a))
	assert.True(t, a.Equal(a))
	assert.True(t, a.AddDays(0).Equal(a))
}

func TestJSON(t *testing.T) {
	d, _ := Parse("2024-05-10")
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-10"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Equal(d))

	var zero Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"2024-05-10T00:00:00Z"`), &back))
}

func TestScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-10", d.String())

	require.NoError(t, d.Scan("2024-06-01"))
	assert.Equal(t, "2024-06-01", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

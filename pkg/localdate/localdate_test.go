package localdate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2025-01-08")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-08", d.String())
	assert.Equal(t, time.Wednesday, d.Weekday())

	_, err = Parse("08/01/2025")
	assert.Error(t, err)
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "2025-02-01", MustParse("2025-01-29").AddDays(3).String())
	assert.Equal(t, "2025-01-01", MustParse("2024-12-31").AddDays(1).String())
	assert.Equal(t, "2024-02-29", MustParse("2024-03-01").AddDays(-1).String())
}

func TestDaysBetween(t *testing.T) {
	calc := NewFixedCalculator(MustParse("2025-01-01"))
	assert.Equal(t, 59, calc.DaysBetween(MustParse("2025-01-01"), MustParse("2025-03-01")))
	assert.Equal(t, -7, calc.DaysBetween(MustParse("2025-01-08"), MustParse("2025-01-01")))
}

func TestCalculatorWeekdayHelpers(t *testing.T) {
	calc := NewFixedCalculator(MustParse("2025-01-01"))
	assert.True(t, calc.IsWeekday(MustParse("2025-01-10")))
	assert.False(t, calc.IsWeekday(MustParse("2025-01-11")))
	assert.True(t, calc.IsSaturday(MustParse("2025-01-11")))
	assert.Equal(t, "2025-01-11", calc.NextSaturday(MustParse("2025-01-08")).String())
	assert.Equal(t, "2025-01-11", calc.NextSaturday(MustParse("2025-01-11")).String())
	assert.Equal(t, "2025-01-01", calc.FormatISO(calc.Today()))
}

func TestTodayUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	calc := &Calculator{loc: loc, now: func() time.Time {
		return time.Date(2025, 1, 2, 1, 30, 0, 0, time.UTC)
	}}
	assert.Equal(t, "2025-01-01", calc.Today().String())
}

func TestScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2025-03-01"))
	assert.Equal(t, "2025-03-01", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-04-02", d.String())

	require.NoError(t, d.Scan([]byte("2025-05-03T00:00:00Z")))
	assert.Equal(t, "2025-05-03", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-05-03", v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestJSONCodec(t *testing.T) {
	type payload struct {
		Date    Date  `json:"date"`
		Missing *Date `json:"missing"`
	}
	raw, err := json.Marshal(payload{Date: MustParse("2025-01-15")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-01-15","missing":null}`, string(raw))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-02-01"}`), &decoded))
	assert.Equal(t, "2025-02-01", decoded.Date.String())
}

func TestDateUsableAsMapKey(t *testing.T) {
	m := map[Date]int{}
	m[MustParse("2025-01-10")]++
	m[MustParse("2025-01-09").AddDays(1)]++
	m[New(2025, time.January, 10)]++
	assert.Equal(t, 3, m[MustParse("2025-01-10")])
}

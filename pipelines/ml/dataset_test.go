package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecords(t *testing.T) {
	t.Run("infers column types", func(t *testing.T) {
		ds, err := FromRecords("csv", []string{"date", "site", "flow", "note"}, [][]string{
			{"2024-01-01", "A", "100", "ok"},
			{"2024-01-02", "B", "", "12"},
		})
		require.NoError(t, err)

		date, _ := ds.Column("date")
		assert.Equal(t, "datetime", date.DataType)

		flow, _ := ds.Column("flow")
		assert.Equal(t, "numeric", flow.DataType)
		assert.Equal(t, 1, flow.NullCount)

		// Mixed text/number stays a string column.
		note, _ := ds.Column("note")
		assert.Equal(t, "string", note.DataType)
	})

	t.Run("numeric cells are normalized to float64", func(t *testing.T) {
		ds, err := FromRecords("csv", []string{"v"}, [][]string{{"1.5"}, {"2"}})
		require.NoError(t, err)
		assert.Equal(t, 1.5, ds.Rows[0]["v"])
		assert.Equal(t, 2.0, ds.Rows[1]["v"])
	})

	t.Run("short records pad with nulls", func(t *testing.T) {
		ds, err := FromRecords("csv", []string{"a", "b"}, [][]string{{"1"}})
		require.NoError(t, err)
		assert.Nil(t, ds.Rows[0]["b"])
	})

	t.Run("empty header", func(t *testing.T) {
		_, err := FromRecords("csv", nil, nil)
		assert.Error(t, err)
	})
}

func TestDataset_SortByDate(t *testing.T) {
	ds, err := FromRecords("csv", []string{"date", "v"}, [][]string{
		{"2024-03-01", "3"},
		{"2024-01-01", "1"},
		{"bogus", "0"},
		{"2024-02-01", "2"},
	})
	require.NoError(t, err)

	require.NoError(t, ds.SortByDate("date"))

	values, err := ds.NumericColumn("v")
	require.NoError(t, err)
	// The unparseable date sorts first as the zero time.
	assert.Equal(t, []float64{0, 1, 2, 3}, values)

	assert.ErrorIs(t, ds.SortByDate("missing"), ErrColumnNotFound)
}

func TestDataset_CopyIsIndependent(t *testing.T) {
	ds, err := FromRecords("csv", []string{"v"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)

	cp := ds.Copy()
	cp.Rows[0]["v"] = 99.0
	cp.Columns[0].Name = "renamed"

	assert.Equal(t, 1.0, ds.Rows[0]["v"])
	assert.Equal(t, "v", ds.Columns[0].Name)
}

func TestDataset_Head(t *testing.T) {
	ds, err := FromRecords("csv", []string{"v"}, [][]string{{"1"}, {"2"}, {"3"}})
	require.NoError(t, err)

	head := ds.Head(2)
	assert.Equal(t, 2, head.RowCount())
	assert.Equal(t, 3, ds.RowCount())

	assert.Equal(t, 3, ds.Head(10).RowCount())
}

func TestDataset_Columns(t *testing.T) {
	ds, err := FromRecords("csv", []string{"v", "s"}, [][]string{{"1", "x"}, {"", "y"}})
	require.NoError(t, err)

	t.Run("numeric column uses NaN for nulls", func(t *testing.T) {
		values, err := ds.NumericColumn("v")
		require.NoError(t, err)
		assert.Equal(t, 1.0, values[0])
		assert.True(t, math.IsNaN(values[1]))
	})

	t.Run("string column uses empty for nulls", func(t *testing.T) {
		values, err := ds.StringColumn("s")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, values)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := ds.NumericColumn("nope")
		assert.ErrorIs(t, err, ErrColumnNotFound)
		_, err = ds.Column("nope")
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestDataset_Stats(t *testing.T) {
	ds, err := FromRecords("csv", []string{"v"}, [][]string{{"1"}, {"2"}, {""}, {"3"}})
	require.NoError(t, err)

	stats, err := ds.Stats("v")
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 3.0, stats.Max)
	assert.InDelta(t, 2.0, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.StdDev, 1e-9)
	assert.Equal(t, 3, stats.Count)

	t.Run("all nulls", func(t *testing.T) {
		empty, err := FromRecords("csv", []string{"v"}, [][]string{{""}, {""}})
		require.NoError(t, err)
		_, err = empty.Stats("v")
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

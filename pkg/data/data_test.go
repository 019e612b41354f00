package data

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ettSample = `date,HUFL,HULL,OT
2016-07-01 00:00:00,5.827,2.009,30.531
2016-07-01 01:00:00,5.693,2.076,27.787
2016-07-01 02:00:00,,1.741,27.787
`

func TestCSVReader_Wide(t *testing.T) {
	tbl, err := NewCSVReader().Decode(context.Background(), strings.NewReader(ettSample))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, "date", tbl.IndexName)
	assert.Equal(t, []string{"HUFL", "HULL", "OT"}, tbl.Columns())
	assert.Equal(t, 1, tbl.Index[1].Hour())

	hufl, err := tbl.Column("HUFL")
	require.NoError(t, err)
	assert.Equal(t, 5.693, hufl[1])
	assert.True(t, math.IsNaN(hufl[2]))
}

func TestCSVReader_WideWithoutIndexSkipsUniqueID(t *testing.T) {
	in := "a,b,unique_id\n1,2,x_raw\n3,4,x_raw\n"
	tbl, err := NewCSVReader().Decode(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.False(t, tbl.HasIndex())
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
}

func TestCSVReader_LongIsPivoted(t *testing.T) {
	in := `unique_id,ds,y
OT,2016-07-01 00:00:00,1
OT,2016-07-01 01:00:00,2
0,2016-07-01 00:00:00,10
0,2016-07-01 01:00:00,20
`
	tbl, err := NewCSVReader().Decode(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "ds", tbl.IndexName)
	assert.Equal(t, []string{"OT", "0"}, tbl.Columns())
	zero, err := tbl.Column("0")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, zero)

	ragged := "unique_id,ds,y\nOT,2016-07-01,1\nOT,2016-07-02,2\n0,2016-07-01,3\n"
	_, err = NewCSVReader().Decode(context.Background(), strings.NewReader(ragged))
	assert.Error(t, err)
}

func TestCSVReader_BadInput(t *testing.T) {
	_, err := NewCSVReader().Decode(context.Background(), strings.NewReader("date,a\nyesterday,1\n"))
	assert.Error(t, err)

	_, err = NewCSVReader().Decode(context.Background(), strings.NewReader("a\nabc\n"))
	assert.Error(t, err)

	_, err = NewCSVReader().Decode(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestFileAdapter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ETT-small"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ETT-small", "ETTh1.csv"), []byte(ettSample), 0o644))

	cfg := DatasetConfig{Target: "OT", Exogenous: []string{"HUFL", "HULL"}, Windows: []int{2}}
	adapter := NewFileAdapter(root, map[string]Entry{
		"ETTh1": {RelativePath: "./ETT-small/ETTh1.csv", Config: cfg},
		"Other": {RelativePath: "other.json", Config: cfg},
	}, map[string]TableReader{".csv": NewCSVReader()})

	tbl, err := adapter.Load(context.Background(), "ETTh1")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	got, err := adapter.Config("ETTh1")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = adapter.Load(context.Background(), "Other")
	assert.Error(t, err, "no reader for .json")
	_, err = adapter.Load(context.Background(), "missing")
	assert.Error(t, err)
	_, err = adapter.Config("missing")
	assert.Error(t, err)
}

func TestMemoryAdapter(t *testing.T) {
	tbl, err := NewCSVReader().Decode(context.Background(), strings.NewReader(ettSample))
	require.NoError(t, err)

	a := NewMemoryAdapter()
	a.Add("ETTh1", tbl, DatasetConfig{Target: "OT"})

	got, err := a.Load(context.Background(), "ETTh1")
	require.NoError(t, err)
	assert.Same(t, tbl, got)

	_, err = a.Load(context.Background(), "ETTh2")
	assert.Error(t, err)
}

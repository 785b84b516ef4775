package index

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func rec(id string, price float64) Record {
	return Record{"id": id, "price": price}
}

func TestMerge_Scenarios(t *testing.T) {
	idx := New("test")

	// 空索引合并两条
	rep, err := idx.Merge("2025-01-21", []Record{rec("A", 10), rec("B", 20)}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Inserted)
	assert.Equal(t, []string{"A", "B"}, idx.Bucket("2025-01-21").Keys())

	// 同一天只更新A，B保持不变
	rep, err = idx.Merge("2025-01-21", []Record{rec("A", 15)}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Replaced)
	b := idx.Bucket("2025-01-21")
	assert.Equal(t, 15.0, b.Items["A"]["price"])
	assert.Equal(t, 20.0, b.Items["B"]["price"])

	// 不同日期互不影响
	_, err = idx.Merge("2025-01-22", []Record{rec("A", 5)}, ByField("id"))
	require.NoError(t, err)
	assert.Len(t, idx.Bucket("2025-01-21").Items, 2)
	assert.Len(t, idx.Bucket("2025-01-22").Items, 1)
	assert.Equal(t, []string{"2025-01-22", "2025-01-21"}, idx.Dates())
}

func TestMerge_NoLoss(t *testing.T) {
	idx := New("test")
	batches := [][]Record{
		{rec("A", 1), rec("B", 2)},
		{rec("C", 3)},
		{rec("A", 4)},
		{},
		{rec("D", 5), rec("B", 6)},
	}
	prev := map[string]bool{}
	for _, batch := range batches {
		_, err := idx.Merge("2025-02-03", batch, ByField("id"))
		require.NoError(t, err)
		b := idx.Bucket("2025-02-03")
		require.NotNil(t, b)
		for k := range prev {
			assert.Contains(t, b.Items, k)
		}
		for k := range b.Items {
			prev[k] = true
		}
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, idx.Bucket("2025-02-03").Keys())
}

func TestMerge_Idempotent(t *testing.T) {
	batch := []Record{rec("A", 1), rec("B", 2)}

	once := New("test")
	_, err := once.Merge("2025-01-21", batch, ByField("id"))
	require.NoError(t, err)

	twice := New("test")
	for i := 0; i < 2; i++ {
		_, err := twice.Merge("2025-01-21", batch, ByField("id"))
		require.NoError(t, err)
	}
	assert.Equal(t, once.Bucket("2025-01-21").Items, twice.Bucket("2025-01-21").Items)
}

func TestMerge_LastWriteWins(t *testing.T) {
	idx := New("test")
	_, err := idx.Merge("2025-01-21", []Record{rec("K", 1)}, ByField("id"))
	require.NoError(t, err)
	_, err = idx.Merge("2025-01-21", []Record{rec("K", 2)}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, idx.Bucket("2025-01-21").Items["K"]["price"])

	// 同一批次内后出现的为准，只计一次
	rep, err := idx.Merge("2025-01-21", []Record{rec("K", 3), rec("K", 4)}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Replaced)
	assert.Equal(t, 4.0, idx.Bucket("2025-01-21").Items["K"]["price"])
}

func TestMerge_InvalidDate(t *testing.T) {
	idx := New("test")
	_, err := idx.Merge("2025-01-21", []Record{rec("A", 1)}, ByField("id"))
	require.NoError(t, err)

	for _, date := range []string{"2025-13-40", "2025-02-30", "20250121", "", "2025-1-2"} {
		t.Run(date, func(t *testing.T) {
			_, err := idx.Merge(date, []Record{rec("B", 2)}, ByField("id"))
			var de *InvalidDateError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, date, de.Date)
			assert.Len(t, idx.Buckets, 1)
			assert.Equal(t, []string{"A"}, idx.Bucket("2025-01-21").Keys())
		})
	}
}

func TestMerge_PartialBatch(t *testing.T) {
	idx := New("test")
	boom := func(r Record) (string, error) {
		if r["panic"] == true {
			panic("bad record")
		}
		return ByField("id")(r)
	}
	batch := []Record{
		rec("A", 1),
		{"price": 2.0},
		rec("B", 3),
		{"id": "X", "panic": true},
		rec("C", 5),
	}
	rep, err := idx.Merge("2025-01-21", batch, boom)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Inserted)
	require.Len(t, rep.Skipped, 2)
	assert.Equal(t, 1, rep.Skipped[0].Position)
	assert.Equal(t, 3, rep.Skipped[1].Position)
	assert.Error(t, rep.Err())
	assert.Equal(t, []string{"A", "B", "C"}, idx.Bucket("2025-01-21").Keys())
}

func TestMerge_NilAndEmpty(t *testing.T) {
	t0 := time.Date(2025, 1, 21, 15, 0, 0, 0, time.UTC)
	now := t0
	idx := New("test", WithClock(func() time.Time { return now }))

	rep, err := idx.Merge("2025-01-21", nil, ByField("id"))
	require.NoError(t, err)
	assert.Nil(t, idx.Bucket("2025-01-21"))
	assert.NoError(t, rep.Err())

	rep, err = idx.Merge("2025-01-21", []Record{nil, {"price": 1.0}}, ByField("id"))
	require.NoError(t, err)
	assert.Nil(t, idx.Bucket("2025-01-21"))
	assert.Len(t, rep.Skipped, 2)

	_, err = idx.Merge("2025-01-21", []Record{rec("A", 1)}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, t0, idx.Bucket("2025-01-21").UpdatedAt)

	now = t0.Add(time.Hour)
	_, err = idx.Merge("2025-01-21", []Record{}, ByField("id"))
	require.NoError(t, err)
	assert.Equal(t, t0, idx.Bucket("2025-01-21").UpdatedAt)

	_, err = idx.Merge("2025-01-21", []Record{rec("B", 1)}, nil)
	assert.Error(t, err)
}

func TestMerge_StripsScratch(t *testing.T) {
	idx := New("test")
	in := Record{
		"author": "盘前纪要",
		"_src":   "https://img.example.com/1.png",
		"images": []interface{}{
			map[string]interface{}{"filename": "img1.png", "_src": "https://img.example.com/1.png"},
		},
	}
	_, err := idx.Merge("2025-01-21", []Record{in}, ByField("author"))
	require.NoError(t, err)

	got := idx.Bucket("2025-01-21").Items["盘前纪要"]
	assert.NotContains(t, got, "_src")
	img := got["images"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, img, "_src")
	assert.Equal(t, "img1.png", img["filename"])

	// 调用方持有的原记录不被修改
	assert.Contains(t, in, "_src")
}

func TestByField(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		want    string
		wantErr bool
	}{
		{name: "string", rec: Record{"code": " 600000.SH "}, want: "600000.SH"},
		{name: "float", rec: Record{"code": 600000.0}, want: "600000"},
		{name: "int", rec: Record{"code": 42}, want: "42"},
		{name: "missing", rec: Record{}, wantErr: true},
		{name: "blank", rec: Record{"code": "  "}, wantErr: true},
		{name: "object", rec: Record{"code": map[string]interface{}{}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ByField("code")(tt.rec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRecord(t *testing.T) {
	type stock struct {
		Code  string  `json:"code"`
		Price float64 `json:"price"`
	}
	r, err := NewRecord(stock{Code: "600000.SH", Price: 10.5})
	require.NoError(t, err)
	assert.Equal(t, Record{"code": "600000.SH", "price": 10.5}, r)

	_, err = NewRecord([]int{1, 2})
	assert.Error(t, err)
}

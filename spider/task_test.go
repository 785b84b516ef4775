package spider

import (
	"context"
	"testing"
	"time"

	"github.com/dszqbsm/stockdaily/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopCollect(context.Context, string) (*Batch, error) {
	return &Batch{}, nil
}

func TestNewTask(t *testing.T) {
	_, err := NewTask(WithCollector(nopCollect))
	assert.Error(t, err)
	_, err = NewTask(WithName("limitup"))
	assert.Error(t, err)

	task, err := NewTask(WithName("limitup"), WithCollector(nopCollect))
	require.NoError(t, err)
	assert.Equal(t, "limitup", task.Dir)
	assert.NotNil(t, task.Logger())

	id, err := task.Identity("2025-01-21")(index.Record{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-21", id)
}

func TestTaskStore_Select(t *testing.T) {
	mk := func(name, dir string) *Task {
		task, err := NewTask(WithName(name), WithDir(dir), WithCollector(nopCollect))
		require.NoError(t, err)
		return task
	}
	s := NewTaskStore()
	require.NoError(t, s.Add(mk("limitup", "data"), mk("jiuyan", "articles")))
	assert.Error(t, s.Add(mk("limitup", "other")))
	assert.Error(t, s.Add(mk("anomaly", "data")))

	all, err := s.Select("all")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "limitup", all[0].Name)

	one, err := s.Select("jiuyan", "jiuyan")
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = s.Select("rzrq")
	assert.ErrorContains(t, err, "jiuyan")
}

func TestViews(t *testing.T) {
	b := &index.Bucket{
		Date:      "2025-01-21",
		UpdatedAt: time.Date(2025, 1, 21, 15, 30, 0, 0, time.UTC),
		Items: map[string]index.Record{
			"盘前解读": {"author": "盘前解读"},
			"盘前纪要": {"author": "盘前纪要"},
		},
	}
	list := ListView("articles")(b).(map[string]interface{})
	assert.Len(t, list["articles"], 2)
	assert.Equal(t, "2025-01-21", list["date"])

	m := MapView("details")(b).(map[string]interface{})
	assert.Len(t, m["details"], 2)

	single := &index.Bucket{Date: "2025-01-21", Items: map[string]index.Record{"2025-01-21": {"count": 3.0}}}
	assert.Equal(t, index.Record{"count": 3.0}, SingleView(single))
}

func TestBatch(t *testing.T) {
	var b Batch
	require.NoError(t, b.Add(struct {
		Code string `json:"code"`
	}{Code: "600000.SH"}))
	b.Fail(nil)
	b.Fail(assert.AnError)
	assert.Len(t, b.Records, 1)
	assert.Len(t, b.Failures, 1)
	assert.Equal(t, "600000.SH", b.Records[0]["code"])
}

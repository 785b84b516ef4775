package tasklib

import (
	"testing"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(conf.Default(), collect.NewHTTPFetch(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"anomaly", "dragontiger", "jiuyan", "limitup", "ztts"}, store.Names())

	dirs := map[string]string{}
	for _, task := range store.List() {
		dirs[task.Name] = task.Dir
		assert.NotNil(t, task.Collect)
		assert.NotNil(t, task.View)
	}
	assert.Equal(t, map[string]string{
		"limitup":     "data",
		"jiuyan":      "articles",
		"anomaly":     "analysis",
		"dragontiger": "dragon_tiger",
		"ztts":        "dzh_ztts",
	}, dirs)

	dt, ok := store.Get("dragontiger")
	require.True(t, ok)
	assert.NotNil(t, dt.Reconcile)
	zt, _ := store.Get("ztts")
	assert.True(t, zt.Months)
}

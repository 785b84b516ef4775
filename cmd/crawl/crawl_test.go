package crawl

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_BadArguments(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "missing.toml")
	outDir = dir
	render = false
	t.Cleanup(func() { date = "" })

	tests := []struct {
		name  string
		date  string
		names []string
		want  string
	}{
		{name: "bad date", date: "2025-02-30", names: []string{"all"}, want: "invalid --date"},
		{name: "unknown collection", date: "2025-01-21", names: []string{"bitcoin"}, want: "unknown collection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date = tt.date
			var out bytes.Buffer
			err := Run(context.Background(), &out, tt.names)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, out.String())
		})
	}
}

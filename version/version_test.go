package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	oldV, oldH := Version, GitHash
	defer func() { Version, GitHash = oldV, oldH }()

	Version, GitHash = "v1.2.0", "None"
	assert.Equal(t, "v1.2.0", GetVersion())

	GitHash = "0123456789abcdef"
	assert.Equal(t, "v1.2.0-0123456", GetVersion())
	assert.Equal(t, "stockdaily/v1.2.0-0123456", UserAgent())

	var buf bytes.Buffer
	Printer(&buf)
	assert.Contains(t, buf.String(), "0123456789abcdef")
}

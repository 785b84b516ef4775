package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinProxySwitcher(t *testing.T) {
	f, err := RoundRobinProxySwitcher("http://127.0.0.1:8888", "http://127.0.0.1:8889")
	require.NoError(t, err)

	var hosts []string
	for i := 0; i < 4; i++ {
		u, err := f(nil)
		require.NoError(t, err)
		hosts = append(hosts, u.Host)
	}
	assert.Equal(t, []string{"127.0.0.1:8888", "127.0.0.1:8889", "127.0.0.1:8888", "127.0.0.1:8889"}, hosts)

	_, err = RoundRobinProxySwitcher()
	assert.Error(t, err)
	_, err = RoundRobinProxySwitcher("not a url")
	assert.Error(t, err)
}

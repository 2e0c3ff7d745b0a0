package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMapSASLOnlyWithKey(t *testing.T) {
	local := Config{BootstrapServers: "localhost:9092"}.configMap()
	_, err := local.Get("security.protocol", nil)
	require.NoError(t, err)
	v, _ := local.Get("security.protocol", nil)
	assert.Nil(t, v)

	cloud := Config{BootstrapServers: "pkc.example:9092", APIKey: "k", APISecret: "s"}.configMap()
	v, err = cloud.Get("security.protocol", nil)
	require.NoError(t, err)
	assert.Equal(t, "SASL_SSL", v)
	v, _ = cloud.Get("sasl.username", nil)
	assert.Equal(t, "k", v)
}

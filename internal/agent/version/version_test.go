package version

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/config"
)

func TestGet(t *testing.T) {
	cfg := config.Config{NodeID: "wolf-a", ListenAddr: "0.0.0.0:10101", ProbeListenAddr: "0.0.0.0:10102"}
	info := Get(cfg, time.Unix(1700000000, 0))

	line := info.Line()
	require.Equal(t, byte('\n'), line[len(line)-1])

	var got Info
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Equal(t, Info{
		NodeID:          "wolf-a",
		AgentVersion:    config.Version,
		ListenAddr:      "0.0.0.0:10101",
		ProbeListenAddr: "0.0.0.0:10102",
		CheckedAtUnix:   1700000000,
	}, got)
}

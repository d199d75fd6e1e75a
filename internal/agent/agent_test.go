package agent

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/config"
	"daos-confgen/internal/model"
)

func testConfig(t *testing.T) config.Config {
	root := t.TempDir()
	for rel, content := range map[string]string{
		"sys/bus/pci/devices/0000:81:00.0/class":     "0x010802",
		"sys/bus/pci/devices/0000:81:00.0/numa_node": "0",
		"sys/class/block/pmem0/device/numa_node":     "0",
		"sys/class/net/ib0/type":                     "32",
		"sys/class/net/ib0/device/numa_node":         "0",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return config.Config{
		NodeID:          "node-1",
		Hostname:        "wolf-a",
		SysfsRoot:       root,
		IBProviders:     []string{"ofi+verbs;ofi_rxm"},
		ScanTimeout:     time.Second,
		ScanInterval:    time.Hour,
		ListenAddr:      "127.0.0.1:0",
		ProbeListenAddr: "127.0.0.1:0",
		HealthInterval:  time.Hour,
		ShutdownTimeout: time.Second,
		LogLevel:        "info",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAgent_ScansSysfs(t *testing.T) {
	a, err := New(testConfig(t), quietLogger())
	require.NoError(t, err)

	inv, err := a.scheduler.Inventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "wolf-a", inv.Hostname)
	assert.Equal(t, []model.NvmeDevice{{PCIAddr: "0000:81:00.0"}}, inv.Storage.NvmeDevices)
	assert.Equal(t, []uint{0}, inv.Topology.NumaNodes)
	assert.True(t, a.Health().Ready())
}

func readProbe(t *testing.T, addr string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestAgent_Probe(t *testing.T) {
	a, err := New(testConfig(t), quietLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serveProbe(ctx, ln) }()

	line := readProbe(t, ln.Addr().String())
	assert.True(t, strings.HasPrefix(line, "confgen-agent:degraded "), line)

	a.health.MarkScan(time.Now())
	line = readProbe(t, ln.Addr().String())
	assert.True(t, strings.HasPrefix(line, "confgen-agent:ok "), line)
	assert.Contains(t, line, `"node_id":"node-1"`)

	cancel()
	require.NoError(t, <-done)
}

func TestAgent_RunStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgent_ListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddr = "256.0.0.1:1"
	a, err := New(cfg, quietLogger())
	require.NoError(t, err)

	err = a.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan service")
}

func TestHealthStatus(t *testing.T) {
	h := NewHealthStatus()
	assert.False(t, h.Ready())

	h.MarkScan(time.Unix(1700000000, 0))
	assert.True(t, h.Ready())

	h.MarkScanFailed(errors.New("sysfs gone"))
	assert.False(t, h.Ready())
	snap := h.Snapshot()
	assert.Equal(t, "sysfs gone", snap["last_scan_error"])
	assert.Equal(t, int64(1), snap["scan_failures"])
}

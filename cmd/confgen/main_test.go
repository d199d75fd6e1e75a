package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/cli"
)

func TestRun_Version(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"version"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "confgen ")
}

func TestRun_UsageError(t *testing.T) {
	errOut := &bytes.Buffer{}
	err := run(context.Background(), &bytes.Buffer{}, errOut, []string{"frobnicate"})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.Contains(t, errOut.String(), "Usage:")
}

func writeInventory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`hostname: wolf-a
storage:
  nvme_devices: [{pci_addr: "0000:81:00.0", socket_id: 0}]
  scm_namespaces: [{blockdev: pmem0, numa_node: 0}]
network:
  interfaces: [{device: ib0, provider: "ofi+verbs;ofi_rxm", numa_node: 0}]
`), 0o600))
	return path
}

func TestRun_GenerateFromFile(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"generate", "--access-points=wolf-a", "--inventory", writeInventory(t)})
	require.NoError(t, err)
	require.Contains(t, out.String(), "fabric_iface: ib0")
}

func TestRun_JSONLogging(t *testing.T) {
	t.Setenv("CONFGEN_LOG_JSON", "true")
	t.Setenv("CONFGEN_LOG_LEVEL", "debug")

	errOut := &bytes.Buffer{}
	err := run(context.Background(), &bytes.Buffer{}, errOut, []string{"generate", "--access-points=wolf-a", "--inventory", writeInventory(t)})
	require.NoError(t, err)
	require.Contains(t, errOut.String(), `"msg":"config generated"`)
}

func TestRun_BadLoggingEnvironment(t *testing.T) {
	t.Setenv("CONFGEN_LOG_LEVEL", "trace")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{"generate", "--access-points=wolf-a", "--inventory", writeInventory(t)})
	require.NoError(t, err)
	require.Contains(t, out.String(), "fabric_iface: ib0")
	require.Contains(t, errOut.String(), "ignoring logging environment")
	require.NotContains(t, errOut.String(), "config generated")
}

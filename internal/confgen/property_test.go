package confgen

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/model"
)

var randomProviders = []string{"ofi+verbs;ofi_rxm", "ofi+tcp;ofi_rxm", "ucx+dc_x", "ofi+sockets"}

type randomScan struct {
	scan     model.HostInventory
	sockets  int
	minNvme  int
	ibCount  int
	ethCount int
}

// newRandomScan builds an inventory where every socket has at least one SCM
// namespace and one SSD, and there are at least as many interfaces of each
// class as sockets. Discovery order is shuffled.
func newRandomScan(rng *rand.Rand) randomScan {
	rs := randomScan{sockets: 1 + rng.Intn(4), minNvme: 1 << 30}
	scan := &rs.scan
	scan.Hostname = "wolf-a"

	bus := 0x10
	for s := 0; s < rs.sockets; s++ {
		nvme := 1 + rng.Intn(4)
		if nvme < rs.minNvme {
			rs.minNvme = nvme
		}
		for i := 0; i < nvme; i++ {
			scan.Storage.NvmeDevices = append(scan.Storage.NvmeDevices, model.NvmeDevice{
				PCIAddr:  fmt.Sprintf("0000:%02x:00.0", bus),
				SocketID: uint(s),
			})
			bus++
		}
		for i := 0; i < 1+rng.Intn(2); i++ {
			scan.Storage.ScmNamespaces = append(scan.Storage.ScmNamespaces, model.ScmNamespace{
				BlockDev: fmt.Sprintf("pmem%d", s*2+i),
				NumaNode: uint(s),
			})
		}
	}

	rs.ibCount = rs.sockets + rng.Intn(2)
	rs.ethCount = rs.sockets + rng.Intn(2)
	addIfaces := func(prefix string, n int) {
		for i := 0; i < n; i++ {
			numa := rng.Intn(rs.sockets+1) - 1
			first := rng.Intn(len(randomProviders))
			for p := 0; p < 1+rng.Intn(2); p++ {
				scan.Network.Interfaces = append(scan.Network.Interfaces, model.FabricInterface{
					Device:   fmt.Sprintf("%s%d", prefix, i),
					Provider: randomProviders[(first+p)%len(randomProviders)],
					NumaNode: numa,
				})
			}
		}
	}
	addIfaces("ib", rs.ibCount)
	addIfaces("eth", rs.ethCount)

	rng.Shuffle(len(scan.Storage.NvmeDevices), func(i, j int) {
		scan.Storage.NvmeDevices[i], scan.Storage.NvmeDevices[j] = scan.Storage.NvmeDevices[j], scan.Storage.NvmeDevices[i]
	})
	rng.Shuffle(len(scan.Network.Interfaces), func(i, j int) {
		scan.Network.Interfaces[i], scan.Network.Interfaces[j] = scan.Network.Interfaces[j], scan.Network.Interfaces[i]
	})
	return rs
}

func TestGenerate_RandomInventories(t *testing.T) {
	rng := rand.New(rand.NewSource(7274))

	for iter := 0; iter < 200; iter++ {
		rs := newRandomScan(rng)
		inv := mustInventory(t, rs.scan)

		for k := 1; k <= rs.sockets; k++ {
			cfg, err := generate(t, rs.scan, func(r *Request) { r.NumEngines = k })
			require.NoError(t, err, "iter %d, num engines %d", iter, k)
			require.Len(t, cfg.Engines, k)
			assertDistinctSockets(t, cfg)

			for _, ec := range cfg.Engines {
				for _, scm := range ec.ScmList {
					require.True(t, inv.HasScmDevice(ScmDeviceName(scm)), "iter %d: scm %s", iter, scm)
				}
				for _, addr := range ec.BdevList {
					require.True(t, inv.HasPCIAddr(addr), "iter %d: nvme %s", iter, addr)
				}
				require.Contains(t, inv.ProvidersOf(ec.FabricIface), ec.Provider)
			}
		}

		_, err := generate(t, rs.scan, func(r *Request) { r.NumEngines = rs.sockets + 1 })
		require.True(t, errors.Is(err, ErrInsufficientResources), "iter %d: %v", iter, err)

		for m := 1; m <= rs.minNvme; m++ {
			cfg, err := generate(t, rs.scan, func(r *Request) { r.MinSSDs = m })
			require.NoError(t, err, "iter %d, min ssds %d", iter, m)
			require.Len(t, cfg.Engines, rs.sockets)
		}

		ib, err := generate(t, rs.scan, func(r *Request) {
			r.NetClass = model.NetClassInfiniband
			r.NumEngines = rs.sockets
		})
		require.NoError(t, err, "iter %d", iter)
		for _, ec := range ib.Engines {
			require.Contains(t, inv.ProvidersOf(ec.FabricIface), ec.Provider)
			require.Equal(t, "ib", ec.FabricIface[:2])
		}
		_, err = generate(t, rs.scan, func(r *Request) {
			r.NetClass = model.NetClassInfiniband
			r.NumEngines = rs.ibCount + 1
		})
		require.True(t, errors.Is(err, ErrInsufficientResources), "iter %d: %v", iter, err)

		a, err := generate(t, rs.scan, nil)
		require.NoError(t, err)
		b, err := generate(t, rs.scan, nil)
		require.NoError(t, err)
		ya, err := a.YAML()
		require.NoError(t, err)
		yb, err := b.YAML()
		require.NoError(t, err)
		require.Equal(t, string(ya), string(yb))
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	scan := twoSocketScan()
	want, err := generate(t, scan, nil)
	require.NoError(t, err)
	wantYAML, err := want.YAML()
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		t.Run(fmt.Sprintf("worker-%d", i), func(t *testing.T) {
			t.Parallel()
			got, err := generate(t, scan, nil)
			require.NoError(t, err)
			gotYAML, err := got.YAML()
			require.NoError(t, err)
			require.Equal(t, string(wantYAML), string(gotYAML))
		})
	}
}

package confgen

import (
	"sort"
	"strconv"

	"daos-confgen/internal/inventory"
	"daos-confgen/internal/model"
)

// Feasibility summarizes how many engines an inventory can support under a
// request's constraints.
type Feasibility struct {
	// Sockets is every NUMA id in the inventory, ascending.
	Sockets []inventory.NumaID
	// UsableSockets have an SCM namespace and enough NVMe devices.
	UsableSockets []inventory.NumaID
	// Interfaces are the distinct eligible interface devices in selection
	// order.
	Interfaces []string
	MaxEngines int
	// Limit names the resource that caps MaxEngines.
	Limit string
}

const (
	limitSockets    = "sockets with scm and enough nvme"
	limitInterfaces = "eligible fabric interfaces"
)

// candidate is an eligible interface device with the providers it offers
// after filtering, in discovery order.
type candidate struct {
	device    string
	numaNode  int
	providers []string
}

// allocation binds one socket's resources to an engine.
type allocation struct {
	socket   inventory.NumaID
	scm      string
	nvme     []string
	iface    string
	provider string
}

// CheckFeasibility computes the feasible maximum engine count without
// allocating anything.
func CheckFeasibility(inv *inventory.ResourceInventory, req Request) Feasibility {
	f, _ := feasibility(inv, req)
	return f
}

func feasibility(inv *inventory.ResourceInventory, req Request) (Feasibility, []candidate) {
	f := Feasibility{Sockets: inv.Sockets()}
	for _, id := range f.Sockets {
		if socketUsable(inv, id, req.MinSSDs) {
			f.UsableSockets = append(f.UsableSockets, id)
		}
	}

	cands := eligibleInterfaces(inv, req)
	for _, c := range cands {
		f.Interfaces = append(f.Interfaces, c.device)
	}

	f.MaxEngines, f.Limit = len(f.UsableSockets), limitSockets
	if len(cands) < f.MaxEngines {
		f.MaxEngines, f.Limit = len(cands), limitInterfaces
	}
	return f, cands
}

func socketUsable(inv *inventory.ResourceInventory, id inventory.NumaID, minSSDs int) bool {
	if len(inv.ScmNamespaces(id)) == 0 {
		return false
	}
	return minSSDs == 0 || len(inv.NvmeDevices(id)) >= minSSDs
}

// classRank orders interface classes when no class is requested: RDMA
// fabrics first, then ethernet, then anything else.
func classRank(class string) int {
	switch class {
	case model.NetClassInfiniband:
		return 0
	case model.NetClassEthernet:
		return 1
	default:
		return 2
	}
}

// eligibleInterfaces returns the interfaces usable under req, ordered by
// class rank and then device name.
func eligibleInterfaces(inv *inventory.ResourceInventory, req Request) []candidate {
	classes := []string{req.NetClass}
	if req.NetClass == model.NetClassAny {
		classes = append([]string(nil), inv.Classes()...)
		sort.SliceStable(classes, func(i, j int) bool { return classRank(classes[i]) < classRank(classes[j]) })
	}

	var out []candidate
	for _, class := range classes {
		byDevice := make(map[string]*candidate)
		var order []string
		for _, fi := range inv.Interfaces(class) {
			if req.NetProvider != "" && fi.Provider != req.NetProvider {
				continue
			}
			c, ok := byDevice[fi.Device]
			if !ok {
				c = &candidate{device: fi.Device, numaNode: fi.NumaNode}
				byDevice[fi.Device] = c
				order = append(order, fi.Device)
			}
			c.providers = append(c.providers, fi.Provider)
		}
		sort.Strings(order)
		for _, dev := range order {
			out = append(out, *byDevice[dev])
		}
	}
	return out
}

// plan runs the greedy allocation pass. Sockets are visited in ascending id
// order and each takes the first unused interface with matching NUMA
// affinity, falling back to the first unused interface in candidate order.
func plan(inv *inventory.ResourceInventory, req Request) ([]allocation, Feasibility, error) {
	f, cands := feasibility(inv, req)

	if len(cands) == 0 {
		return nil, f, &NoMatchingInterfacesError{NetClass: req.NetClass, Provider: req.NetProvider}
	}
	if req.NumEngines > f.MaxEngines {
		return nil, f, &InsufficientResourcesError{
			Requested: req.NumEngines,
			Available: f.MaxEngines,
			Limit:     f.Limit,
		}
	}
	if f.MaxEngines == 0 {
		return nil, f, &NoUsableEnginesError{Reason: noEnginesReason(inv, req)}
	}

	n := req.NumEngines
	if n == 0 {
		n = f.MaxEngines
	}

	used := make([]bool, len(cands))
	allocs := make([]allocation, 0, n)
	for _, id := range f.UsableSockets {
		if len(allocs) == n {
			break
		}
		idx := pickInterface(cands, used, int(id))
		if idx < 0 {
			break
		}
		used[idx] = true

		a := allocation{
			socket:   id,
			iface:    cands[idx].device,
			provider: cands[idx].providers[0],
		}
		scm := inv.ScmNamespaces(id)
		a.scm = scm[len(scm)-1]
		if req.MinSSDs > 0 {
			a.nvme = inv.NvmeDevices(id)
		}
		allocs = append(allocs, a)
	}

	if len(allocs) < n {
		return nil, f, &InsufficientResourcesError{Requested: n, Available: len(allocs), Limit: f.Limit}
	}
	return allocs, f, nil
}

func pickInterface(cands []candidate, used []bool, numa int) int {
	for i, c := range cands {
		if !used[i] && c.numaNode == numa {
			return i
		}
	}
	for i := range cands {
		if !used[i] {
			return i
		}
	}
	return -1
}

func noEnginesReason(inv *inventory.ResourceInventory, req Request) string {
	withScm := 0
	for _, id := range inv.Sockets() {
		if len(inv.ScmNamespaces(id)) > 0 {
			withScm++
		}
	}
	if withScm == 0 {
		return "no socket has an scm namespace"
	}
	return "no socket with scm has at least " + strconv.Itoa(req.MinSSDs) + " nvme devices"
}

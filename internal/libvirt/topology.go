package libvirt

import (
	"context"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

type capabilitiesXML struct {
	Host struct {
		Topology struct {
			Cells struct {
				Cells []cellXML `xml:"cell"`
			} `xml:"cells"`
		} `xml:"topology"`
	} `xml:"host"`
}

type cellXML struct {
	ID   uint `xml:"id,attr"`
	CPUs struct {
		CPUs []struct {
			SocketID *uint `xml:"socket_id,attr"`
		} `xml:"cpu"`
	} `xml:"cpus"`
}

// HostTopology is the NUMA layout read from a capabilities document.
type HostTopology struct {
	// NumaNodes are the cell ids, ascending.
	NumaNodes []uint
	// Sockets counts the distinct cpu socket ids; 0 when no cpu carries one.
	Sockets uint
}

// ParseCapabilities extracts the NUMA cell ids and socket count from a
// capabilities document.
func ParseCapabilities(doc string) (HostTopology, error) {
	var caps capabilitiesXML
	if err := xml.Unmarshal([]byte(doc), &caps); err != nil {
		return HostTopology{}, errors.Wrap(err, "unmarshal capabilities xml")
	}
	cells := caps.Host.Topology.Cells.Cells
	seen := make(map[uint]struct{}, len(cells))
	sockets := make(map[uint]struct{})
	ids := make([]uint, 0, len(cells))
	for _, c := range cells {
		if _, ok := seen[c.ID]; ok {
			return HostTopology{}, errors.Errorf("numa cell %d listed twice", c.ID)
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
		for _, cpu := range c.CPUs.CPUs {
			if cpu.SocketID != nil {
				sockets[*cpu.SocketID] = struct{}{}
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return HostTopology{NumaNodes: ids, Sockets: uint(len(sockets))}, nil
}

// TopologyReader reports NUMA topology through libvirt.
type TopologyReader struct {
	conn *ConnManager
}

func NewTopologyReader(conn *ConnManager) *TopologyReader {
	return &TopologyReader{conn: conn}
}

// Topology returns the host's NUMA nodes and socket count.
func (r *TopologyReader) Topology(ctx context.Context) (model.Topology, error) {
	client, err := r.conn.Client(ctx)
	if err != nil {
		return model.Topology{}, err
	}

	doc, err := client.ConnectGetCapabilities()
	if err != nil {
		r.conn.Reset()
		return model.Topology{}, errors.Wrap(err, "ConnectGetCapabilities")
	}
	host, err := ParseCapabilities(doc)
	if err != nil {
		return model.Topology{}, err
	}
	nodes := host.NumaNodes

	_, _, _, _, numaNodes, sockets, _, _, err := client.NodeGetInfo()
	if err != nil {
		r.conn.Reset()
		return model.Topology{}, errors.Wrap(err, "NodeGetInfo")
	}
	if len(nodes) == 0 && numaNodes > 0 {
		for i := 0; i < int(numaNodes); i++ {
			nodes = append(nodes, uint(i))
		}
	}

	hostname, err := client.ConnectGetHostname()
	if err != nil {
		hostname = ""
	}

	topo := model.Topology{Hostname: strings.TrimSpace(hostname), NumaNodes: nodes, Sockets: host.Sockets}
	// NodeGetInfo reports sockets per NUMA node.
	if topo.Sockets == 0 && sockets > 0 {
		topo.Sockets = uint(sockets) * uint(max(len(nodes), 1))
	}
	return topo, nil
}

package confgen

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

const DefaultMinSSDs = 1

// Request holds the user constraints of one generation call.
type Request struct {
	AccessPoints []string
	// NumEngines is the requested engine count; 0 selects the feasible maximum.
	NumEngines int
	// MinSSDs is the per-engine NVMe threshold; 0 disables the NVMe tier.
	MinSSDs  int
	NetClass string
	// NetProvider restricts interface selection to one provider; empty
	// accepts any.
	NetProvider string
	// AccessPointPort is appended to access points given without a port; 0
	// leaves them unchanged.
	AccessPointPort int
}

// NewRequest returns a request with default thresholds.
func NewRequest(accessPoints ...string) Request {
	return Request{AccessPoints: accessPoints, MinSSDs: DefaultMinSSDs}
}

func (r Request) validate() error {
	if r.NumEngines < 0 {
		return errors.Errorf("engine count %d must not be negative", r.NumEngines)
	}
	if r.MinSSDs < 0 {
		return errors.Errorf("minimum ssd count %d must not be negative", r.MinSSDs)
	}
	switch r.NetClass {
	case model.NetClassAny, model.NetClassInfiniband, model.NetClassEthernet:
	default:
		return errors.Errorf("unsupported network class %q", r.NetClass)
	}
	return checkPortOverride(r.AccessPointPort)
}

func checkPortOverride(port int) error {
	if port < 0 || port > 65535 {
		return &AccessPointError{
			Entry:  strconv.Itoa(port),
			Reason: "port override out of range",
		}
	}
	return nil
}

// ParseNetClass maps a user-supplied class name to its tag.
func ParseNetClass(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "best-available":
		return model.NetClassAny, nil
	case "infiniband", "ib":
		return model.NetClassInfiniband, nil
	case "ethernet", "eth":
		return model.NetClassEthernet, nil
	default:
		return "", errors.Errorf("unsupported network class %q", s)
	}
}

// ParseAccessPoints validates access point entries. Each entry is "host" or
// "host:port" with port in [0, 65535]; an IPv6 host is bracketed. Entries are
// returned unchanged except that portOverride, when non-zero, is appended to
// entries without a port.
func ParseAccessPoints(entries []string, portOverride int) ([]string, error) {
	if err := checkPortOverride(portOverride); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &AccessPointError{Reason: "at least one access point is required"}
	}

	out := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		ap, err := parseAccessPoint(entry, portOverride)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[ap]; dup {
			return nil, &AccessPointError{Entry: entry, Reason: "duplicate entry"}
		}
		seen[ap] = struct{}{}
		out = append(out, ap)
	}
	return out, nil
}

func parseAccessPoint(entry string, portOverride int) (string, error) {
	if entry == "" {
		return "", &AccessPointError{Entry: entry, Reason: "empty host"}
	}
	host, bracketed := strings.CutPrefix(entry, "[")
	if bracketed {
		host, bracketed = strings.CutSuffix(host, "]")
	}
	if bracketed || !strings.Contains(entry, ":") {
		if bracketed && (host == "" || strings.ContainsAny(host, "[]")) {
			return "", &AccessPointError{Entry: entry, Reason: "malformed bracketed host"}
		}
		if portOverride > 0 {
			return net.JoinHostPort(host, strconv.Itoa(portOverride)), nil
		}
		return entry, nil
	}

	host, port, err := net.SplitHostPort(entry)
	if err != nil {
		return "", &AccessPointError{Entry: entry, Reason: err.Error()}
	}
	if host == "" {
		return "", &AccessPointError{Entry: entry, Reason: "empty host"}
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", &AccessPointError{Entry: entry, Reason: "port must be an integer in [0, 65535]"}
	}
	return entry, nil
}

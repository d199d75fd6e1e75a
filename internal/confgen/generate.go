// Package confgen generates multi-engine server configurations from a
// normalized hardware inventory.
//
// Generation is a pure function of its inputs: it performs no I/O, holds no
// state between calls and is safe to call concurrently. Identical inputs
// always produce identical documents.
package confgen

import (
	"daos-confgen/internal/inventory"
)

// Result is a generated document together with the feasibility analysis
// that produced it.
type Result struct {
	Config      *Config
	Feasibility Feasibility
}

// Generate validates req, plans one engine per usable socket (or
// req.NumEngines of them) and returns the emitted document. Failures wrap one
// of the Err* sentinels; no partial document is ever returned.
func Generate(inv *inventory.ResourceInventory, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	accessPoints, err := ParseAccessPoints(req.AccessPoints, req.AccessPointPort)
	if err != nil {
		return nil, err
	}

	allocs, f, err := plan(inv, req)
	if err != nil {
		return nil, err
	}
	if len(allocs) == 0 {
		return nil, &NoUsableEnginesError{Reason: "allocation produced no engines"}
	}
	if err := verify(inv, req, allocs); err != nil {
		return nil, err
	}

	return &Result{Config: emit(accessPoints, req, allocs), Feasibility: f}, nil
}

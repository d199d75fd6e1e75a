// Package version reports the identity an agent answers probes with.
package version

import (
	"encoding/json"
	"time"

	"daos-confgen/internal/config"
)

type Info struct {
	NodeID          string `json:"node_id"`
	AgentVersion    string `json:"agent_version"`
	ListenAddr      string `json:"listen_addr"`
	ProbeListenAddr string `json:"probe_listen_addr"`
	CheckedAtUnix   int64  `json:"checked_at_unix"`
}

func Get(cfg config.Config, now time.Time) Info {
	return Info{
		NodeID:          cfg.NodeID,
		AgentVersion:    config.Version,
		ListenAddr:      cfg.ListenAddr,
		ProbeListenAddr: cfg.ProbeListenAddr,
		CheckedAtUnix:   now.UTC().Unix(),
	}
}

// Line renders info as a single newline-terminated JSON object.
func (i Info) Line() []byte {
	raw, err := json.Marshal(i)
	if err != nil {
		return []byte("{}\n")
	}
	return append(raw, '\n')
}

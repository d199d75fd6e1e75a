package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/ansiterm"
	"github.com/juju/gnuflag"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"daos-confgen/internal/config"
	"daos-confgen/internal/inventory"
	"daos-confgen/internal/model"
)

type scanCommand struct {
	source   sourceFlags
	provider string
	format   string
}

func (c *scanCommand) flags(env Env) *gnuflag.FlagSet {
	fs := gnuflag.NewFlagSet("scan", gnuflag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.StringVar(&c.provider, "net-provider", model.ProviderAll, "only list interfaces offering this provider")
	fs.StringVar(&c.format, "format", "table", "output format: table, yaml or json")
	c.source.register(fs)
	fs.Usage = func() {
		fmt.Fprint(env.Stderr, "Usage: confgen scan [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	return fs
}

func runScan(ctx context.Context, env Env, args []string) error {
	c := &scanCommand{}
	if done, err := parseFlags(c.flags(env), args); done || err != nil {
		return err
	}
	if err := c.source.validate(); err != nil {
		return err
	}

	hostInv, err := c.source.collect(ctx, env.Logger, c.provider)
	if err != nil {
		return errors.Wrap(err, "scan")
	}

	switch strings.ToLower(c.format) {
	case "table":
		inv, err := inventory.Build(hostInv)
		if err != nil {
			return errors.Wrap(err, "inventory")
		}
		return printInventory(env.Stdout, hostInv, inv)
	case "yaml":
		enc := yaml.NewEncoder(env.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(hostInv); err != nil {
			return errors.Wrap(err, "encode inventory")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(hostInv), "encode inventory")
	default:
		return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unknown format %q", c.format)}
	}
}

// printInventory renders one table per resource kind, grouped by NUMA node.
func printInventory(w io.Writer, hostInv model.HostInventory, inv *inventory.ResourceInventory) error {
	fmt.Fprintf(w, "Host: %s\n", hostInv.Hostname)
	sockets := inv.Sockets()
	ids := make([]string, len(sockets))
	for i, s := range sockets {
		ids[i] = strconv.FormatUint(uint64(s), 10)
	}
	fmt.Fprintf(w, "NUMA nodes: %s\n\n", strings.Join(ids, ","))

	tw := ansiterm.NewTabWriter(w, 0, 1, 2, ' ', 0)

	fmt.Fprintln(tw, "SCM\tNUMA\tSIZE\tUUID")
	scm := append([]model.ScmNamespace(nil), hostInv.Storage.ScmNamespaces...)
	sort.SliceStable(scm, func(i, j int) bool { return scm[i].NumaNode < scm[j].NumaNode })
	for _, ns := range scm {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", ns.BlockDev, ns.NumaNode, size(ns.SizeBytes), dash(ns.UUID))
	}
	fmt.Fprintln(tw, "\t\t\t")

	fmt.Fprintln(tw, "NVMe\tNUMA\tSIZE\tMODEL")
	nvme := append([]model.NvmeDevice(nil), hostInv.Storage.NvmeDevices...)
	sort.SliceStable(nvme, func(i, j int) bool {
		if nvme[i].SocketID != nvme[j].SocketID {
			return nvme[i].SocketID < nvme[j].SocketID
		}
		return nvme[i].PCIAddr < nvme[j].PCIAddr
	})
	for _, d := range nvme {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.PCIAddr, d.SocketID, size(d.SizeBytes), dash(d.Model))
	}
	fmt.Fprintln(tw, "\t\t\t")

	fmt.Fprintln(tw, "INTERFACE\tNUMA\tCLASS\tPROVIDER")
	for _, fi := range hostInv.Network.Interfaces {
		numa := "-"
		if fi.NumaNode >= 0 {
			numa = strconv.Itoa(fi.NumaNode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fi.Device, numa, inventory.ClassOf(fi), fi.Provider)
	}
	return tw.Flush()
}

func size(b uint64) string {
	if b == 0 {
		return "-"
	}
	return humanize.IBytes(b)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func versionString() string {
	return "confgen " + config.Version
}

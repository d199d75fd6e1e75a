package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/gnuflag"
	"github.com/pkg/errors"

	"daos-confgen/internal/confgen"
	"daos-confgen/internal/inventory"
	"daos-confgen/internal/model"
)

type generateCommand struct {
	source       sourceFlags
	accessPoints string
	numEngines   int
	minSSDs      int
	netClass     string
	netProvider  string
	port         int
	json         bool
}

func (c *generateCommand) flags(env Env) *gnuflag.FlagSet {
	fs := gnuflag.NewFlagSet("generate", gnuflag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.StringVar(&c.accessPoints, "access-points", "", "comma separated access points, HOST or HOST:PORT")
	fs.StringVar(&c.accessPoints, "a", "", "")
	fs.IntVar(&c.numEngines, "num-engines", 0, "number of engines to configure, 0 for one per usable socket")
	fs.IntVar(&c.minSSDs, "min-ssds", confgen.DefaultMinSSDs, "minimum NVMe SSDs per engine, 0 for an SCM-only config")
	fs.StringVar(&c.netClass, "net-class", "", "restrict fabric interfaces to infiniband or ethernet")
	fs.StringVar(&c.netProvider, "net-provider", "", "restrict fabric interfaces to one provider")
	fs.IntVar(&c.port, "port", 0, "port appended to access points given without one")
	fs.BoolVar(&c.json, "json", false, "print the config as JSON instead of YAML")
	c.source.register(fs)
	fs.Usage = func() {
		fmt.Fprint(env.Stderr, "Usage: confgen generate --access-points=HOST[:PORT],... [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	return fs
}

func runGenerate(ctx context.Context, env Env, args []string) error {
	c := &generateCommand{}
	if done, err := parseFlags(c.flags(env), args); done || err != nil {
		return err
	}
	if err := c.source.validate(); err != nil {
		return err
	}

	req, err := c.request()
	if err != nil {
		return err
	}

	provider := model.ProviderAll
	if req.NetProvider != "" {
		provider = req.NetProvider
	}
	hostInv, err := c.source.collect(ctx, env.Logger, provider)
	if err != nil {
		return errors.Wrap(err, "scan")
	}
	inv, err := inventory.Build(hostInv)
	if err != nil {
		return errors.Wrap(err, "inventory")
	}

	res, err := confgen.Generate(inv, req)
	if err != nil {
		env.Logger.Debug("generation failed", "feasibility", confgen.CheckFeasibility(inv, req), "error", err)
		return err
	}
	env.Logger.Debug("config generated",
		"engines", len(res.Config.Engines),
		"max_engines", res.Feasibility.MaxEngines,
		"host", hostInv.Hostname)

	var out []byte
	if c.json {
		out, err = res.Config.JSON()
	} else {
		out, err = res.Config.YAML()
	}
	if err != nil {
		return errors.Wrap(err, "render config")
	}
	_, err = env.Stdout.Write(out)
	return err
}

func (c *generateCommand) request() (confgen.Request, error) {
	if strings.TrimSpace(c.accessPoints) == "" {
		return confgen.Request{}, &ExitError{Code: ExitUsage, Message: "--access-points is required"}
	}
	class, err := confgen.ParseNetClass(c.netClass)
	if err != nil {
		return confgen.Request{}, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	if c.numEngines < 0 || c.minSSDs < 0 {
		return confgen.Request{}, &ExitError{Code: ExitUsage, Message: "--num-engines and --min-ssds must not be negative"}
	}

	req := confgen.NewRequest(strings.Split(c.accessPoints, ",")...)
	req.NumEngines = c.numEngines
	req.MinSSDs = c.minSSDs
	req.NetClass = class
	req.NetProvider = strings.TrimSpace(c.netProvider)
	req.AccessPointPort = c.port

	// Reject bad access points before paying for a scan.
	if _, err := confgen.ParseAccessPoints(req.AccessPoints, req.AccessPointPort); err != nil {
		return confgen.Request{}, err
	}
	return req, nil
}

package cmd

import (
	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("restir")

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	// Per-module overrides, e.g. "renderer=debug,scene=info"
	if spec := ctx.GlobalString("log-level"); spec != "" {
		return log.SetModuleLevels(spec)
	}
	return nil
}

package cmd

import (
	"github.com/df07/go-realtime-restir/web/server"
	"github.com/urfave/cli"
)

// Serve starts the web interface.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	port := ctx.Int("port")
	logger.Noticef("visit http://localhost:%d to start rendering", port)
	return server.NewServer(port).WithStaticDir(ctx.String("static")).Start()
}

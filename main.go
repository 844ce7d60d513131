package main

import (
	"os"

	"github.com/df07/go-realtime-restir/cmd"
	"github.com/df07/go-realtime-restir/pkg/log"
)

func main() {
	if err := cmd.NewApp().Run(os.Args); err != nil {
		log.New("main").Errorf("%v", err)
		os.Exit(1)
	}
}

// Demo entry point: loads the runtime configuration and runs the
// reference scene, windowed or headless.
package main

import (
	"flag"
	"os"

	"github.com/codeyousef/materia/demo"
	"github.com/codeyousef/materia/gpu/config"
	"github.com/codeyousef/materia/gpu/core"
)

func main() {
	configPath := flag.String("config", "materia.toml", "path to the runtime configuration file")
	headless := flag.Bool("headless", false, "render offscreen without a window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
	if *headless {
		cfg.Headless = true
	}

	if err := demo.Run(cfg); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}

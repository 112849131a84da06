package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/impostor/internal/config"
)

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: impostor config [options] [file]")
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal(err)
	}
	path, err := writeConfig(cfg, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s\n", path)
}

// writeConfig saves cfg to path, or to the user config location when path
// is empty, and returns where it went.
func writeConfig(cfg *config.Config, path string) (string, error) {
	if path == "" {
		return config.DefaultPath(), cfg.Save()
	}
	return path, cfg.SaveTo(path)
}

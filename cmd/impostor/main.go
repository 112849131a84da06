// impostor bakes a detailed model into a texture atlas on a low-polygon
// proxy mesh.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bake", "b":
		cmdBake(args)
	case "inspect", "i":
		cmdInspect(args)
	case "watch", "w":
		cmdWatch(args)
	case "config", "c":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`impostor - bake a detailed model onto an enclosing proxy mesh

Usage:
  impostor <command> [options]

Commands:
  bake [options] <model>...      Bake; the last object is the proxy
  inspect [options] <manifest>   Show a bake manifest (IMP-<name>.yaml)
  watch [options] <model>...     Bake, then rebake whenever inputs change
  config [options] [file]        Write the effective config (default: user config dir)

Common options:
  -config <file>    Config file (.yaml or .toml)
  -out <dir>        Output directory
  -ppu <n>          Pixels per model unit (0 = fit largest face to atlas)
  -atlas-width <n>  Atlas width in pixels (default 256)
  -narrow <policy>  clamp | skip | fail
  -wide <policy>    downscale | reject
  -backend <name>   soft | gl
  -format <fmt>     png | tiff | bmp
  -overlay          Also write IMP-<name>.overlay.png
  -debug            Debug logging

Examples:
  impostor bake statue.obj                 # statue.obj holds source objects then the proxy
  impostor bake statue.ply proxy.obj -out build
  impostor inspect build/IMP-proxy.yaml -overlay check.png
  impostor inspect -face 3 build/IMP-proxy.yaml
  impostor config -atlas-width 512 -backend gl impostor.yaml
  impostor watch -workers 4 statue.obj proxy.obj`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

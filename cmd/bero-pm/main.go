// Package main provides the entry point for bero-pm, the command-line
// package manager. It parses the top-level subcommand and dispatches to the
// command registry, which owns the actual resolve/lock/install logic.
package main

import (
	"fmt"
	"os"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/commands"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/cli"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()
		return
	case "version", "-v", "--version":
		jsonOutput := false
		for _, arg := range args {
			if arg == "--json" || arg == "-j" {
				jsonOutput = true
				break
			}
		}
		cli.PrintVersion("bero-pm", jsonOutput)
		return
	}

	registry := commands.NewRegistry()

	if _, ok := registry.GetCommand(sub); !ok {
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}

	ctx, err := utils.CreateRegistryContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create registry context: %v\n", err)
		os.Exit(1)
	}

	if err := registry.ExecuteCommand(sub, ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error executing command %q: %v\n", sub, err)
		os.Exit(1)
	}
}

func usage() {
	registry := commands.NewRegistry()

	infos := make([]cli.CommandInfo, 0, len(registry.GetAllCommands()))
	for _, name := range registry.GetAllCommands() {
		command, ok := registry.GetCommand(name)
		if !ok {
			continue
		}
		infos = append(infos, cli.CommandInfo{Name: name, Description: command.Description()})
	}

	cli.PrintUsage("bero-pm", infos)
}

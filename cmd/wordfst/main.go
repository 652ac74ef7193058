// Copyright 2025 The wordfst Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the wordfst command: a static fuzzy dictionary
with a build step, an interactive prompt, a terminal UI and a MessagePack
IPC server.

wordfst compiles a word list into a compact automaton file that is memory
mapped at startup. Queries walk that automaton together with a Levenshtein
automaton and return the ten best entries within one edit of the query,
exact matches first, then by weight.

# Usage

Build the index from a word list (one "word,weight" per line):

	wordfst build --source words.txt --index words.fst

Search interactively:

	wordfst search
	wordfst tui

Serve msgpack requests on stdin/stdout, rebuilding when the source changes:

	wordfst serve --watch --metrics-addr :9100

Show what an index or word list contains:

	wordfst inspect words.fst

# Configuration

Options come from a TOML (or YAML) file, created with defaults on first
run under the user config directory:

	[index]
	source = "dict.txt"
	path = "dict.fst"

	[search]
	limit = 10
	max_distance = 1

Flags override the file for paths. search, tui and serve rebuild the index
first when the source is newer.
*/
package main

import (
	"fmt"
	"os"

	"github.com/bastiangx/wordfst/internal/logger"
	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	AppName = "wordfst"
	gh      = "https://github.com/bastiangx/wordfst"
)

var (
	configPath string
	debugMode  bool
	sourceFlag string
	indexFlag  string

	rootCmd = &cobra.Command{
		Use:           AppName,
		Short:         "Fast fuzzy lookups over a static, memory-mapped dictionary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(debugMode)
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show current version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			showVersion()
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a config file (.toml, .yaml)")
	pf.BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	pf.StringVar(&sourceFlag, "source", "", "Word list to build from (overrides index.source)")
	pf.StringVar(&indexFlag, "index", "", "Index file (overrides index.path)")

	rootCmd.AddCommand(versionCmd, buildCmd, searchCmd, tuiCmd, serveCmd, inspectCmd, configCmd)
}

// main only manages the flow; every command lives in commands.go.
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// loadApp reads config, applies flag overrides and resolves paths.
func loadApp() (*app, error) {
	cfg, usedPath, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return nil, err
	}
	if sourceFlag != "" {
		cfg.Index.Source = sourceFlag
	}
	if indexFlag != "" {
		cfg.Index.Path = indexFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolver, err := utils.NewPathResolver(AppName)
	if err != nil {
		log.Warnf("Failed to initialize path resolver: %v", err)
	} else {
		if cfg.Index.Source != "" {
			cfg.Index.Source = resolver.ResolveFile(cfg.Index.Source)
		}
		cfg.Index.Path = resolver.ResolveFile(cfg.Index.Path)
	}

	log.Debugf("Using config: %s", config.GetActiveConfigPath(usedPath))
	log.Debug("Paths", "source", cfg.Index.Source, "index", cfg.Index.Path)
	return newApp(cfg, usedPath), nil
}

func showVersion() {
	out := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	out.SetStyles(styles)

	out.Print("")
	out.Print("[ wordfst ] Fuzzy lookups over a memory-mapped dictionary")
	out.Print("", "version", Version)
	out.Print("")
	out.Print("use -h or --help to see available options")
	out.Print("Github Repo", "gh", gh)

	if debugMode {
		resolver, err := utils.NewPathResolver(AppName)
		if err != nil {
			log.Warnf("Runtime info unavailable: %v", err)
			return
		}
		for k, v := range resolver.GetRuntimeInfo() {
			out.Print(fmt.Sprintf("  %-16s %s", k, v))
		}
	}
}

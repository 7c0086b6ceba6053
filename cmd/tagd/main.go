package main

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/matkrin/tagd/internal/config"
	"github.com/matkrin/tagd/internal/logging"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/server"
)

const (
	name    = "tagd"
	version = "0.1.0"
)

func main() {
	configFile := pflag.String("config", "", "path of the TOML config file (default ~/.config/tagd/config.toml)")
	logLevel := pflag.String("log-level", "", "log level: debug, info, warn or error")
	logFile := pflag.String("log-file", "", "write logs to this file instead of stderr")
	showVersion := pflag.BoolP("version", "v", false, "print the version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", name, version)
		return
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFromFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if pflag.CommandLine.Changed("log-file") {
		cfg.LogFile = *logFile
	}

	closer, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.Info("Logging initialized", "level", cfg.LogLevel, "version", version)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	scanner.Split(lsp.Split)

	state := server.NewState(server.NewConfig(cfg))
	server := server.NewServer(name, version, state, os.Stdout)

	for scanner.Scan() {
		// the scanner reuses its buffer while the server is still reading
		msg := bytes.Clone(scanner.Bytes())
		method, contents, err := lsp.DecodeMessage(msg)
		if err != nil {
			slog.Error("Could not decode message", "err", err)
			continue
		}
		server.HandleMessage(method, contents)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Could not read stdin", "err", err)
	}
	server.Stop()
}

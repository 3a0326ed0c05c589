// Command epubtool inspects, extracts from and upgrades EPUB publications.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

// CLI defines the command-line interface for epubtool.
type CLI struct {
	Verbose bool `short:"v" help:"Log parser diagnostics in development format"`

	Inspect InspectCmd `cmd:"" help:"Print version, metadata, manifest, spine and warnings"`
	TOC     TOCCmd     `cmd:"" name:"toc" help:"Print the table of contents"`
	Extract ExtractCmd `cmd:"" help:"Write a manifest resource's bytes"`
	Upgrade UpgradeCmd `cmd:"" help:"Rewrite a publication as a version 3.0 package"`
}

// runContext is bound into every command's Run method.
type runContext struct {
	logger *zap.Logger
	out    io.Writer
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func run(args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("epubtool"),
		kong.Description("Read, extract and rebuild EPUB publications"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, os.Stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cli.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	return ctx.Run(&runContext{logger: logger, out: stdout})
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "epubtool:", err)
		os.Exit(1)
	}
}

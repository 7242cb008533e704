package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"xrb/build"
	"xrb/config"
	"xrb/rawml"
	"xrb/state"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:         "build",
		Usage:        "Builds X-Ray record(s) for rawml book(s)",
		ArgsUsage:    "SOURCE [DESTINATION]",
		OnUsageError: passUsageError,
		Action:       build.Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "terms", Aliases: []string{"t"},
				Usage: "load terms for every book from `FILE` (YAML) instead of BOOK.terms.yaml next to the book"},
			&cli.StringFlag{Name: "asin", Usage: "set book ASIN (10 chars, A-Z0-9), overrides terms file"},
			&cli.StringFlag{Name: "guid", Usage: "set book unique id (decimal or hex), overrides terms file"},
			&cli.StringFlag{Name: "db", Usage: "set database `NAME` record belongs to, overrides terms file"},
			&cli.Int64Flag{Name: "offset", Usage: "add `N` to every reported location, overrides configuration"},
			&cli.StringFlag{Name: "codepage", Aliases: []string{"cp"},
				Usage: "read markup as `ENCODING` (IANA character set name, default " + rawml.DefaultCodePage + "), overrides configuration"},
			&cli.BoolFlag{Name: "no-shorten", Usage: "never move excerpt start to a later sentence"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing records"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + `
SOURCE:
    file.rawml                   single book
    directory                    every rawml book under directory, symbolic links are not followed
    archive.zip/path/file.rawml  single book inside archive
    archive.zip[/path]           every rawml book inside archive (under path), nested archives are skipped

    Terms are read from BOOK.terms.yaml next to the book (inside the same
    archive for archived books) unless --terms is given.

DESTINATION:
    directory for records, current working directory when absent. Record
    names come from output_name_template in configuration.
`,
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "dumpconfig",
		Usage:        "Dumps either default or actual configuration (YAML)",
		ArgsUsage:    "DESTINATION",
		OnUsageError: passUsageError,
		Action:       dumpConfig,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output embedded configuration template instead of active values"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + `
DESTINATION:
    file to write configuration to, STDOUT when absent

Active configuration is embedded defaults merged with configuration file.
`,
	}
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	var out io.Writer = os.Stdout
	name := "STDOUT"
	if fname := cmd.Args().Get(0); fname != "" {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out, name = f, fname
	}
	env.Log.Info("Writing configuration", zap.String("kind", kind), zap.String("file", name))

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

//nolint:wrapcheck
package main

import (
	"os"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: console, json, markdown",
		Value:   "console",
	}
}

func outputResult(object string, meta map[string]any, formatName string) error {
	return outputResults([]*format.Data{{Object: object, Meta: meta}}, formatName)
}

func outputResults(data []*format.Data, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	return formatter.PrintAll(data, os.Stdout)
}

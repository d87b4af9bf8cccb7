//nolint:wrapcheck
package main

import (
	"context"
	"sort"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/output"
)

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List loudness profiles and category mappings",
		Flags: []cli.Flag{formatFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			data := make([]*format.Data, 0)

			for _, prof := range appl.catalog.All() {
				data = append(data, &format.Data{Object: prof.Key.String(), Meta: output.ProfileToMap(prof)})
			}

			mappings := appl.catalog.Categories()
			categories := make([]string, 0, len(mappings))

			for category := range mappings {
				categories = append(categories, category)
			}

			sort.Strings(categories)

			meta := make(map[string]any, len(categories))
			for _, category := range categories {
				meta[category] = mappings[category].String()
			}

			data = append(data, &format.Data{Object: "categories", Meta: meta})

			return outputResults(data, cmd.String("format"))
		},
	}
}

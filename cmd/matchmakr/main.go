package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "1.0.0"

func main() {
	app := &cli.App{
		Name:    "matchmakr",
		Usage:   "Profile search over skills, endorsements and positions",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML settings file",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding one <name>.json per dataset",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "saved-search-backend",
				Usage: "Saved search storage (json, badger, memory)",
			},
			&cli.StringFlag{
				Name:  "saved-searches",
				Usage: "Saved searches file of the json backend",
			},
			&cli.StringFlag{
				Name:  "badger-dir",
				Usage: "Database directory of the badger backend",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on",
					},
					&cli.StringSliceFlag{
						Name:  "preload",
						Usage: "Datasets to load before serving",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Run a query string such as 'skills.name=Go&location=Lisbon'",
				ArgsUsage: "<query>",
				Action:    queryCommand,
				Flags:     []cli.Flag{datasetFlag()},
			},
			{
				Name:      "suggest",
				Usage:     "Suggest fields and saved searches for some text",
				ArgsUsage: "<text>",
				Action:    suggestCommand,
				Flags:     []cli.Flag{datasetFlag()},
			},
			{
				Name:   "relations",
				Usage:  "List endorsement relations, largest network first",
				Action: relationsCommand,
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of relations to print (0 prints all)",
					},
				},
			},
			{
				Name:      "skills",
				Usage:     "Show the skills related to a skill",
				ArgsUsage: "<skill>",
				Action:    skillsCommand,
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.BoolFlag{
						Name:  "top",
						Usage: "List the skills whose most frequent companion is <skill> instead",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func datasetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dataset",
		Aliases: []string{"d"},
		Usage:   "Dataset name (defaults to default_dataset)",
	}
}

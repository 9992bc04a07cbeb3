package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/risseraka/matchmakr/internal/search"
)

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withDataset runs fn with a ready runtime and the resolved dataset name.
func withDataset(c *cli.Context, fn func(rt *runtime, dataset string) error) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	dataset, err := rt.dataset(c)
	if err != nil {
		return err
	}
	return fn(rt, dataset)
}

func queryCommand(c *cli.Context) error {
	params, err := url.ParseQuery(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return withDataset(c, func(rt *runtime, dataset string) error {
		result, err := rt.engine.Query(c.Context, dataset, search.Params(params))
		if err != nil {
			return err
		}
		return printJSON(c, result)
	})
}

func suggestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("text to suggest for is required")
	}
	return withDataset(c, func(rt *runtime, dataset string) error {
		result, err := rt.engine.Suggest(c.Context, dataset, c.Args().First())
		if err != nil {
			return err
		}
		return printJSON(c, result)
	})
}

func relationsCommand(c *cli.Context) error {
	return withDataset(c, func(rt *runtime, dataset string) error {
		relations, err := rt.engine.Relations(c.Context, dataset)
		if err != nil {
			return err
		}
		if limit := c.Int("limit"); limit > 0 && limit < len(relations) {
			relations = relations[:limit]
		}
		return printJSON(c, relations)
	})
}

func skillsCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("skill name is required")
	}
	skill := c.Args().First()
	return withDataset(c, func(rt *runtime, dataset string) error {
		if c.Bool("top") {
			top, err := rt.engine.TopSkills(c.Context, dataset, skill)
			if err != nil {
				return err
			}
			return printJSON(c, top)
		}
		related, err := rt.engine.RelatedSkills(c.Context, dataset, skill)
		if err != nil {
			return err
		}
		return printJSON(c, related)
	})
}

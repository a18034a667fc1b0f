package cli

import (
	"flag"
	"fmt"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/locations"
)

type estimateOutput struct {
	Countries []string               `json:"countries"`
	Provinces []string               `json:"provinces"`
	Cities    []string               `json:"cities"`
	Count     int                    `json:"count"`
	Tuples    []domain.LocationTuple `json:"tuples,omitempty"`
}

func runEstimate(args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	catalogPath := fs.String("catalog", "", "catalog YAML path (defaults to the built-in catalog)")
	countries := fs.String("countries", constants.SelectAll, "comma-separated country codes, or ALL")
	provinces := fs.String("provinces", constants.SelectAll, "comma-separated province codes, or ALL")
	cities := fs.String("cities", constants.SelectAll, "comma-separated city names, or ALL")
	list := fs.Bool("list", false, "include every resolved location")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		return err
	}
	sel := locations.Selection{
		Countries: locations.ParseLevel(splitList(*countries)),
		Provinces: locations.ParseLevel(splitList(*provinces)),
		Cities:    locations.ParseLevel(splitList(*cities)),
	}

	out := estimateOutput{
		Countries: sel.Countries.Values(),
		Provinces: sel.Provinces.Values(),
		Cities:    sel.Cities.Values(),
		Count:     catalog.Estimate(sel),
	}
	if *list {
		out.Tuples = catalog.Expand(sel)
	}

	if *jsonOut {
		return printJSON(out)
	}
	fmt.Fprintf(stdout, "%d queries per base term\n", out.Count)
	for _, t := range out.Tuples {
		fmt.Fprintf(stdout, "  %s, %s, %s\n", t.City, t.Province, t.Country)
	}
	return nil
}

func runLocations(args []string) error {
	fs := flag.NewFlagSet("locations", flag.ContinueOnError)
	catalogPath := fs.String("catalog", "", "catalog YAML path (defaults to the built-in catalog)")
	country := fs.String("country", "", "show provinces and cities of one country")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		return err
	}

	if *country == "" {
		countries := catalog.Countries()
		if *jsonOut {
			return printJSON(countries)
		}
		for _, c := range countries {
			cities := 0
			for _, p := range c.Provinces {
				cities += len(p.Cities)
			}
			fmt.Fprintf(stdout, "%s  %s (%d provinces, %d cities)\n", c.Code, c.Name, len(c.Provinces), cities)
		}
		return nil
	}

	c, ok := catalog.Country(*country)
	if !ok {
		return fmt.Errorf("unknown country %q", *country)
	}
	if *jsonOut {
		return printJSON(c)
	}
	fmt.Fprintf(stdout, "%s  %s\n", c.Code, c.Name)
	for _, p := range c.Provinces {
		fmt.Fprintf(stdout, "  %s  %s (%d cities)\n", p.Code, p.Name, len(p.Cities))
	}
	return nil
}

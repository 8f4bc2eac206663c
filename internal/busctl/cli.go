// Package busctl implements the busctl command line client for stop and arrival lookups.
package busctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/busgraph/busgraph/internal/api/models"
	"github.com/busgraph/busgraph/internal/transit"
)

// StopService is the transit lookup the commands run against.
type StopService interface {
	FindStopsNear(ctx context.Context, lat, lon float64) ([]*transit.Stop, error)
	GetStopsByIDs(ctx context.Context, ids []string) ([]*transit.Stop, error)
	GetArrivals(ctx context.Context, stopID string) ([]transit.Arrival, error)
}

// ServiceFactory builds the StopService on first use, so --help works without configuration.
type ServiceFactory func() (StopService, error)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "print results as JSON",
	}
}

// NewApp returns the busctl application writing results to out.
// Errors are returned from Run rather than exiting the process.
func NewApp(out io.Writer, newService ServiceFactory) *cli.App {
	return &cli.App{
		Name:           "busctl",
		Usage:          "query bus stops and arrivals",
		Writer:         out,
		ErrWriter:      out,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:  "near",
				Usage: "list bus stops around a coordinate",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Usage: "latitude", Required: true},
					&cli.Float64Flag{Name: "lon", Usage: "longitude", Required: true},
					jsonFlag(),
				},
				Action: func(c *cli.Context) error {
					svc, err := newService()
					if err != nil {
						return err
					}
					stops, err := svc.FindStopsNear(c.Context, c.Float64("lat"), c.Float64("lon"))
					if err != nil {
						return err
					}
					return printStops(c, stops)
				},
			},
			{
				Name:      "stop",
				Usage:     "show one or more bus stops by id, in the order given",
				ArgsUsage: "<id>...",
				Flags:     []cli.Flag{jsonFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("at least one stop id is required", 2)
					}
					svc, err := newService()
					if err != nil {
						return err
					}
					stops, err := svc.GetStopsByIDs(c.Context, c.Args().Slice())
					if err != nil {
						return err
					}
					return printStops(c, stops)
				},
			},
			{
				Name:      "arrivals",
				Usage:     "list predicted arrivals at a stop, soonest first",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{jsonFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one stop id is required", 2)
					}
					svc, err := newService()
					if err != nil {
						return err
					}
					stopID := c.Args().First()
					arrivals, err := svc.GetArrivals(c.Context, stopID)
					if err != nil {
						return err
					}
					return printArrivals(c, stopID, arrivals)
				},
			},
		},
	}
}

func printStops(c *cli.Context, stops []*transit.Stop) error {
	list := models.StopListFromTransit(stops)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, list)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLETTER\tTOWARDS\tBUSES")
	for _, s := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.CommonName, orDash(s.StopLetter), orDash(s.Towards), strings.Join(s.Buses, ","))
	}
	return tw.Flush()
}

func printArrivals(c *cli.Context, stopID string, arrivals []transit.Arrival) error {
	list := models.ArrivalListFromTransit(stopID, arrivals)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, list)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tDUE")
	for _, a := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\n", a.LineName, a.TimeToStation)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

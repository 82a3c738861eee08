// Command loadtest fires concurrent reservations at a running API and checks
// that the event was neither overbooked nor double-booked.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/model"
)

func main() {
	app := &cli.App{
		Name:  "loadtest",
		Usage: "hammer the seat reservation API and verify its invariants",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:3000", Usage: "API base URL", EnvVars: []string{"API_URL"}},
			&cli.IntFlag{Name: "seats", Value: 100, Usage: "capacity of the seeded event"},
			&cli.IntFlag{Name: "requests", Value: 1000, Usage: "number of reservation attempts"},
			&cli.IntFlag{Name: "concurrency", Value: 50, Usage: "maximum in-flight requests"},
			&cli.IntFlag{Name: "users", Value: 0, Usage: "size of the user pool (0 = one user per request)"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "per-request HTTP timeout"},
		},
		Action: func(c *cli.Context) error {
			client := NewClient(c.String("url"), &http.Client{Timeout: c.Duration("timeout")})
			start := time.Now()

			report, err := Run(c.Context, client, Plan{
				Seats:       c.Int("seats"),
				Requests:    c.Int("requests"),
				Concurrency: c.Int("concurrency"),
				Users:       c.Int("users"),
			})
			if err != nil {
				return err
			}
			printReport(report, time.Since(start))

			if len(report.Violations) > 0 {
				return cli.Exit("invariant violated", 2)
			}
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printReport(r *Report, elapsed time.Duration) {
	fmt.Printf("event %d (%d seats) in %s\n", r.Event.ID, r.Event.TotalSeats, elapsed.Round(time.Millisecond))
	for _, o := range []model.Outcome{
		model.OutcomeCreated,
		model.OutcomeSoldOut,
		model.OutcomeDuplicateUser,
		model.OutcomeNotFound,
		model.OutcomeInvalid,
		model.OutcomeInternal,
	} {
		if n := r.Counts[o]; n > 0 {
			fmt.Printf("  %-15s %d\n", o, n)
		}
	}
	fmt.Printf("  persisted       %d\n", r.Persisted)
	if r.NoResponse > 0 {
		fmt.Printf("  no response     %d (may have committed)\n", r.NoResponse)
	}
	for i, err := range r.Errors {
		if i == 5 {
			fmt.Printf("  ... %d more errors\n", len(r.Errors)-i)
			break
		}
		fmt.Printf("  error: %v\n", err)
	}
	for _, v := range r.Violations {
		fmt.Printf("VIOLATION: %s\n", v)
	}
}

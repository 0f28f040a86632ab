package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"req"},
	Short:   "Inspect and act on help requests in the configured store",
	Long: `Operates directly on the configured store. Point STORE_DRIVER=sqlite and
DB_PATH at the server's database to work on live requests.`,
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List help requests, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(true)
		if err != nil {
			return err
		}
		repo, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore(repo)

		status, _ := cmd.Flags().GetString("status")
		all, err := repo.ListRequests(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tREMAINING\tQUESTION")
		for _, req := range all {
			if status != "" && string(req.Status) != status {
				continue
			}
			remaining := "-"
			if req.IsPending() {
				remaining = req.TimeRemaining(now).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				req.ID, req.Status, req.CreatedAt.Format(time.RFC3339), remaining, req.Question)
		}
		return w.Flush()
	},
}

var requestsResolveCmd = &cobra.Command{
	Use:   "resolve <id> <answer...>",
	Short: "Answer a pending help request and learn the answer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, done, err := cliManager(cmd)
		if err != nil {
			return err
		}
		defer done()

		id, answer := args[0], strings.Join(args[1:], " ")
		if err := mgr.Resolve(cmd.Context(), id, answer); err != nil {
			return err
		}
		fmt.Printf("Resolved %s\n", id)
		return nil
	},
}

var requestsTimeoutCmd = &cobra.Command{
	Use:   "timeout <id>",
	Short: "Time out a pending help request now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, done, err := cliManager(cmd)
		if err != nil {
			return err
		}
		defer done()

		report, err := mgr.GetStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if report.Request.Status != domain.StatusPending {
			return fmt.Errorf("request %s is already %s", args[0], report.Request.Status)
		}
		if err := mgr.Timeout(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Timed out %s\n", args[0])
		return nil
	},
}

var requestsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Time out every pending request past its deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, done, err := cliManager(cmd)
		if err != nil {
			return err
		}
		defer done()

		n, err := mgr.Sweep(cmd.Context())
		fmt.Printf("Swept %d overdue request(s)\n", n)
		return err
	},
}

// cliManager builds a lifecycle manager over the configured store without
// arming timers; the caller must invoke the returned cleanup.
func cliManager(cmd *cobra.Command) (*lifecycle.Manager, func(), error) {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return nil, nil, err
	}
	repo, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	mgr := lifecycle.New(repo,
		lifecycle.WithSLAWindow(cfg.Lifecycle.SLAWindow),
		lifecycle.WithNotifier(lifecycle.NewLogNotifier(cfg.BusinessName, logger)),
		lifecycle.WithLogger(logger),
	)
	return mgr, func() {
		mgr.Stop()
		closeStore(repo)
	}, nil
}

func init() {
	requestsListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, resolved, timeout)")
	requestsCmd.AddCommand(requestsListCmd, requestsResolveCmd, requestsTimeoutCmd, requestsSweepCmd)
}

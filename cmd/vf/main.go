// vf - the command-line client for a VibeForge server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vibeforge/vibeforge/internal/client"
	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/journal"
)

var (
	// Global flags
	serverURL string
	caller    string
	jsonOut   bool

	// Version
	version = "0.1.0-alpha"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	defaults := client.DefaultConfig()

	root := &cobra.Command{
		Use:   "vf",
		Short: "VibeForge CLI - mint, like, share and stake",
		Long: `vf talks to a running VibeForge server.

Every command acts as the identity given by --as (or VIBEFORGE_CALLER).
Without one, the server treats you as the anonymous caller.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", defaults.BaseURL, "server URL")
	root.PersistentFlags().StringVar(&caller, "as", string(defaults.Caller), "caller identity")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON (default when stdout is not a terminal)")

	root.AddCommand(versionCmd())
	root.AddCommand(mintCmd())
	root.AddCommand(mineCmd())
	root.AddCommand(engageCmd("like", "Like an item"))
	root.AddCommand(engageCmd("share", "Share an item"))
	root.AddCommand(statsCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(reputationCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(stakeCmd())
	root.AddCommand(claimCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(journalCmd())
	return root
}

func newClient() *client.Client {
	return client.New(client.Config{
		BaseURL: serverURL,
		Caller:  core.Identity(caller),
	})
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

// wantJSON reports whether output should be machine readable
func wantJSON(w io.Writer) bool {
	if jsonOut {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}

// render writes v as JSON, or calls human when writing to a terminal
func render(cmd *cobra.Command, v interface{}, human func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if wantJSON(out) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(out)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show vf version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vf %s\n", version)
		},
	}
}

func mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint [content]",
		Short: "Mint a new item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newClient().Mint(ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return render(cmd, map[string]core.ItemID{"item_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Minted %s\n", id)
			})
		},
	}
}

func mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := newClient().ListMyItems(ctx(cmd))
			if err != nil {
				return err
			}
			return render(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No items yet.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLIKES\tSHARES\tCREATED\tCONTENT")
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
						it.ID, it.LikeCount, it.ShareCount, it.CreatedAt.Format(time.RFC3339), truncate(it.Content, 40))
				}
				tw.Flush()
			})
		},
	}
}

func engageCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [item-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			id := core.ItemID(args[0])

			var (
				count uint64
				err   error
			)
			if action == "share" {
				count, err = c.Share(ctx(cmd), id)
			} else {
				count, err = c.Like(ctx(cmd), id)
			}
			if err != nil {
				return err
			}
			return render(cmd, map[string]interface{}{"item_id": id, "kind": action, "count": count}, func(w io.Writer) {
				fmt.Fprintf(w, "%s now has %d %ss\n", id, count, action)
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [item-id]",
		Short: "Show engagement counts of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := newClient().ItemStats(ctx(cmd), core.ItemID(args[0]))
			if err != nil {
				return err
			}
			return render(cmd, stats, func(w io.Writer) {
				fmt.Fprintf(w, "Likes:  %d\nShares: %d\n", stats.LikeCount, stats.ShareCount)
			})
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your token balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := newClient().Balance(ctx(cmd))
			if err != nil {
				return err
			}
			return render(cmd, map[string]uint64{"balance": bal}, func(w io.Writer) {
				fmt.Fprintf(w, "💰 %d tokens\n", bal)
			})
		},
	}
}

func reputationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reputation",
		Short: "Show your reputation",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := newClient().Reputation(ctx(cmd))
			if err != nil {
				return err
			}
			return render(cmd, map[string]float32{"reputation": rep}, func(w io.Writer) {
				fmt.Fprintf(w, "⭐ %.2f\n", rep)
			})
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset your balance, reputation and items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes your items; pass --yes to confirm")
			}
			if err := newClient().ResetAccount(ctx(cmd)); err != nil {
				return err
			}
			return render(cmd, map[string]string{"status": "reset"}, func(w io.Writer) {
				fmt.Fprintln(w, "Account reset.")
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func stakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stake [amount]",
		Short: "Stake tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], core.ErrInvalidInput)
			}
			resp, err := newClient().Stake(ctx(cmd), amount)
			if err != nil {
				return err
			}
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Staked %d, balance %d\n", resp.Amount, resp.Balance)
			})
		},
	}
}

func claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim the staking reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().ClaimStakingRewards(ctx(cmd))
			if err != nil {
				return err
			}
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Claimed %d, balance %d\n", resp.Amount, resp.Balance)
			})
		},
	}
}

func leaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show top creators and items",
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := newClient().Leaderboard(ctx(cmd))
			if err != nil {
				return err
			}
			return render(cmd, board, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "🏆 Top creators")
				for i, s := range board.TopCreators {
					fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, s.Identity, s.Tokens)
				}
				fmt.Fprintln(tw, "❤️  Most liked")
				for i, s := range board.MostLiked {
					fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, s.ItemID, s.Count)
				}
				fmt.Fprintln(tw, "🔁 Most shared")
				for i, s := range board.MostShared {
					fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, s.ItemID, s.Count)
				}
				tw.Flush()
			})
		},
	}
}

func journalCmd() *cobra.Command {
	var opts journal.QueryOptions
	var verify bool

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List audit journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()

			if verify {
				valid, msg, err := c.VerifyJournal(ctx(cmd))
				if err != nil {
					return err
				}
				return render(cmd, map[string]interface{}{"chain_valid": valid, "error": msg}, func(w io.Writer) {
					if valid {
						fmt.Fprintln(w, "✅ Journal chain intact")
					} else {
						fmt.Fprintf(w, "❌ Journal chain broken: %s\n", msg)
					}
				})
			}

			page, err := c.Journal(ctx(cmd), opts)
			if err != nil {
				return err
			}
			return render(cmd, page, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEQ\tTIME\tKIND\tACTOR\tITEM")
				for _, e := range page.Entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Seq, e.Timestamp.Format(time.RFC3339), e.Kind, e.Actor, e.ItemID)
				}
				tw.Flush()
				fmt.Fprintf(w, "\n%d of %d entries\n", len(page.Entries), page.TotalEntries)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by event kind")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "filter by actor")
	cmd.Flags().StringVar(&opts.ItemID, "item", "", "filter by item")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entries")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "skip entries")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the hash chain instead of listing")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"ecogarden-sync-go/internal/common"
	"ecogarden-sync-go/internal/credits"
	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show credits, CO₂ reduced and garden level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				snap, err := s.Syncer.Current(ctx)
				r := report(cmd)
				r.Header("ECO CREDITS")
				r.PrintSnapshot(snap, s.Syncer.LastError())
				if garden := s.Syncer.Garden(); garden.LevelNumber > 0 {
					r.PrintGarden(garden)
				}
				if err != nil {
					r.Footer("Showing cached values: " + ledger.Message(err))
					return nil
				}
				r.Footer(fmt.Sprintf("%d credits available", snap.TotalCredits))
				return nil
			})
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				entries, err := s.Syncer.History(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to load history: %s", ledger.Message(err))
				}
				r := report(cmd)
				r.Header("CREDIT HISTORY")
				r.PrintHistory(entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}

func (a *app) gardenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "garden",
		Short: "Show the garden level and watering progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				if _, err := s.Syncer.Current(ctx); err != nil {
					return fmt.Errorf("failed to load garden: %s", ledger.Message(err))
				}
				garden := s.Syncer.Garden()
				if garden.LevelNumber == 0 {
					return fmt.Errorf("garden status unavailable")
				}
				r := report(cmd)
				r.Header("GARDEN")
				r.PrintGarden(garden)
				return nil
			})
		},
	}
}

func parsePoints(arg string) (int64, error) {
	points, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || points <= 0 {
		return 0, fmt.Errorf("points must be a positive integer, got %q", arg)
	}
	return points, nil
}

func (a *app) earnCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "earn POINTS",
		Short: "Add credits to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				if _, err := s.Syncer.Earn(ctx, points, reason); err != nil {
					return fmt.Errorf("earn failed: %s", ledger.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Earned %d credits, balance %d\n", points, s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "MANUAL", "Ledger reason")
	return cmd
}

func (a *app) spendCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "spend POINTS",
		Short: "Spend credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				if _, err := s.Syncer.Spend(ctx, points, reason); err != nil {
					return fmt.Errorf("spend failed: %s", ledger.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Spent %d credits, balance %d\n", points, s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "MANUAL", "Ledger reason")
	return cmd
}

func (a *app) challengeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "challenge ACTIVITY",
		Short: "Credit an eco activity (transit, bike, walk, energy_saving, eco_activity)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				earned, err := s.Syncer.UpdateChallengeProgress(ctx, args[0])
				if err != nil {
					return fmt.Errorf("challenge failed: %s", ledger.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: +%d credits\n", credits.ActivityReason(args[0]), earned)
				return nil
			})
		},
	}
}

func (a *app) completeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Report a finished challenge or activity to the backend",
	}
	cmd.AddCommand(a.completeChallengeCmd(), a.completeActivityCmd())
	return cmd
}

func (a *app) completeChallengeCmd() *cobra.Command {
	var c models.ChallengeCompletion
	cmd := &cobra.Command{
		Use:   "challenge ID",
		Short: "Credit a completed challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.ChallengeId = args[0]
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				result, err := s.Syncer.CompleteChallenge(ctx, c)
				if err != nil {
					return fmt.Errorf("challenge completion failed: %s", ledger.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Message)
				fmt.Fprintf(cmd.OutOrStdout(), "Balance %d\n", s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&c.Name, "name", "", "Challenge name shown in the ledger")
	cmd.Flags().StringVar(&c.ChallengeType, "type", "daily", "Challenge type")
	cmd.Flags().Int64Var(&c.Points, "points", 100, "Credits awarded")
	return cmd
}

func (a *app) completeActivityCmd() *cobra.Command {
	var act models.ActivityCompletion
	var distance, carbon string
	cmd := &cobra.Command{
		Use:   "activity TYPE",
		Short: "Credit a completed low-carbon activity (subway, bus, bike, walk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act.ActivityType = args[0]
			var err error
			if act.DistanceKm, err = decimal.NewFromString(distance); err != nil {
				return fmt.Errorf("invalid distance %q: %w", distance, err)
			}
			if act.CarbonSavedKg, err = decimal.NewFromString(carbon); err != nil {
				return fmt.Errorf("invalid carbon %q: %w", carbon, err)
			}
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				result, err := s.Syncer.CompleteActivity(ctx, act)
				if err != nil {
					return fmt.Errorf("activity completion failed: %s", ledger.Message(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Message)
				fmt.Fprintf(cmd.OutOrStdout(), "Balance %d\n", s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&distance, "distance", "0", "Distance travelled in km")
	cmd.Flags().StringVar(&carbon, "carbon", "0", "CO₂ saved in kg")
	cmd.Flags().Int64Var(&act.Points, "points", 50, "Credits awarded")
	cmd.Flags().StringVar(&act.Route, "route", "", "Route description")
	return cmd
}

func (a *app) setTotalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-total TOTAL",
		Short: "Set the credit total; the difference is booked as a manual update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || total < 0 {
				return fmt.Errorf("total must be a non-negative integer, got %q", args[0])
			}
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				if err := s.Syncer.UpdateCredits(ctx, total); err != nil {
					return fmt.Errorf("update failed: %s", ledger.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credit total set to %d\n", s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
}

func (a *app) waterCmd() *cobra.Command {
	var points int64
	cmd := &cobra.Command{
		Use:   "water",
		Short: "Spend credits to water the garden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				result, err := s.Syncer.WaterGarden(ctx, points)
				if err != nil {
					return fmt.Errorf("watering failed: %s", result.Message)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Message)
				if result.LevelUp {
					fmt.Fprintf(out, "Level up! Your garden is now: %s\n", result.NewLevel)
				}
				r := report(cmd)
				r.PrintGarden(s.Syncer.Garden())
				fmt.Fprintf(out, "Balance %d (%s)\n", s.Syncer.Snapshot().TotalCredits, s.Syncer.Snapshot().State)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&points, "points", credits.DefaultWaterCost, "Credits spent on this watering")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the ledger history adds up to the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
				ok, err := s.Syncer.VerifyLedger(ctx, limit)
				if err != nil {
					return fmt.Errorf("verification failed: %s", ledger.Message(err))
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "History has more than %d entries, not verified\n", limit)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger history matches the balance")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum entries to pull")
	return cmd
}

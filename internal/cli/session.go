package cli

import (
	"context"
	"fmt"
	"time"

	"ecogarden-sync-go/internal/common"
	"ecogarden-sync-go/internal/database"
	"ecogarden-sync-go/internal/models"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var (
		token   string
		profile models.UserProfile
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token and profile in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(cmd, func(ctx context.Context, cfg *models.Config, cache *database.Service) error {
				if err := common.NewSession(cache, "").SignIn(ctx, token, profile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as user %d\n", profile.Id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Bearer token issued by the backend")
	cmd.Flags().Int64Var(&profile.Id, "user-id", 0, "User id")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Email")
	cmd.Flags().StringVar(&profile.Username, "username", "", "Display name")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(cmd, func(ctx context.Context, cfg *models.Config, cache *database.Service) error {
				if err := common.NewSession(cache, "").SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func (a *app) onboardingCmd() *cobra.Command {
	var dismiss bool
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Show the how-to guide unless it was dismissed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(cmd, func(ctx context.Context, cfg *models.Config, cache *database.Service) error {
				session := common.NewSession(cache, cfg.Backend.AccessToken)
				today := time.Now()
				out := cmd.OutOrStdout()

				if dismiss {
					if err := session.DismissOnboarding(ctx, today); err != nil {
						return err
					}
					fmt.Fprintln(out, "The guide will not be shown again today")
					return nil
				}

				show, err := session.ShowOnboarding(ctx, today)
				if err != nil {
					return err
				}
				if !show {
					return nil
				}
				fmt.Fprint(out, howTo)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "Do not show the guide again today")
	return cmd
}

const howTo = `How ecogarden works
  1. Log low-carbon trips and challenges to earn credits (ecogarden challenge transit).
  2. Spend 10 credits to water your garden (ecogarden water).
  3. Every level needs a number of waterings; the garden grows through 11 stages.
  4. Spend leftover credits on decorations (ecogarden shop list).
Run 'ecogarden onboarding --dismiss' to hide this for today.
`

package cli

import (
	"context"
	"fmt"
	"strconv"

	"ecogarden-sync-go/internal/common"
	"ecogarden-sync-go/internal/ledger"
	"ecogarden-sync-go/internal/shop"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) shopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse and buy garden decorations",
	}
	cmd.AddCommand(
		a.shopListCmd(),
		a.shopBuyCmd(),
		a.shopGardenCmd(),
		a.shopPlaceCmd(),
		a.shopMoveCmd(),
		a.shopRemoveCmd(),
	)
	return cmd
}

// withInventory loads the selected user's inventory, runs fn and saves the
// result when fn succeeds
func (a *app) withInventory(cmd *cobra.Command, fn func(ctx context.Context, s *common.Services, inv *shop.Inventory) error) error {
	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}
	return a.withServices(cmd, func(ctx context.Context, s *common.Services) error {
		userId := s.Syncer.UserId()
		inv, err := shop.LoadInventory(ctx, catalog, s.Syncer, s.Cache, userId)
		if err != nil {
			return err
		}
		if err := fn(ctx, s, inv); err != nil {
			return err
		}
		return inv.Save(ctx, s.Cache, userId)
	})
}

func parseCoords(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", ys)
	}
	return x, y, nil
}

func (a *app) loadCatalog() (*shop.Catalog, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return shop.LoadCatalog(cfg.Sync.CatalogFile)
}

func (a *app) shopListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List purchasable objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.loadCatalog()
			if err != nil {
				return err
			}
			objects := catalog.Objects()
			r := report(cmd)
			r.Section(fmt.Sprintf("Shop (%d objects)", len(objects)))
			for i, obj := range objects {
				r.Item(i == len(objects)-1, "%s %-10s %-12s %4d credits", obj.Icon, obj.Id, obj.Name, obj.Price)
			}
			return nil
		},
	}
}

func (a *app) shopBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy OBJECT_ID...",
		Short: "Buy one or more objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInventory(cmd, func(ctx context.Context, s *common.Services, inv *shop.Inventory) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					obj, err := inv.Purchase(ctx, id)
					if err != nil {
						if saveErr := inv.Save(ctx, s.Cache, s.Syncer.UserId()); saveErr != nil {
							zap.L().Warn("Failed to save inventory", zap.Error(saveErr))
						}
						return fmt.Errorf("could not buy %s: %s", id, ledger.Message(err))
					}
					fmt.Fprintf(out, "Bought %s %s for %d credits\n", obj.Icon, obj.Name, obj.Price)
				}
				fmt.Fprintf(out, "Balance %d\n", s.Syncer.Snapshot().TotalCredits)
				return nil
			})
		},
	}
}

func (a *app) shopGardenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "garden",
		Short: "Show owned and placed objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.loadCatalog()
			if err != nil {
				return err
			}
			return a.withInventory(cmd, func(ctx context.Context, s *common.Services, inv *shop.Inventory) error {
				r := report(cmd)
				var owned []string
				for _, obj := range catalog.Objects() {
					if n := inv.Count(obj.Id); n > 0 {
						owned = append(owned, fmt.Sprintf("%s %-10s x%d", obj.Icon, obj.Id, n))
					}
				}
				r.Section(fmt.Sprintf("Inventory (%d kinds)", len(owned)))
				for i, line := range owned {
					r.Item(i == len(owned)-1, "%s", line)
				}
				placed := inv.Placed()
				r.Section(fmt.Sprintf("Placed (%d)", len(placed)))
				for i, p := range placed {
					r.Item(i == len(placed)-1, "%s %s at (%.0f, %.0f)", p.Icon, p.Id, p.X, p.Y)
				}
				return nil
			})
		},
	}
}

func (a *app) shopPlaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "place OBJECT_ID X Y",
		Short: "Place an owned object on the garden canvas",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseCoords(args[1], args[2])
			if err != nil {
				return err
			}
			return a.withInventory(cmd, func(ctx context.Context, s *common.Services, inv *shop.Inventory) error {
				placed, err := inv.Place(args[0], x, y)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Placed %s %s as %s\n", placed.Icon, placed.Name, placed.Id)
				return nil
			})
		},
	}
}

func (a *app) shopMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move PLACEMENT_ID X Y",
		Short: "Move a placed object",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseCoords(args[1], args[2])
			if err != nil {
				return err
			}
			return a.withInventory(cmd, func(ctx context.Context, s *common.Services, inv *shop.Inventory) error {
				if err := inv.Move(args[0], x, y); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) shopRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PLACEMENT_ID",
		Short: "Return a placed object to the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInventory(cmd, func(ctx context.Context, s *common.Services, inv *shop.Inventory) error {
				if err := inv.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

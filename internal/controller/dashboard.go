package controller

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// Dashboard reads users, products and orders concurrently and folds them into
// the summary. Any failed read fails the whole dashboard.
func (a *Admin) Dashboard(ctx context.Context) (entity.DashboardStats, error) {
	if _, err := adminOnly(a.session); err != nil {
		return entity.DashboardStats{}, err
	}

	var (
		users    []entity.User
		products []entity.Product
		orders   []entity.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = a.users(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = a.products(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = a.orders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.DashboardStats{}, err
	}
	return entity.NewDashboardStats(users, products, orders), nil
}

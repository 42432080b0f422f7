package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
)

const reconcileBatch = 50

// Reconciler finishes checkouts whose payment was captured but whose order
// could not be written at the time.
type Reconciler struct {
	Checkout *CheckoutService
}

type ReconcileReport struct {
	Checked   int `json:"checked"`
	Resolved  int `json:"resolved"`
	Remaining int `json:"remaining"`
}

func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	l := logging.FromContext(ctx).With("component", "reconciler")
	repo := r.Checkout.Repo

	sessions, err := repo.ListCheckoutSessions(ctx, models.CheckoutReconcileRequired, reconcileBatch)
	if err != nil {
		return nil, translate("reconcile.list", "checkout", err)
	}

	rep := &ReconcileReport{Checked: len(sessions)}
	for i := range sessions {
		sess := &sessions[i]
		sctx := logging.With(ctx, "component", "reconciler", "checkout_id", sess.ID)
		if err := r.Checkout.reconcile(sctx, sess); err != nil {
			logging.FromContext(sctx).Warn("reconcile_failed",
				"processor_order_id", sess.ProcessorOrderID,
				"attempts", sess.Attempts,
				"error", err,
			)
			continue
		}
		rep.Resolved++
		metrics.ReconcileResolved.Inc()
		l.Info("reconcile_resolved", "checkout_id", sess.ID, "order_id", sess.OrderID)
	}

	n, err := repo.CountCheckoutSessions(ctx, models.CheckoutReconcileRequired)
	if err != nil {
		return nil, translate("reconcile.count", "checkout", err)
	}
	rep.Remaining = int(n)
	metrics.ReconcilePending.Set(float64(n))
	return rep, nil
}

// Loop runs the reconciler every interval until ctx is done.
func (r *Reconciler) Loop(ctx context.Context, interval time.Duration) {
	l := logging.FromContext(ctx).With("component", "reconciler")
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rep, err := r.Run(ctx)
			if err != nil {
				l.Error("reconcile_run_failed", "error", err)
				continue
			}
			if rep.Checked > 0 {
				l.Info("reconcile_run", "checked", rep.Checked, "resolved", rep.Resolved, "remaining", rep.Remaining)
			}
		}
	}
}

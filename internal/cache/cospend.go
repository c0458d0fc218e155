package cache

import (
	"context"
	"fmt"
)

// BalanceKey caches a user's balance view.
func BalanceKey(username string) string {
	return Key("cospend", "balance", username)
}

// DebtsKey caches a user's debt summary.
func DebtsKey(username string) string {
	return Key("cospend", "debts", username)
}

// AllBalancesKey caches the balance table of all users.
func AllBalancesKey() string {
	return Key("cospend", "balance", "all")
}

// PaymentListKey caches a page of the payment list.
func PaymentListKey(limit, offset int) string {
	return Key("cospend", "payments", "list", fmt.Sprintf("%d:%d", limit, offset))
}

// PaymentKey caches a single payment.
func PaymentKey(id string) string {
	return Key("cospend", "payment", id)
}

// InvalidateCospend drops the caches a payment write can affect: the balances
// and debts of every user involved, the all-users table, the list pages and
// the payment itself when paymentID is set.
func (c *Cache) InvalidateCospend(ctx context.Context, paymentID string, usernames ...string) error {
	keys := []string{AllBalancesKey()}
	for _, u := range usernames {
		keys = append(keys, BalanceKey(u), DebtsKey(u))
	}
	if paymentID != "" {
		keys = append(keys, PaymentKey(paymentID))
	}

	if err := c.Delete(ctx, keys...); err != nil {
		return err
	}
	if _, err := c.DeletePattern(ctx, Key("cospend", "payments", "list", "*")); err != nil {
		return err
	}
	return nil
}

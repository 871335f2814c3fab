package model

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		if !ValidOrderStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if ValidOrderStatus("Teleported") {
		t.Errorf("unknown status accepted")
	}
}

func TestSignedQuantity(t *testing.T) {
	cases := []struct {
		txType   TransactionType
		quantity int
		want     int
	}{
		{TransactionIn, 5, 5},
		{TransactionOut, 5, -5},
		{TransactionAdjustment, -3, -3},
		{TransactionAdjustment, 7, 7},
	}
	for _, tc := range cases {
		tx := InventoryTransaction{TransactionType: tc.txType, Quantity: tc.quantity}
		if got := tx.SignedQuantity(); got != tc.want {
			t.Errorf("%s %d: got %d, want %d", tc.txType, tc.quantity, got, tc.want)
		}
	}
}

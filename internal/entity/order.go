package entity

import (
	"strings"
	"time"
)

// DeliveryLeadTime is added to the transition time when an order completes.
const DeliveryLeadTime = 7 * 24 * time.Hour

// StatusUpdate builds the admin update for moving an order to status at now.
// Only the pending -> completed transition stamps a delivery date.
func StatusUpdate(status OrderStatus, now time.Time) OrderUpdate {
	upd := OrderUpdate{Status: status}
	if status == OrderCompleted {
		d := now.Add(DeliveryLeadTime)
		upd.DeliveryDate = &d
	}
	return upd
}

func (s OrderStatus) Valid() bool {
	return s == OrderPending || s == OrderCompleted
}

func (m PaymentMode) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentOnline
}

// ShortRef is the order number shown to shoppers: the last eight characters
// of the id, upper-cased.
func (o Order) ShortRef() string {
	id := o.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return "#" + strings.ToUpper(id)
}

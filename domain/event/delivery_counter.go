package event

import "sync/atomic"

// DeliveryCounter keeps running totals of deliveries, translated or not.
type DeliveryCounter struct {
	delivered  atomic.Int64
	translated atomic.Int64
}

func (c *DeliveryCounter) Handle(d Delivered) {
	c.delivered.Add(1)
	if d.Translated {
		c.translated.Add(1)
	}
}

func (c *DeliveryCounter) Totals() (delivered, translated int64) {
	return c.delivered.Load(), c.translated.Load()
}

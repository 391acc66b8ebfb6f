package models

// All lists every relational model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Supplier{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&ProductReview{},
		&SupplierReview{},
		&ReviewReply{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

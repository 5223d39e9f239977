package domain

import "time"

type Category struct {
	ID        string
	UserID    string
	Name      string
	Type      TransactionType
	CreatedAt time.Time
}

package services

import (
	"context"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
)

// CategoryStore is the category persistence port.
type CategoryStore interface {
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	FindCategoryByName(ctx context.Context, ownerID, name string) (core.Category, bool, error)
	InsertCategory(ctx context.Context, c core.Category) error
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, ownerID, id string) error
}

// ExpenseStore is the expense persistence port.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id string) error
	GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseWithCategory, error)
	ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) (core.ExpensePage, error)
	ListExpenseAmounts(ctx context.Context, ownerID string) ([]core.ExpenseAmount, error)
	UpdateExpenseConversion(ctx context.Context, ownerID string, c core.ExpenseConversion) error
}

// ProfileStore reads and writes the owner's base-currency preference.
type ProfileStore interface {
	GetProfile(ctx context.Context, ownerID string) (core.Profile, error)
	SetBaseCurrency(ctx context.Context, ownerID, currency string) error
}

// ProfileWriter also stores the owner's display name.
type ProfileWriter interface {
	ProfileStore
	SetDisplayName(ctx context.Context, ownerID, name string) error
}

// ProductEventStore persists client usage events.
type ProductEventStore interface {
	InsertProductEvent(ctx context.Context, e core.ProductEvent) error
}

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.Event) error
}

// ChangeHook is told which owner's data changed so derived caches can be dropped.
type ChangeHook func(ownerID string)

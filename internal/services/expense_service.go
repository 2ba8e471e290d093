package services

import (
	"context"
	"fmt"
	"log/slog"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
)

// Repository is the storage surface the service needs.
type Repository interface {
	ListExpenses(ctx context.Context, monthPrefix string) ([]core.Expense, error)
	InsertExpense(ctx context.Context, f core.ExpenseFields) (int64, error)
	UpdateExpense(ctx context.Context, id int64, f core.ExpenseFields) error
	DeleteExpense(ctx context.Context, id int64) error
	GetBudget(ctx context.Context) (float64, error)
	SetBudget(ctx context.Context, value float64) error
}

// EventPublisher publishes change events after successful writes.
type EventPublisher interface {
	PublishChange(ctx context.Context, entity, action string, id int64) error
}

// ExpenseService orchestrates storage writes and change-event publishing.
// The write is the source of truth: publish failures are logged and never
// fail the request.
type ExpenseService struct {
	repo   Repository
	events EventPublisher
}

func NewExpenseService(repo Repository, events EventPublisher) *ExpenseService {
	return &ExpenseService{repo: repo, events: events}
}

func (s *ExpenseService) ListExpenses(ctx context.Context, monthPrefix string) ([]core.Expense, error) {
	return s.repo.ListExpenses(ctx, monthPrefix)
}

// CreateExpense inserts the expense and publishes a created event.
func (s *ExpenseService) CreateExpense(ctx context.Context, f core.ExpenseFields) (int64, error) {
	id, err := s.repo.InsertExpense(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	s.publish(ctx, amqp.EntityExpense, amqp.ActionCreated, id)
	return id, nil
}

// UpdateExpense replaces the expense's mutable fields and publishes an
// updated event. A missing id is still a successful no-op.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, f core.ExpenseFields) error {
	if err := s.repo.UpdateExpense(ctx, id, f); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.EntityExpense, amqp.ActionUpdated, id)
	return nil
}

// DeleteExpense removes the expense and publishes a deleted event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.EntityExpense, amqp.ActionDeleted, id)
	return nil
}

func (s *ExpenseService) GetBudget(ctx context.Context) (float64, error) {
	return s.repo.GetBudget(ctx)
}

// SetBudget overwrites the budget and publishes an updated event.
func (s *ExpenseService) SetBudget(ctx context.Context, value float64) error {
	if err := s.repo.SetBudget(ctx, value); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	s.publish(ctx, amqp.EntityBudget, amqp.ActionUpdated, 0)
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, entity, action string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, entity, action, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"error", err, "entity", entity, "action", action, "id", id)
	}
}

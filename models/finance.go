// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain payloads carried inside SyncableRecord. The engine never inspects
// them; they exist so domain services and tests speak the same shapes the
// application does.

// Expense is a single spending event.
type Expense struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
	SpentAt  time.Time       `json:"spent_at"`
	BudgetID string          `json:"budget_id,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// Budget is a spending limit over a recurring period.
type Budget struct {
	Name     string          `json:"name"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
	Currency string          `json:"currency"`
	Period   string          `json:"period"` // "weekly", "monthly", ...
	StartsAt time.Time       `json:"starts_at"`
}

// SavingsGoal tracks progress toward a target amount.
type SavingsGoal struct {
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Saved    decimal.Decimal `json:"saved"`
	Currency string          `json:"currency"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// Subscription is a recurring charge the user wants tracked.
type Subscription struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Cadence   string          `json:"cadence"` // "monthly", "yearly", ...
	NextDueAt time.Time       `json:"next_due_at"`
	Active    bool            `json:"active"`
}

package core

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
)

// UncategorizedLabel is the aggregation bucket for expenses with an empty
// category. It is never written back to storage.
const UncategorizedLabel = "Khác"

// DateLayout is the calendar date format used across storage and the API.
const DateLayout = "2006-01-02"

type (
	// Expense is a single persisted expense record.
	Expense struct {
		ID       int64   `json:"id"`
		Date     string  `json:"date"`
		Item     string  `json:"item"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Purpose  string  `json:"purpose"`
	}

	// ExpenseFields carries the mutable fields of an expense for
	// insert and update operations. A blank Date means "default":
	// today on insert, the stored date on update.
	ExpenseFields struct {
		Date     string  `json:"date"`
		Item     string  `json:"item"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Purpose  string  `json:"purpose"`
	}

	// Draft is the structured output of the expense-draft parser.
	// It is not yet persisted; the caller reviews it before saving.
	Draft struct {
		Item     string  `json:"item"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Purpose  string  `json:"purpose"`
	}

	// CategoryAmount is an amount aggregated under a category name.
	CategoryAmount struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Validate checks the fields that must hold before a write reaches
// storage. Item, category and purpose are free text and may be empty.
func (f ExpenseFields) Validate() error {
	if err := validateAmount(f.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(f.Date) != "" {
		if _, err := time.Parse(DateLayout, strings.TrimSpace(f.Date)); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Validate checks the parser's output contract: a usable item label and a
// positive numeric amount.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Item) == "" {
		return errors.New("empty item")
	}
	if err := validateAmount(d.Amount); err != nil {
		return err
	}
	if d.Amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MonthPrefix returns the YYYY-MM prefix for t, used to filter expenses
// by calendar month via prefix match on the date column.
func MonthPrefix(t time.Time) string {
	return t.Format("2006-01")
}

// ValidateMonth checks a YYYY-MM month string.
func ValidateMonth(month string) error {
	if !monthRe.MatchString(month) {
		return ErrInvalidMonth
	}
	return nil
}

// BucketCategory maps an empty category to the uncategorized bucket.
// Aggregation only: the raw value stays untouched in storage.
func BucketCategory(category string) string {
	if category == "" {
		return UncategorizedLabel
	}
	return category
}

package tracker

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"sjsage522/pricecompare/internal/pricing"
)

// ErrNotFound is returned when no item has the requested ID
var ErrNotFound = errors.New("tracked item not found")

// Check frequencies. Frequency is recorded only; nothing schedules re-checks.
const (
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Item is a product a user wants to hear about once it drops to a target price
type Item struct {
	ID            string         `json:"id"`
	ProductName   string         `json:"product_name"`
	URL           string         `json:"url"`
	Source        pricing.Source `json:"source"`
	TargetPrice   float64        `json:"target_price"`
	Email         string         `json:"email"`
	Frequency     string         `json:"frequency"`
	CreatedAt     time.Time      `json:"created_at"`
	LastPrice     *float64       `json:"last_price,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
}

// Repository stores tracked items
type Repository interface {
	Create(ctx context.Context, item Item) (Item, error)
	Get(ctx context.Context, id string) (Item, error)
	ListByEmail(ctx context.Context, email string) ([]Item, error)
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, id string) error
}

// ValidationError lists what is wrong with an item
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid tracked item: " + strings.Join(e.Problems, "; ")
}

// Normalize trims the item's fields and fills in the default frequency
func Normalize(item Item) Item {
	item.ProductName = strings.TrimSpace(item.ProductName)
	item.URL = strings.TrimSpace(item.URL)
	item.Email = strings.ToLower(strings.TrimSpace(item.Email))
	item.Frequency = strings.ToLower(strings.TrimSpace(item.Frequency))
	if item.Frequency == "" {
		item.Frequency = FrequencyDaily
	}
	return item
}

// Validate checks a normalized item
func Validate(item Item) error {
	var problems []string

	if item.ProductName == "" {
		problems = append(problems, "product_name is required")
	}
	if u, err := url.Parse(item.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, "url must be an absolute http(s) URL")
	}
	if item.TargetPrice <= 0 {
		problems = append(problems, "target_price must be positive")
	}
	if _, err := mail.ParseAddress(item.Email); err != nil || !strings.Contains(item.Email, "@") {
		problems = append(problems, "email is invalid")
	}
	switch item.Frequency {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
	default:
		problems = append(problems, "frequency must be hourly, daily or weekly")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Observation is the outcome of one manual price check
type Observation struct {
	ItemID        string         `json:"item_id"`
	Source        pricing.Source `json:"source"`
	URL           string         `json:"url"`
	Price         *float64       `json:"price,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Tier          int            `json:"tier,omitempty"`
	Strategy      string         `json:"strategy,omitempty"`
	TargetPrice   float64        `json:"target_price"`
	TargetReached bool           `json:"target_reached"`
	Error         string         `json:"error,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	ErrorType     string         `json:"error_type,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
	CheckedAt     time.Time      `json:"checked_at"`
}

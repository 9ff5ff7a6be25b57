package customers

import (
	"fmt"
	"unicode/utf8"

	"storesync/internal/services/shopify"
)

type RecordError struct {
	CustomerID int64  `json:"customer_id"`
	Message    string `json:"message"`
}

// Summary is the outcome of one import run.
type Summary struct {
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []RecordError `json:"errors,omitempty"`
}

func (s *Summary) String() string {
	return fmt.Sprintf("Customer synchronization completed: %d imported, %d failed out of %d.", s.Imported, s.Failed, s.Total)
}

// Indicator is "green" for a clean run and "orange" when records failed.
func (s *Summary) Indicator() string {
	if s.Failed > 0 {
		return "orange"
	}
	return "green"
}

func (s *Summary) fail(c *shopify.Customer, err error) {
	s.Failed++
	msg := err.Error()
	if utf8.RuneCountInString(msg) > maxErrorLength {
		msg = string([]rune(msg)[:maxErrorLength])
	}
	s.Errors = append(s.Errors, RecordError{CustomerID: c.ID, Message: msg})
}

package customers

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/services/shopify"
)

func TestSummaryFail_TruncatesOnRuneBoundary(t *testing.T) {
	var s Summary
	s.fail(&shopify.Customer{ID: 7}, errors.New("a"+strings.Repeat("é", 200)))

	require.Len(t, s.Errors, 1)
	msg := s.Errors[0].Message
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, maxErrorLength, utf8.RuneCountInString(msg))
	assert.Equal(t, int64(7), s.Errors[0].CustomerID)
	assert.Equal(t, 1, s.Failed)
}

func TestSummaryFail_KeepsShortMessages(t *testing.T) {
	var s Summary
	s.fail(&shopify.Customer{ID: 1}, errors.New("customer has no id"))
	assert.Equal(t, "customer has no id", s.Errors[0].Message)
}

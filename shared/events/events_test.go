package events

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageDecodesEnvelope(t *testing.T) {
	from, to := int64(1), int64(2)
	event, err := NewEvent(TransactionPosted, TransactionPostedEvent{
		TransactionID:   9,
		TransactionType: "PAYMENT",
		UserID:          5,
		Amount:          300,
		FromAccountID:   &from,
		ToAccountID:     &to,
		PostBalance:     300,
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	parsed, err := ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{"event": string(raw)}})
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, TransactionPosted, parsed.Type)

	var payload TransactionPostedEvent
	require.NoError(t, parsed.Decode(&payload))
	assert.Equal(t, []int64{1, 2}, payload.AccountIDs())
}

func TestParseMessageRejectsMissingEnvelope(t *testing.T) {
	_, err := ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{"type": "x"}})
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = ParseMessage(redis.XMessage{ID: "2-0", Values: map[string]any{"event": "{not json"}})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestAccountIDsSkipsExternalLeg(t *testing.T) {
	to := int64(4)
	assert.Equal(t, []int64{4}, TransactionPostedEvent{ToAccountID: &to}.AccountIDs())
}

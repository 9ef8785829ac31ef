package bidding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeIsValid(t *testing.T) {
	assert.True(t, EventTypeBidPlaced.IsValid())
	assert.True(t, EventTypeLotSold.IsValid())
	assert.False(t, EventType("user.banned").IsValid())
	assert.False(t, EventType("").IsValid())
}

func TestOutboxStatusIsTerminal(t *testing.T) {
	assert.False(t, OutboxStatusPending.IsTerminal())
	assert.False(t, OutboxStatusProcessing.IsTerminal())
	assert.True(t, OutboxStatusPublished.IsTerminal())
	assert.True(t, OutboxStatusFailed.IsTerminal())
}

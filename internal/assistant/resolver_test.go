package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"fee upper case", "Check my FEE payment status", FeeReply},
		{"timetable", "When is the timetable out?", TimetableReply},
		{"document", "Check document verification status", DocumentReply},
		{"fallback", "random question", FallbackReply},
		{"empty", "", FallbackReply},
		{"fee beats document", "is my fee document ok", FeeReply},
		{"timetable beats document", "TIMETABLE and document", TimetableReply},
		{"substring inside word", "coffee break", FeeReply},
		{"schedule is not timetable", "Show my class schedule", FallbackReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.utterance))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"fee", "Timetable?", "documents please", "hello"} {
		first := Resolve(u)
		for i := 0; i < 10; i++ {
			require.Equal(t, first, Resolve(u))
		}
	}
}

func TestQuickRepliesOrderAndLookup(t *testing.T) {
	t.Parallel()

	qrs := QuickReplies()
	require.Len(t, qrs, 4)
	assert.Equal(t, "💳 Fee Status", qrs[0].Label)
	assert.Equal(t, "🙋 Admin Help", qrs[3].Label)

	utterance, ok := LookupQuickReply("💳 Fee Status")
	require.True(t, ok)
	assert.Equal(t, "Check my fee payment status", utterance)
	assert.Equal(t, FeeReply, Resolve(utterance))

	_, ok = LookupQuickReply("Fee Status")
	assert.False(t, ok)
}

func TestQuickRepliesReturnsCopy(t *testing.T) {
	t.Parallel()

	qrs := QuickReplies()
	qrs[0].Utterance = "changed"
	utterance, _ := LookupQuickReply("💳 Fee Status")
	assert.Equal(t, "Check my fee payment status", utterance)
}

func TestThink(t *testing.T) {
	t.Parallel()

	require.NoError(t, Think(context.Background(), 0))
	require.NoError(t, Think(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Think(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

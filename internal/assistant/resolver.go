package assistant

import (
	"context"
	"strings"
	"time"
)

type rule struct {
	keyword string
	reply   string
}

// Checked in order; the first keyword found wins.
var rules = []rule{
	{keyword: "fee", reply: FeeReply},
	{keyword: "timetable", reply: TimetableReply},
	{keyword: "document", reply: DocumentReply},
}

// Resolve maps a user utterance to its canned reply. Matching is a
// case-insensitive substring test evaluated in priority order.
func Resolve(utterance string) string {
	text := strings.ToLower(utterance)
	for _, r := range rules {
		if strings.Contains(text, r.keyword) {
			return r.reply
		}
	}
	return FallbackReply
}

// Think blocks for the cosmetic "thinking" delay shown before a reply.
// It returns early with the context error if ctx ends first.
func Think(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

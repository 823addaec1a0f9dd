package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository/memory"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func msg(id, conv string, dir domain.Direction, ch domain.Channel, at time.Time) domain.Message {
	return domain.Message{ID: id, ConversationID: conv, Direction: dir, Channel: ch, Content: id, CreatedAt: at}
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	msgs := []domain.Message{
		msg("m1", "c1", domain.DirectionIncoming, domain.ChannelEmail, t0),
		msg("m2", "c1", domain.DirectionOutgoing, domain.ChannelEmail, t0.Add(15*time.Minute)),
		msg("m3", "c1", domain.DirectionIncoming, domain.ChannelEmail, t0.Add(30*time.Minute)),
		msg("m4", "c2", domain.DirectionIncoming, domain.ChannelWhatsApp, t0.Add(-time.Hour)),
		msg("m5", "c2", domain.DirectionOutgoing, domain.ChannelWhatsApp, t0.Add(-45*time.Minute)),
	}
	for i := range msgs {
		require.NoError(t, store.Messages().Create(ctx, &msgs[i]))
	}

	rules := []domain.Rule{
		{ID: "r-checkout", Name: "Checkout Info", Priority: 5, CreatedAt: t0},
		{ID: "r-idle", Name: "Never Fired", Priority: 1, CreatedAt: t0},
	}
	for i := range rules {
		require.NoError(t, store.Rules().Create(ctx, &rules[i]))
	}

	evts := []domain.Event{
		{ID: "e1", Type: domain.EventRuleTriggered, RuleID: strPtr("r-checkout")},
		{ID: "e2", Type: domain.EventRuleExecuted, RuleID: strPtr("r-checkout")},
		{ID: "e3", Type: domain.EventAIResponseGenerated, Payload: map[string]any{"source": "manual"}},
		{ID: "e4", Type: domain.EventAIResponseGenerated, RuleID: strPtr("r-checkout"), Payload: map[string]any{"source": "rule"}},
		{ID: "e5", Type: domain.EventAIResponseGenerated, Payload: map[string]any{"source": "rule"}},
	}
	for i := range evts {
		require.NoError(t, store.Events().Append(ctx, &evts[i]))
	}
	return store
}

func newAggregator(store *memory.Store, now time.Time) *Aggregator {
	return NewAggregator(Dependencies{
		MessageRepo: store.Messages(),
		EventRepo:   store.Events(),
		RuleRepo:    store.Rules(),
		Now:         func() time.Time { return now },
	})
}

func TestCompute(t *testing.T) {
	agg := newAggregator(seed(t), t0.Add(2*time.Hour))

	report, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalMessages)
	assert.Equal(t, 3, report.MessagesReceived)
	assert.Equal(t, 2, report.MessagesSent)
	assert.Equal(t, 1, report.AIAssistedReplies)
	assert.Equal(t, 50, report.AIAssistedPercentage)
	assert.Equal(t, 2, report.AutomatedReplies)
	assert.Equal(t, 100, report.AutomatedPercentage)

	// 15m and 15m samples; trailing INCOMING m3 contributes nothing.
	require.NotNil(t, report.AverageResponseTimeMs)
	assert.Equal(t, int64(15*60*1000), *report.AverageResponseTimeMs)
	assert.Equal(t, 2, report.ResponseSamples)
	assert.Equal(t, "15m", report.AverageResponseTimeFormatted)

	assert.Equal(t, []ChannelCount{
		{Channel: domain.ChannelWhatsApp, Count: 2},
		{Channel: domain.ChannelEmail, Count: 3},
	}, report.MessagesByChannel)

	assert.Equal(t, []RuleActivity{
		{RuleID: "r-checkout", RuleName: "Checkout Info", Triggered: 1, Executed: 1},
	}, report.RulePerformance)

	require.Len(t, report.MessagesByDay, 7)
	assert.Equal(t, "2024-01-09", report.MessagesByDay[0].Date)
	last := report.MessagesByDay[6]
	assert.Equal(t, "2024-01-15", last.Date)
	assert.Equal(t, "Mon, Jan 15", last.Label)
	assert.Equal(t, 3, last.Received)
	assert.Equal(t, 2, last.Sent)
	assert.Zero(t, report.MessagesByDay[3].Received)
}

func TestComputeIsIdempotent(t *testing.T) {
	agg := newAggregator(seed(t), t0)

	first, err := agg.Compute(context.Background())
	require.NoError(t, err)
	second, err := agg.Compute(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("report changed between calls (-first +second):\n%s", diff)
	}
}

func TestComputeEmpty(t *testing.T) {
	agg := newAggregator(memory.NewStore(), t0)

	report, err := agg.Compute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.AIAssistedPercentage)
	assert.Zero(t, report.AutomatedPercentage)
	assert.Nil(t, report.AverageResponseTimeMs)
	assert.Equal(t, "N/A", report.AverageResponseTimeFormatted)
	assert.Len(t, report.MessagesByDay, 7)
	assert.Empty(t, report.MessagesByChannel)
	assert.Empty(t, report.RulePerformance)
}

func TestAverageResponseTimeSingleSample(t *testing.T) {
	msgs := []domain.Message{
		msg("a", "c1", domain.DirectionIncoming, domain.ChannelWeb, t0),
		msg("b", "c1", domain.DirectionOutgoing, domain.ChannelWeb, t0.Add(5000*time.Millisecond)),
		msg("c", "c1", domain.DirectionIncoming, domain.ChannelWeb, t0.Add(10000*time.Millisecond)),
	}
	avg, samples := AverageResponseTime(msgs)
	assert.Equal(t, 1, samples)
	assert.Equal(t, int64(5000), avg)
}

func TestAverageResponseTimeIgnoresCrossConversationPairs(t *testing.T) {
	msgs := []domain.Message{
		msg("a", "c1", domain.DirectionIncoming, domain.ChannelWeb, t0),
		msg("b", "c2", domain.DirectionOutgoing, domain.ChannelWeb, t0.Add(time.Second)),
	}
	_, samples := AverageResponseTime(msgs)
	assert.Zero(t, samples)
}

func TestFormatResponseTime(t *testing.T) {
	ms := func(v int64) *int64 { return &v }
	tests := []struct {
		in   *int64
		want string
	}{
		{nil, "N/A"},
		{ms(0), "0ms"},
		{ms(999), "999ms"},
		{ms(1000), "1s"},
		{ms(1500), "2s"},
		{ms(59_499), "59s"},
		{ms(60_000), "1m"},
		{ms(90_000), "2m"},
		{ms(3_600_000), "1h"},
		{ms(5_400_000), "2h"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatResponseTime(tc.in))
	}
}

func TestDailySeriesUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 14th is 05:00 on the 15th in JST.
	msgs := []domain.Message{msg("a", "c1", domain.DirectionIncoming, domain.ChannelWeb, time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC))}

	series := DailySeries(msgs, t0, tokyo, 7)
	assert.Equal(t, "2024-01-15", series[6].Date)
	assert.Equal(t, 1, series[6].Received)

	utc := DailySeries(msgs, t0, time.UTC, 7)
	assert.Equal(t, 1, utc[5].Received)
}

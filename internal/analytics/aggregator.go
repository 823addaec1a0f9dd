// Package analytics derives inbox metrics from stored messages and the event ledger.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository"
)

const trailingDays = 7

// Report is the full analytics bundle.
type Report struct {
	TotalMessages                int            `json:"totalMessages"`
	MessagesReceived             int            `json:"messagesReceived"`
	MessagesSent                 int            `json:"messagesSent"`
	AIAssistedReplies            int            `json:"aiAssistedReplies"`
	AIAssistedPercentage         int            `json:"aiAssistedPercentage"`
	AutomatedReplies             int            `json:"automatedReplies"`
	AutomatedPercentage          int            `json:"automatedPercentage"`
	AverageResponseTimeMs        *int64         `json:"averageResponseTimeMs"`
	AverageResponseTimeFormatted string         `json:"averageResponseTimeFormatted"`
	ResponseSamples              int            `json:"responseSamples"`
	MessagesByDay                []DailyVolume  `json:"messagesByDay"`
	MessagesByChannel            []ChannelCount `json:"messagesByChannel"`
	RulePerformance              []RuleActivity `json:"rulePerformance"`
}

// DailyVolume is one calendar day of traffic.
type DailyVolume struct {
	Date     string `json:"date"`
	Label    string `json:"label"`
	Received int    `json:"received"`
	Sent     int    `json:"sent"`
}

// ChannelCount is the message count for one channel.
type ChannelCount struct {
	Channel domain.Channel `json:"channel"`
	Count   int            `json:"count"`
}

// RuleActivity counts ledger entries for one rule.
type RuleActivity struct {
	RuleID    string `json:"ruleId"`
	RuleName  string `json:"ruleName"`
	Triggered int    `json:"triggered"`
	Executed  int    `json:"executed"`
}

// Aggregator is read-only; it never writes to any store.
type Aggregator struct {
	messages repository.MessageRepository
	events   repository.EventRepository
	rules    repository.RuleRepository
	location *time.Location
	now      func() time.Time
}

// Dependencies wires an Aggregator.
type Dependencies struct {
	MessageRepo repository.MessageRepository
	EventRepo   repository.EventRepository
	RuleRepo    repository.RuleRepository
	// Location decides calendar-day boundaries. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

// NewAggregator constructs the aggregator.
func NewAggregator(deps Dependencies) *Aggregator {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		messages: deps.MessageRepo,
		events:   deps.EventRepo,
		rules:    deps.RuleRepo,
		location: loc,
		now:      now,
	}
}

// Compute builds the report from scratch on every call.
func (a *Aggregator) Compute(ctx context.Context) (*Report, error) {
	msgs, err := a.messages.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	evts, err := a.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	ruleList, err := a.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	report := &Report{TotalMessages: len(msgs)}
	for _, m := range msgs {
		if m.Direction == domain.DirectionIncoming {
			report.MessagesReceived++
		} else {
			report.MessagesSent++
		}
	}

	for _, e := range evts {
		if e.Type != domain.EventAIResponseGenerated {
			continue
		}
		switch e.PayloadString("source") {
		case domain.AISourceManual:
			report.AIAssistedReplies++
		case domain.AISourceRule:
			report.AutomatedReplies++
		}
	}
	report.AIAssistedPercentage = percentage(report.AIAssistedReplies, report.MessagesSent)
	report.AutomatedPercentage = percentage(report.AutomatedReplies, report.MessagesSent)

	avg, samples := AverageResponseTime(msgs)
	report.ResponseSamples = samples
	if samples > 0 {
		report.AverageResponseTimeMs = &avg
	}
	report.AverageResponseTimeFormatted = FormatResponseTime(report.AverageResponseTimeMs)

	report.MessagesByDay = DailySeries(msgs, a.now(), a.location, trailingDays)
	report.MessagesByChannel = ChannelDistribution(msgs)
	report.RulePerformance = RulePerformance(ruleList, evts)
	return report, nil
}

// AverageResponseTime averages INCOMING→OUTGOING gaps between adjacent messages
// of the same conversation. msgs must be in creation order.
func AverageResponseTime(msgs []domain.Message) (avgMs int64, samples int) {
	byConversation := make(map[string][]domain.Message)
	var order []string
	for _, m := range msgs {
		if _, ok := byConversation[m.ConversationID]; !ok {
			order = append(order, m.ConversationID)
		}
		byConversation[m.ConversationID] = append(byConversation[m.ConversationID], m)
	}

	var total int64
	for _, id := range order {
		thread := byConversation[id]
		for i := 1; i < len(thread); i++ {
			prev, cur := thread[i-1], thread[i]
			if prev.Direction == domain.DirectionIncoming && cur.Direction == domain.DirectionOutgoing {
				total += cur.CreatedAt.Sub(prev.CreatedAt).Milliseconds()
				samples++
			}
		}
	}
	if samples == 0 {
		return 0, 0
	}
	return int64(roundHalfUp(float64(total) / float64(samples))), samples
}

// FormatResponseTime renders ms in the smallest of ms, s, m, h that keeps it readable.
func FormatResponseTime(ms *int64) string {
	if ms == nil {
		return "N/A"
	}
	v := *ms
	switch {
	case v < 1000:
		return fmt.Sprintf("%dms", v)
	case v < 60_000:
		return fmt.Sprintf("%.0fs", roundHalfUp(float64(v)/1000))
	case v < 3_600_000:
		return fmt.Sprintf("%.0fm", roundHalfUp(float64(v)/60_000))
	default:
		return fmt.Sprintf("%.0fh", roundHalfUp(float64(v)/3_600_000))
	}
}

// DailySeries buckets messages into the trailing days ending today, oldest first.
// Days without traffic are present with zero counts.
func DailySeries(msgs []domain.Message, now time.Time, loc *time.Location, days int) []DailyVolume {
	today := now.In(loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))

	series := make([]DailyVolume, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(time.DateOnly)
		series[i] = DailyVolume{Date: key, Label: day.Format("Mon, Jan 2")}
		index[key] = i
	}

	for _, m := range msgs {
		i, ok := index[m.CreatedAt.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		if m.Direction == domain.DirectionIncoming {
			series[i].Received++
		} else {
			series[i].Sent++
		}
	}
	return series
}

// ChannelDistribution counts messages per channel, omitting unused channels.
func ChannelDistribution(msgs []domain.Message) []ChannelCount {
	counts := make(map[domain.Channel]int)
	for _, m := range msgs {
		counts[m.Channel]++
	}
	out := make([]ChannelCount, 0, len(counts))
	for _, ch := range domain.Channels {
		if n := counts[ch]; n > 0 {
			out = append(out, ChannelCount{Channel: ch, Count: n})
		}
	}
	return out
}

// RulePerformance counts RULE_TRIGGERED and RULE_EXECUTED per rule,
// dropping rules with neither.
func RulePerformance(ruleList []domain.Rule, evts []domain.Event) []RuleActivity {
	triggered := make(map[string]int)
	executed := make(map[string]int)
	for _, e := range evts {
		if e.RuleID == nil {
			continue
		}
		switch e.Type {
		case domain.EventRuleTriggered:
			triggered[*e.RuleID]++
		case domain.EventRuleExecuted:
			executed[*e.RuleID]++
		}
	}

	out := make([]RuleActivity, 0, len(ruleList))
	for _, r := range ruleList {
		t, x := triggered[r.ID], executed[r.ID]
		if t == 0 && x == 0 {
			continue
		}
		out = append(out, RuleActivity{RuleID: r.ID, RuleName: r.Name, Triggered: t, Executed: x})
	}
	return out
}

func percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(roundHalfUp(float64(part) / float64(whole) * 100))
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Package memory holds in-process repository implementations used by tests
// and by the API when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/repository"
)

// Store keeps the four relations behind one lock.
type Store struct {
	mu            sync.RWMutex
	seq           int64
	conversations map[string]*conversationRow
	messages      []*messageRow
	messageIndex  map[string]*messageRow
	rules         map[string]*ruleRow
	events        []domain.Event
}

type conversationRow struct {
	seq  int64
	conv domain.Conversation
}

type messageRow struct {
	seq int64
	msg domain.Message
}

type ruleRow struct {
	seq  int64
	rule domain.Rule
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*conversationRow),
		messageIndex:  make(map[string]*messageRow),
		rules:         make(map[string]*ruleRow),
	}
}

// Conversations exposes the store as a ConversationRepository.
func (s *Store) Conversations() repository.ConversationRepository { return conversationRepo{s} }

// Messages exposes the store as a MessageRepository.
func (s *Store) Messages() repository.MessageRepository { return messageRepo{s} }

// Rules exposes the store as a RuleRepository.
func (s *Store) Rules() repository.RuleRepository { return ruleRepo{s} }

// Events exposes the store as an EventRepository.
func (s *Store) Events() repository.EventRepository { return eventRepo{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type conversationRepo struct{ s *Store }

func (r conversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := &conversationRow{seq: r.s.next(), conv: *conv}
	row.conv.Metadata = copyMap(conv.Metadata)
	r.s.conversations[conv.ID] = row
	return nil
}

func (r conversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneConversation(row), nil
}

func (r conversationRepo) FindActive(_ context.Context, contactID string, channel domain.Channel) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *conversationRow
	for _, row := range r.s.conversations {
		c := row.conv
		if c.ContactID != contactID || c.Channel != channel || !c.Status.Active() {
			continue
		}
		if best == nil || newerConversation(row, best) {
			best = row
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return cloneConversation(best), nil
}

func (r conversationRepo) List(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	r.s.mu.RLock()
	rows := make([]*conversationRow, 0, len(r.s.conversations))
	for _, row := range r.s.conversations {
		if matchesFilter(row.conv, filter) {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return newerConversation(rows[i], rows[j]) })

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	result := make([]domain.Conversation, 0, end-offset)
	for _, row := range rows[offset:end] {
		result = append(result, *cloneConversation(row))
	}
	return result, nil
}

func (r conversationRepo) Touch(_ context.Context, id string, at time.Time) error {
	return r.update(id, at, func(*domain.Conversation) {})
}

func (r conversationRepo) UpdateStatus(_ context.Context, id string, status domain.ConversationStatus, at time.Time) error {
	return r.update(id, at, func(c *domain.Conversation) { c.Status = status })
}

func (r conversationRepo) UpdateMetadata(_ context.Context, id string, metadata map[string]any, at time.Time) error {
	return r.update(id, at, func(c *domain.Conversation) { c.Metadata = copyMap(metadata) })
}

func (r conversationRepo) update(id string, at time.Time, fn func(*domain.Conversation)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.conversations[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&row.conv)
	if at.After(row.conv.UpdatedAt) {
		row.conv.UpdatedAt = at
	}
	return nil
}

func newerConversation(a, b *conversationRow) bool {
	if !a.conv.UpdatedAt.Equal(b.conv.UpdatedAt) {
		return a.conv.UpdatedAt.After(b.conv.UpdatedAt)
	}
	return a.seq > b.seq
}

func matchesFilter(c domain.Conversation, f repository.ConversationFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Channel != nil && c.Channel != *f.Channel {
		return false
	}
	if f.ContactID != nil && c.ContactID != *f.ContactID {
		return false
	}
	return true
}

func cloneConversation(row *conversationRow) *domain.Conversation {
	c := row.conv
	c.Metadata = copyMap(row.conv.Metadata)
	return &c
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := &messageRow{seq: r.s.next(), msg: *msg}
	row.msg.Metadata = copyMap(msg.Metadata)
	r.s.messages = append(r.s.messages, row)
	r.s.messageIndex[msg.ID] = row
	return nil
}

func (r messageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.messageIndex[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := row.msg
	return &m, nil
}

func (r messageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	return r.collect(func(m *domain.Message) bool { return m.ConversationID == conversationID }), nil
}

func (r messageRepo) ListRecent(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	all := r.collect(func(m *domain.Message) bool { return m.ConversationID == conversationID })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r messageRepo) ListAll(_ context.Context) ([]domain.Message, error) {
	return r.collect(func(*domain.Message) bool { return true }), nil
}

func (r messageRepo) collect(keep func(*domain.Message) bool) []domain.Message {
	r.s.mu.RLock()
	rows := make([]*messageRow, 0, len(r.s.messages))
	for _, row := range r.s.messages {
		if keep(&row.msg) {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].msg.CreatedAt.Equal(rows[j].msg.CreatedAt) {
			return rows[i].msg.CreatedAt.Before(rows[j].msg.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	result := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.msg)
	}
	return result
}

type ruleRepo struct{ s *Store }

func (r ruleRepo) Create(_ context.Context, rule *domain.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rules[rule.ID] = &ruleRow{seq: r.s.next(), rule: cloneRule(*rule)}
	return nil
}

func (r ruleRepo) Update(_ context.Context, rule *domain.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.rules[rule.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := cloneRule(*rule)
	updated.CreatedAt = row.rule.CreatedAt
	row.rule = updated
	return nil
}

func (r ruleRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.rules, id)
	return nil
}

func (r ruleRepo) GetByID(_ context.Context, id string) (*domain.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rule := cloneRule(row.rule)
	return &rule, nil
}

func (r ruleRepo) List(_ context.Context) ([]domain.Rule, error) {
	return r.collect(false), nil
}

func (r ruleRepo) ListActive(_ context.Context) ([]domain.Rule, error) {
	return r.collect(true), nil
}

func (r ruleRepo) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.rules[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.rule.Active = active
	row.rule.UpdatedAt = at
	return nil
}

func (r ruleRepo) collect(activeOnly bool) []domain.Rule {
	r.s.mu.RLock()
	rows := make([]*ruleRow, 0, len(r.s.rules))
	for _, row := range r.s.rules {
		if activeOnly && !row.rule.Active {
			continue
		}
		rows = append(rows, row)
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority > b.rule.Priority
		}
		if !a.rule.CreatedAt.Equal(b.rule.CreatedAt) {
			return a.rule.CreatedAt.After(b.rule.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Rule, 0, len(rows))
	for _, row := range rows {
		result = append(result, cloneRule(row.rule))
	}
	return result
}

func cloneRule(rule domain.Rule) domain.Rule {
	rule.Conditions = append([]domain.Condition(nil), rule.Conditions...)
	rule.Actions = append([]domain.Action(nil), rule.Actions...)
	return rule
}

type eventRepo struct{ s *Store }

func (r eventRepo) Append(_ context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := *event
	e.Payload = copyMap(event.Payload)
	r.s.events = append(r.s.events, e)
	return nil
}

func (r eventRepo) List(_ context.Context) ([]domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.Event(nil), r.s.events...), nil
}

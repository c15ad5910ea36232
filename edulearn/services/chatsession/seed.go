package chatsession

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedSession struct {
	Title    string        `yaml:"title"`
	Starred  bool          `yaml:"starred"`
	Messages []seedMessage `yaml:"messages"`
}

type seedMessage struct {
	Sender string `yaml:"sender"`
	Ago    string `yaml:"ago"`
	Text   string `yaml:"text"`
}

// ExampleSessions builds the example sessions for ownerID, timed relative to now.
func ExampleSessions(ownerID string, now time.Time) ([]SessionRecord, error) {
	var seeds []seedSession
	if err := yaml.Unmarshal(seedYAML, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed sessions: %w", err)
	}
	recs := make([]SessionRecord, 0, len(seeds))
	for _, seed := range seeds {
		rec := SessionRecord{
			Title:    seed.Title,
			Starred:  seed.Starred,
			OwnerID:  ownerID,
			Messages: make([]MessageRecord, 0, len(seed.Messages)),
		}
		for _, m := range seed.Messages {
			sender, ok := ParseSender(m.Sender)
			if !ok {
				return nil, fmt.Errorf("seed %q: unknown sender %q", seed.Title, m.Sender)
			}
			ago, err := time.ParseDuration(m.Ago)
			if err != nil {
				return nil, fmt.Errorf("seed %q: %w", seed.Title, err)
			}
			rec.Messages = append(rec.Messages, MessageRecord{
				ID:        newMessageID(),
				Sender:    string(sender),
				Text:      m.Text,
				Timestamp: now.Add(-ago).UTC(),
			})
		}
		if len(rec.Messages) == 0 {
			return nil, fmt.Errorf("seed %q has no messages", seed.Title)
		}
		rec.CreatedAt = rec.Messages[0].Timestamp
		rec.UpdatedAt = rec.Messages[len(rec.Messages)-1].Timestamp
		recs = append(recs, rec)
	}
	return recs, nil
}

// SeedLedger remembers owners that were seeded or seen with sessions,
// so an empty listing for them never seeds again. Ledgers backed by a
// durable document store keep that memory across restarts and replicas.
type SeedLedger interface {
	// Claim marks ownerID and reports whether this was the first claim.
	Claim(ctx context.Context, ownerID string) (bool, error)
	// Release undoes a claim whose seeding produced nothing.
	Release(ctx context.Context, ownerID string) error
}

type memoryLedger struct {
	owners *cache.Cache
}

// NewMemoryLedger returns a process-local ledger, for the memory backend.
func NewMemoryLedger() SeedLedger {
	return &memoryLedger{owners: cache.New(cache.NoExpiration, 0)}
}

func (l *memoryLedger) Claim(_ context.Context, ownerID string) (bool, error) {
	return l.owners.Add(ownerID, struct{}{}, cache.NoExpiration) == nil, nil
}

func (l *memoryLedger) Release(_ context.Context, ownerID string) error {
	l.owners.Delete(ownerID)
	return nil
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

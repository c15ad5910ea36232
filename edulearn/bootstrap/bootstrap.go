// edulearn/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/services/llm"
	"edulearn/edulearn/sources/events"
	"edulearn/edulearn/sources/memory"
	"edulearn/edulearn/sources/psql"
	"edulearn/edulearn/sources/psql/dao"
	redisstore "edulearn/edulearn/sources/redis"
	"edulearn/edulearn/sources/storage"
	"edulearn/edulearn/sources/supabase"
	"edulearn/edulearn/utils/logging"

	"go.uber.org/zap"
)

// Stack is everything a Store needs, built from config. Close releases the
// connections it opened. Ledger lives in the same backend as Docs so seeding
// stays one-time across restarts.
type Stack struct {
	Docs      chatsession.DocumentStore
	Generator chatsession.ResponseGenerator
	Events    chatsession.EventSink
	Exports   *storage.MinIOClient
	Ledger    chatsession.SeedLedger

	closers []func()
	cfg     config.Config
}

func New(ctx context.Context, cfg config.Config) (*Stack, error) {
	s := &Stack{cfg: cfg}

	docs, err := s.openDocuments(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Docs = docs

	gen, err := NewGenerator(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Generator = gen

	if cfg.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.NATSURL, cfg.NATSStream)
		if err != nil {
			// events are best effort
			logging.ErrorLogger.Warn("event publisher disabled", zap.Error(err))
		} else {
			s.Events = pub
			s.closers = append(s.closers, pub.Close)
		}
	}

	if cfg.MinIOEndpoint != "" {
		mc, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Warn("export uploads disabled", zap.Error(err))
		} else {
			s.Exports = mc
		}
	}
	return s, nil
}

func (s *Stack) openDocuments(ctx context.Context) (chatsession.DocumentStore, error) {
	logging.AppLogger.Info("opening document store", zap.String("backend", s.cfg.Backend))
	switch s.cfg.Backend {
	case "", "memory":
		s.Ledger = chatsession.NewMemoryLedger()
		return memory.NewSessionStore(), nil
	case "postgres":
		db, err := psql.NewDatabase(ctx, s.cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection error: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		s.Ledger = dao.NewSeedClaimDAO(db.DB)
		return dao.NewChatSessionDAO(db.DB), nil
	case "redis":
		rdb := redisstore.NewClient(ctx, s.cfg.RedisURL)
		s.closers = append(s.closers, func() { rdb.Close() })
		s.Ledger = redisstore.NewSeedLedger(rdb, "edulearn")
		return redisstore.NewSessionStore(rdb, "edulearn"), nil
	case "supabase":
		client, err := supabase.NewClient(s.cfg)
		if err != nil {
			return nil, fmt.Errorf("supabase client error: %w", err)
		}
		s.Ledger = supabase.NewSeedLedger(client, s.cfg.SupabaseSeedTable)
		return supabase.NewSessionStore(client, s.cfg.SupabaseTable), nil
	}
	return nil, fmt.Errorf("unknown document store %q", s.cfg.Backend)
}

// NewGenerator picks the reply source named by cfg.Generator. "none" disables replies.
func NewGenerator(cfg config.Config) (chatsession.ResponseGenerator, error) {
	switch cfg.Generator {
	case "", "simulated":
		return llm.NewSimulated(cfg.SimulatedDelay), nil
	case "ollama":
		return llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai generator")
		}
		return llm.NewGPTClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown response generator %q", cfg.Generator)
}

// StoreOptions returns the options every Store of this stack is built with.
func (s *Stack) StoreOptions() []chatsession.Option {
	opts := []chatsession.Option{
		chatsession.WithSeedLedger(s.Ledger),
		chatsession.WithWriteTimeout(s.cfg.WriteTimeout),
	}
	if s.Generator != nil {
		opts = append(opts, chatsession.WithGenerator(s.Generator))
	}
	if s.Events != nil {
		opts = append(opts, chatsession.WithEventSink(s.Events))
	}
	return opts
}

func (s *Stack) NewStore() *chatsession.Store {
	return chatsession.NewStore(s.Docs, s.StoreOptions()...)
}

func (s *Stack) NewRegistry() *chatsession.Registry {
	idle := s.cfg.RegistryIdleTTL
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return chatsession.NewRegistry(idle, s.NewStore)
}

func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

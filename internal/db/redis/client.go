package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/entrydex/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName              = "entrydex"
	defaultReadinessTimeout = 10 * time.Second
	readinessPollInterval   = 100 * time.Millisecond
)

// Config holds connection parameters for the entry store.
type Config struct {
	Addrs    []string
	Password string
	// ReadinessTimeout bounds how long Open waits for the first PONG.
	// Zero means 10s.
	ReadinessTimeout time.Duration
}

// Store implements db.Store on rueidis. Entries are HASHes indexed by the
// Redis 8 query engine (or Redis Stack).
type Store struct {
	client rueidis.Client
}

// NewStore creates a store without waiting for the server.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		ClientName:   clientName,
		DisableCache: true,
		AlwaysRESP2:  true, // parseListResult reads FT.SEARCH replies as RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &Store{client: client}, nil
}

// Open creates a store and blocks until Redis answers PING or the
// readiness timeout expires, in which case the store is closed again.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	s, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	if err := s.WaitForReady(ctx, timeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately and then every 100ms until Redis answers.
// On timeout the last ping failure is returned with the context error.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, errors.Join(ctx.Err(), err))
		case <-time.After(readinessPollInterval):
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// Redis 8 answers "no such index", older RediSearch "Unknown Index name".
var indexMissingReplies = []string{"no such index", "unknown index name"}

// indexMissing reports whether err is a server reply for an absent FT index.
func indexMissing(err error) bool {
	return serverReplyContains(err, indexMissingReplies...)
}

func indexAlreadyExists(err error) bool {
	return serverReplyContains(err, "index already exists")
}

// indexErr maps an absent-index reply to db.ErrIndexNotFound and wraps any
// other failure as a db.Error of op.
func indexErr(op string, err error) error {
	if indexMissing(err) {
		return db.ErrIndexNotFound
	}
	return &db.Error{Op: op, Err: err}
}

// serverReplyContains matches Redis error replies case-insensitively.
// Transport errors never match.
func serverReplyContains(err error, substrs ...string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(re.Error())
	for _, sub := range substrs {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

const defaultValkeyConnectTimeout = 5 * time.Second

// ValkeyConfig configures a ValkeyCache.
type ValkeyConfig struct {
	Addr           string
	Password       string
	DB             int
	ConnectTimeout time.Duration
}

// ValkeyCache implements Store on a Valkey (or Redis) server so several
// service replicas share one forecast cache. Keys are written without an
// expiry; staleness is decided from the stored FetchedAt.
type ValkeyCache struct {
	client valkey.Client
	now    func() time.Time
}

// NewValkeyCache connects to Valkey and verifies the connection with PING.
// The caller must Close the returned cache.
func NewValkeyCache(cfg ValkeyConfig) (*ValkeyCache, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultValkeyConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey at %s: %w", addr, err)
	}
	return &ValkeyCache{client: client, now: time.Now}, nil
}

func (c *ValkeyCache) key(k Key) string {
	return keyPrefix + string(k)
}

// Get implements Store.Get. Returns false, nil on a miss.
func (c *ValkeyCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("valkey get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached entry: %w", err)
	}
	return entry, true, nil
}

// Put implements Store.Put.
func (c *ValkeyCache) Put(ctx context.Context, key Key, value models.ForecastResult) error {
	raw, err := json.Marshal(Entry{Key: key, FetchedAt: c.now(), Value: value})
	if err != nil {
		return err
	}
	cmd := c.client.B().Set().Key(c.key(key)).Value(string(raw)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

// Ping checks that Valkey is reachable. Used by the health check.
func (c *ValkeyCache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close closes the client connections.
func (c *ValkeyCache) Close() error {
	c.client.Close()
	return nil
}

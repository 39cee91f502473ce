// ABOUTME: Charm KV client wrapper for cloud-synced translation memory
// ABOUTME: Opens a named KV database with automatic SSH key auth and exposes key/value access
package charm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"

	"github.com/harper/transdoc/internal/config"
	"github.com/harper/transdoc/internal/errs"
)

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// ConfigFrom extracts the charm settings from the process configuration
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: cfg.AutoSync,
	}
}

// Client wraps charm KV for translation memory sync
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
}

var _ Store = (*Client)(nil)

// NewClient opens the KV database named in cfg
func NewClient(cfg *Config) (*Client, error) {
	// Set CHARM_HOST before opening KV
	if cfg.Host != "" {
		os.Setenv("CHARM_HOST", cfg.Host)
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
	}

	// Pull remote data on startup
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		err := c.kv.Close()
		c.kv = nil
		return err
	}
	return nil
}

// Host returns the configured charm server
func (c *Client) Host() string {
	return c.config.Host
}

// ID returns the charm user ID
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Set stores a value with the given key
func (c *Client) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set([]byte(key), value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Get retrieves a value by key. A missing key is an errs.ErrNotFound.
func (c *Client) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, err := c.kv.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errs.NewNotFound("remote key", key)
	}
	return value, err
}

// Delete removes a key
func (c *Client) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// ListKeys returns all keys with the given prefix
func (c *Client) ListKeys(prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var result []string
	for _, key := range keys {
		keyStr := string(key)
		if strings.HasPrefix(keyStr, prefix) {
			result = append(result, keyStr)
		}
	}
	return result, nil
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Reset wipes all local data (nuclear option)
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// GetAuthorizedKeys returns the list of linked devices/keys
func (c *Client) GetAuthorizedKeys() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.AuthorizedKeys()
}

// UnlinkKey removes an authorized key from the account
func (c *Client) UnlinkKey(key string) error {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.UnlinkAuthorizedKey(key)
}

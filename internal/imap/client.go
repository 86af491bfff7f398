package imap

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/Praneeth-A/onebox/internal/models"
)

// dialTimeout bounds how long a connect attempt may take.
const dialTimeout = 5 * time.Second

// lockedClient wraps an IMAP client with a mutex. The worker connection is
// shared between the backfill loop, the keep-alive probe and the live-update
// handler; access to it is serialized through this lock.
type lockedClient struct {
	client *client.Client
	mu     sync.Mutex
}

// Lock acquires the mutex for exclusive access to the underlying client.
func (c *lockedClient) Lock() {
	c.mu.Lock()
}

// Unlock releases the mutex.
func (c *lockedClient) Unlock() {
	c.mu.Unlock()
}

// Client returns the underlying IMAP client.
// Caller must hold the lock before calling this.
func (c *lockedClient) Client() *client.Client {
	return c.client
}

// Connect dials the account's IMAP server and authenticates.
// TLS is controlled per account so tests can run against a plain listener.
func Connect(account models.Account) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}

	var c *client.Client
	var err error
	if account.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, account.Addr(), nil)
	} else {
		c, err = client.DialWithDialer(dialer, account.Addr())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", account.Addr(), err)
	}

	if err := c.Login(account.Username, account.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	return c, nil
}

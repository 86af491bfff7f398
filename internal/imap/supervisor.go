package imap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/Praneeth-A/onebox/internal/models"
)

const (
	defaultBackfillWindow  = 30 * 24 * time.Hour
	defaultKeepAlivePeriod = 5 * time.Minute
	defaultReconnectDelay  = 10 * time.Second
	maxReconnectDelay      = 5 * time.Minute

	// During a long historical fetch the message loop pauses briefly every
	// backfillYieldEvery messages so other work in the process is not starved.
	backfillYieldEvery = 25
	backfillYieldPause = 10 * time.Millisecond
)

// errConnectionClosed marks a session torn down by the server side.
var errConnectionClosed = errors.New("connection closed by server")

// SupervisorOptions tune one account's connection supervisor.
// Zero values fall back to the defaults above.
type SupervisorOptions struct {
	BackfillWindow  time.Duration
	KeepAlivePeriod time.Duration
	ReconnectDelay  time.Duration
}

func (o SupervisorOptions) withDefaults() SupervisorOptions {
	if o.BackfillWindow == 0 {
		o.BackfillWindow = defaultBackfillWindow
	}
	if o.KeepAlivePeriod == 0 {
		o.KeepAlivePeriod = defaultKeepAlivePeriod
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	return o
}

// Supervisor owns the connection lifecycle of a single account: connect,
// folder discovery, backfill, live subscription, keep-alive probing and
// reconnect-with-delay. Each account gets its own supervisor goroutine;
// nothing here is shared across accounts except the index store behind the
// processor, so one account's failures never affect another's.
type Supervisor struct {
	account   models.Account
	processor *Processor
	opts      SupervisorOptions
	log       *logrus.Entry

	mu          sync.Mutex
	folderLocks map[string]*sync.Mutex
	folders     []*models.Folder

	state atomic.Int32
	// live gates the live-update handler. Dropped on close so events
	// delivered between close and reconnect are ignored.
	live atomic.Bool
}

// NewSupervisor creates a supervisor for one account.
func NewSupervisor(account models.Account, processor *Processor, opts SupervisorOptions, log *logrus.Logger) *Supervisor {
	return &Supervisor{
		account:     account,
		processor:   processor,
		opts:        opts.withDefaults(),
		log:         log.WithField("account", account.ID),
		folderLocks: make(map[string]*sync.Mutex),
	}
}

// State returns the current connection state.
func (s *Supervisor) State() models.ConnState {
	return models.ConnState(s.state.Load())
}

func (s *Supervisor) setState(state models.ConnState) {
	old := models.ConnState(s.state.Swap(int32(state)))
	if old != state {
		s.log.WithFields(logrus.Fields{"from": old.String(), "to": state.String()}).Debug("Connection state changed")
	}
}

// Folders returns the folder list discovered by the current session.
func (s *Supervisor) Folders() []*models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folders
}

// folderLock returns the mutex serializing fetch work on one folder. The
// backfill and live-update paths share it so they never race on a folder.
func (s *Supervisor) folderLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.folderLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.folderLocks[name] = lock
	}
	return lock
}

// Run drives the account's connection state machine until ctx is canceled.
// Every session failure, auth errors included, lands in the same delayed
// reconnect path; the delay grows exponentially from the base delay up to
// maxReconnectDelay and resets after a session that reached Connected.
func (s *Supervisor) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.ReconnectDelay
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = maxReconnectDelay
	policy.MaxElapsedTime = 0
	policy.Reset()

	for {
		connected, err := s.runSession(ctx)
		if ctx.Err() != nil {
			s.setState(models.StateClosed)
			return
		}
		if err != nil {
			s.log.WithError(err).Warn("Session ended")
		}
		if connected {
			policy.Reset()
		}

		delay := policy.NextBackOff()
		s.setState(models.StateReconnecting)
		s.log.WithField("delay", delay.String()).Info("Reconnect scheduled")

		select {
		case <-ctx.Done():
			s.setState(models.StateClosed)
			return
		case <-time.After(delay):
		}
	}
}

// runSession runs one connection session: connect, discover, backfill,
// listen, probe. It returns whether the connection was established, plus the
// error that ended the session. The caller owns reconnecting.
func (s *Supervisor) runSession(ctx context.Context) (bool, error) {
	s.setState(models.StateConnecting)

	c, err := Connect(s.account)
	if err != nil {
		s.setState(models.StateDisconnected)
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	worker := &lockedClient{client: c}

	s.setState(models.StateConnected)
	s.live.Store(true)
	defer func() {
		s.live.Store(false)
		s.setState(models.StateDisconnected)
		_ = c.Logout()
	}()

	folders, err := ListFolders(c)
	if err != nil {
		return true, fmt.Errorf("failed to discover folders: %w", err)
	}
	s.mu.Lock()
	s.folders = folders
	s.mu.Unlock()
	s.log.WithField("folders", len(folders)).Info("Discovered folders")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	go s.keepAlive(sessionCtx, worker, errCh)
	go func() {
		select {
		case <-c.LoggedOut():
			errCh <- errConnectionClosed
		case <-sessionCtx.Done():
		}
	}()

	// Backfill folders in listing order. The live subscriber attaches right
	// after the primary inbox completes; other folders stay synced but are
	// not live-watched.
	listenerStarted := false
	for _, folder := range folders {
		if err := s.backfillFolder(sessionCtx, worker, folder); err != nil {
			if sessionCtx.Err() != nil {
				return true, nil
			}
			s.log.WithError(err).WithField("folder", folder.Name).Warn("Backfill failed, continuing with next folder")
		}
		if !listenerStarted && folder.SpecialUse == models.FolderInbox {
			listenerStarted = true
			go s.runLiveListener(sessionCtx, worker, folder, errCh)
		}
	}

	select {
	case <-ctx.Done():
		return true, nil
	case err := <-errCh:
		return true, err
	}
}

// backfillFolder fetches the folder's historical window and runs every
// message through the pipeline sequentially. The folder lock is held for the
// whole pass and released on all exit paths.
func (s *Supervisor) backfillFolder(ctx context.Context, worker *lockedClient, folder *models.Folder) error {
	lock := s.folderLock(folder.Name)
	lock.Lock()
	defer lock.Unlock()

	worker.Lock()
	defer worker.Unlock()
	c := worker.Client()

	if _, err := c.Select(folder.Name, false); err != nil {
		return fmt.Errorf("failed to select folder %s: %w", folder.Name, err)
	}

	since := time.Now().Add(-s.opts.BackfillWindow)
	uids, err := SearchUIDsSince(c, since)
	if err != nil {
		return fmt.Errorf("failed to search folder %s: %w", folder.Name, err)
	}
	if len(uids) == 0 {
		return nil
	}

	processed := 0
	seen := 0
	err = FetchMessages(c, uids, func(msg *imap.Message) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A failed message never aborts the rest of the folder.
		if err := s.processor.Process(ctx, s.account.ID, folder, msg); err != nil {
			s.log.WithError(err).WithField("folder", folder.Name).Warn("Failed to index message, continuing")
		} else {
			processed++
		}
		seen++
		if seen%backfillYieldEvery == 0 {
			time.Sleep(backfillYieldPause)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to backfill folder %s: %w", folder.Name, err)
	}

	s.log.WithFields(logrus.Fields{"folder": folder.Name, "messages": processed}).Info("Backfill complete")
	return nil
}

// keepAlive probes the worker connection with a NOOP on a fixed period.
// A failed probe ends the session through the error channel.
func (s *Supervisor) keepAlive(ctx context.Context, worker *lockedClient, errCh chan<- error) {
	ticker := time.NewTicker(s.opts.KeepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			worker.Lock()
			err := worker.Client().Noop()
			worker.Unlock()
			if err != nil {
				errCh <- fmt.Errorf("keep-alive probe failed: %w", err)
				return
			}
		}
	}
}

// handleNewMessage reacts to one new-message event on the watched folder by
// fetching only the most recent message and running it through the pipeline.
// After close it returns immediately without touching the connection.
func (s *Supervisor) handleNewMessage(ctx context.Context, worker *lockedClient, folder *models.Folder) {
	if !s.live.Load() {
		return
	}

	lock := s.folderLock(folder.Name)
	lock.Lock()
	defer lock.Unlock()

	worker.Lock()
	defer worker.Unlock()
	c := worker.Client()

	status, err := c.Status(folder.Name, []imap.StatusItem{imap.StatusMessages, imap.StatusUidNext})
	if err != nil {
		s.log.WithError(err).WithField("folder", folder.Name).Warn("Failed to query folder status")
		return
	}
	if status.Messages == 0 {
		return
	}

	if _, err := c.Select(folder.Name, false); err != nil {
		s.log.WithError(err).WithField("folder", folder.Name).Warn("Failed to select folder")
		return
	}

	msg, err := FetchNewestMessage(c, status.Messages)
	if err != nil {
		s.log.WithError(err).WithField("folder", folder.Name).Warn("Failed to fetch newest message")
		return
	}
	if msg == nil {
		return
	}

	if err := s.processor.Process(ctx, s.account.ID, folder, msg); err != nil {
		s.log.WithError(err).WithField("folder", folder.Name).Warn("Failed to process live message")
	}
}

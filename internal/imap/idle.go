package imap

import (
	"context"
	"fmt"
	"time"

	idle "github.com/emersion/go-imap-idle"
	imapclient "github.com/emersion/go-imap/client"

	"github.com/Praneeth-A/onebox/internal/models"
)

// idlePollFallback is the polling period used when the server does not
// support the IDLE extension.
const idlePollFallback = 30 * time.Second

// runLiveListener opens a dedicated listener connection, parks it in IDLE on
// the watched folder and reacts to new-message events. Fetching happens on
// the worker connection under the folder lock, so live updates and backfill
// never race on the same folder. The loop ends when the session context is
// canceled or the listener connection breaks; either way the session error
// channel is told so the supervisor can tear down and reconnect.
func (s *Supervisor) runLiveListener(ctx context.Context, worker *lockedClient, folder *models.Folder, errCh chan<- error) {
	listener, err := Connect(s.account)
	if err != nil {
		errCh <- fmt.Errorf("failed to connect live listener: %w", err)
		return
	}
	defer func() {
		_ = listener.Logout()
	}()

	if _, err := listener.Select(folder.Name, true); err != nil {
		errCh <- fmt.Errorf("failed to select %s for idle: %w", folder.Name, err)
		return
	}

	updates := make(chan imapclient.Update, 10)
	listener.Updates = updates

	idleClient := idle.NewClient(listener)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idleClient.IdleWithFallback(stop, idlePollFallback)
	}()

	s.log.WithField("folder", folder.Name).Info("Live listener attached")

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return
		case err := <-done:
			if err != nil {
				errCh <- fmt.Errorf("idle loop ended: %w", err)
			} else {
				errCh <- errConnectionClosed
			}
			return
		case update := <-updates:
			mboxUpdate, ok := update.(*imapclient.MailboxUpdate)
			if !ok || mboxUpdate.Mailbox == nil {
				continue
			}
			if mboxUpdate.Mailbox.Messages == 0 {
				continue
			}
			s.handleNewMessage(ctx, worker, folder)
		}
	}
}

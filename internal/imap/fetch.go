package imap

import (
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// fetchItems returns the fetch items for a full message: envelope, flags, UID
// and the complete RFC822 source. The source is fetched with PEEK so syncing
// never flips the \Seen flag on the server.
func fetchItems(section *imap.BodySectionName) []imap.FetchItem {
	return []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchInternalDate,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}
}

// SearchUIDsSince returns the UIDs of all messages received on or after the
// given time in the currently selected folder, in ascending UID order.
func SearchUIDsSince(c *client.Client, since time.Time) ([]uint32, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search since %s: %w", since.Format(time.DateOnly), err)
	}

	// Ascending UID order approximates chronological order within a folder.
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	return uids, nil
}

// FetchMessages fetches full messages (envelope + source) for the given UIDs
// from the currently selected folder and passes each one to handle in the
// order the server yields them. A handle error aborts the iteration.
func FetchMessages(c *client.Client, uids []uint32, handle func(*imap.Message) error) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}

	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, fetchItems(section), messages)
	}()

	var handleErr error
	for msg := range messages {
		if handleErr != nil {
			// Drain the channel so the fetch goroutine can finish.
			continue
		}
		handleErr = handle(msg)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	return handleErr
}

// FetchNewestMessage fetches the single most recent message of the currently
// selected folder by sequence number. Returns nil if the folder is empty.
func FetchNewestMessage(c *client.Client, messageCount uint32) (*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if messageCount == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(messageCount)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, fetchItems(section), messages)
	}()

	var result *imap.Message
	for msg := range messages {
		result = msg
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch newest message: %w", err)
	}

	return result, nil
}

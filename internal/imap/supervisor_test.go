package imap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Praneeth-A/onebox/internal/models"
	"github.com/Praneeth-A/onebox/internal/notify"
	"github.com/Praneeth-A/onebox/internal/testutil"
)

func waitFor(t *testing.T, timeout time.Duration, message string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", message)
}

func testSupervisorOptions() SupervisorOptions {
	return SupervisorOptions{
		BackfillWindow:  30 * 24 * time.Hour,
		KeepAlivePeriod: time.Minute,
		ReconnectDelay:  200 * time.Millisecond,
	}
}

func TestSupervisorEndToEnd(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.AddMessage(t, "INBOX", "<id-1>", "Interview Invite", "hr", "me", time.Now())

	st := newMemStore()
	classifier := &stubClassifier{
		category:   models.CategoryNotInterested,
		confidence: 0.92,
		bySubject:  map[string]models.Category{"Interview Invite": models.CategoryInterested},
	}
	chat := &recordingNotifier{name: "chat"}
	webhook := &recordingNotifier{name: "webhook"}
	processor := NewProcessor(st, classifier, []notify.Notifier{chat, webhook}, testLogger())

	supervisor := NewSupervisor(server.Account(t, "A1"), processor, testSupervisorOptions(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.Run(ctx)

	id := Fingerprint("id-1")
	waitFor(t, 10*time.Second, "backfilled document to appear", func() bool {
		return st.get(id) != nil
	})

	doc := st.get(id)
	require.NotNil(t, doc)
	assert.Equal(t, "id-1", doc.MessageID)
	assert.Equal(t, "Interview Invite", doc.Subject)
	assert.Equal(t, "A1", doc.Account)
	assert.Equal(t, "INBOX", doc.Folder)
	assert.Equal(t, models.FolderInbox, doc.FolderType)
	assert.Equal(t, models.CategoryInterested, doc.AICategory)

	// Exactly one chat and one webhook call for the interested message.
	waitFor(t, 2*time.Second, "notifications to fire", func() bool {
		return chat.count() == 1 && webhook.count() == 1
	})
	assert.Equal(t, "Interview Invite", chat.events[0].Subject)
	assert.Equal(t, "A1", chat.events[0].Account)

	assert.Equal(t, models.StateConnected, supervisor.State())
	assert.NotEmpty(t, supervisor.Folders())
}

func TestSupervisorBackfillIsIdempotentAcrossSessions(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.AddMessage(t, "INBOX", "<re-1>", "Offer", "sales", "me", time.Now())

	st := newMemStore()
	processor := NewProcessor(st, &stubClassifier{category: models.CategoryNotInterested}, nil, testLogger())

	account := server.Account(t, "A1")

	// First session.
	ctx1, cancel1 := context.WithCancel(context.Background())
	supervisor1 := NewSupervisor(account, processor, testSupervisorOptions(), testLogger())
	go supervisor1.Run(ctx1)
	waitFor(t, 10*time.Second, "first backfill", func() bool { return st.get(Fingerprint("re-1")) != nil })
	cancel1()

	saved := st.saveCalls

	// Second session over the same folder, as after a restart.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	supervisor2 := NewSupervisor(account, processor, testSupervisorOptions(), testLogger())
	go supervisor2.Run(ctx2)
	waitFor(t, 10*time.Second, "second session to connect", func() bool {
		return supervisor2.State() == models.StateConnected && len(supervisor2.Folders()) > 0
	})

	// Give the second backfill time to run; it must not write anything new.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, saved, st.saveCalls, "re-sync must not duplicate documents")
}

func TestFaultIsolationBetweenAccounts(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.AddMessage(t, "INBOX", "<iso-1>", "Still here", "a", "me", time.Now())

	st := newMemStore()
	processor := NewProcessor(st, &stubClassifier{category: models.CategoryNotInterested}, nil, testLogger())
	orchestrator := NewOrchestrator(st, processor, testSupervisorOptions(), testLogger())

	// A dead address: a listener that is closed before any connect attempt.
	deadServer := testutil.NewTestIMAPServer(t)
	badAccount := deadServer.Account(t, "broken")
	deadServer.Close()

	goodAccount := server.Account(t, "healthy")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, orchestrator.Start(ctx, []models.Account{badAccount, goodAccount}))

	// The failing account must not prevent the healthy one from completing.
	waitFor(t, 10*time.Second, "healthy account backfill", func() bool {
		return st.get(Fingerprint("iso-1")) != nil
	})

	doc := st.get(Fingerprint("iso-1"))
	require.NotNil(t, doc)
	assert.Equal(t, "healthy", doc.Account)

	states := orchestrator.States()
	assert.Equal(t, models.StateConnected, states["healthy"])
	assert.NotEqual(t, models.StateConnected, states["broken"])
}

func TestSupervisorReconnectsAfterClose(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	st := newMemStore()
	processor := NewProcessor(st, &stubClassifier{category: models.CategoryNotInterested}, nil, testLogger())
	supervisor := NewSupervisor(server.Account(t, "A1"), processor, testSupervisorOptions(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.Run(ctx)

	waitFor(t, 10*time.Second, "initial connect", func() bool {
		return supervisor.State() == models.StateConnected
	})

	// Simulate a server-side close. The session must end, deactivate the
	// live subscriber and schedule a reconnect.
	server.Close()

	waitFor(t, 10*time.Second, "reconnect to be scheduled", func() bool {
		return supervisor.State() == models.StateReconnecting
	})

	// Events delivered between close and reconnect are ignored: the handler
	// returns before touching the (gone) connection.
	assert.False(t, supervisor.live.Load())
	before := st.count()
	supervisor.handleNewMessage(ctx, nil, inboxFolder())
	assert.Equal(t, before, st.count())
}

func TestHandleNewMessageFetchesOnlyNewest(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.AddMessage(t, "INBOX", "<old-1>", "Old news", "a", "me", time.Now().Add(-time.Hour))
	server.AddMessage(t, "INBOX", "<new-1>", "Fresh lead", "b", "me", time.Now())

	st := newMemStore()
	processor := NewProcessor(st, &stubClassifier{category: models.CategoryNotInterested}, nil, testLogger())
	supervisor := NewSupervisor(server.Account(t, "A1"), processor, testSupervisorOptions(), testLogger())
	supervisor.live.Store(true)

	client, cleanup := server.Connect(t)
	defer cleanup()
	worker := &lockedClient{client: client}

	supervisor.handleNewMessage(context.Background(), worker, inboxFolder())

	// Only the most recent message was fetched and indexed.
	assert.NotNil(t, st.get(Fingerprint("new-1")))
	assert.Nil(t, st.get(Fingerprint("old-1")))
	assert.Equal(t, 1, st.count())
}

func TestOrchestratorStats(t *testing.T) {
	st := newMemStore()
	processor := NewProcessor(st, &stubClassifier{category: models.CategoryNotInterested}, nil, testLogger())
	orchestrator := NewOrchestrator(st, processor, testSupervisorOptions(), testLogger())

	ctx := context.Background()
	for _, msg := range []struct{ id, account, folder string }{
		{"<s-1>", "A1", "INBOX"},
		{"<s-2>", "A1", "INBOX"},
		{"<s-3>", "A2", "INBOX"},
	} {
		folder := &models.Folder{Name: msg.folder, SpecialUse: models.FolderInbox}
		require.NoError(t, processor.Process(ctx, msg.account, folder, testMessage(msg.id, "x", "a", "")))
	}

	stats, err := orchestrator.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByAccount["A1"])
	assert.Equal(t, int64(1), stats.ByAccount["A2"])
}

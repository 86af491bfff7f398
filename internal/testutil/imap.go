package testutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/Praneeth-A/onebox/internal/models"
)

// TestIMAPServer is an in-process IMAP server with an in-memory backend.
// The memory backend ships a default user ("username"/"password") whose INBOX
// contains one canned message.
type TestIMAPServer struct {
	Server  *server.Server
	Address string
	Backend *memory.Backend
	cleanup func()
}

// NewTestIMAPServer starts a test IMAP server on a random local port.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give the server time to start accepting.
	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:  s,
		Address: addr,
		Backend: be,
		cleanup: func() {
			_ = s.Close()
		},
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Account returns an account pointed at this server with the memory
// backend's default credentials.
func (s *TestIMAPServer) Account(t *testing.T, id string) models.Account {
	t.Helper()

	host, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		t.Fatalf("Failed to split server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Failed to parse server port: %v", err)
	}

	return models.Account{
		ID:       id,
		Host:     host,
		Port:     port,
		Username: "username",
		Password: "password",
		UseTLS:   false,
	}
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login("username", "password"); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// AddMessage adds a test message to the given folder and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName, messageID, subject, from, to string, sentAt time.Time) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	messageBody := fmt.Sprintf(
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=utf-8\r\n"+
			"\r\n"+
			"Test message body.\r\n",
		messageID, sentAt.Format(time.RFC1123Z), from, to, subject)

	flags := []string{imap.SeenFlag}
	if err := client.Append(folderName, flags, time.Now(), strings.NewReader(messageBody)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", messageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[0]
}

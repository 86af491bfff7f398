package imap

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
)

// messageBody extracts the plain-text body of a fetched message.
// Returns "" when the message carries no source section or no text part.
func messageBody(msg *imap.Message) string {
	if msg == nil {
		return ""
	}

	section := &imap.BodySectionName{}
	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return ""
	}

	raw, err := io.ReadAll(bodyReader)
	if err != nil {
		return ""
	}

	envelope, err := enmime.ReadEnvelope(strings.NewReader(string(raw)))
	if err != nil {
		// Unparseable MIME: fall back to the raw source so classification
		// still has something to work with.
		return string(raw)
	}

	if envelope.Text != "" {
		return envelope.Text
	}
	return envelope.HTML
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}

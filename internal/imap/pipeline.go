package imap

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/Praneeth-A/onebox/internal/classify"
	"github.com/Praneeth-A/onebox/internal/models"
	"github.com/Praneeth-A/onebox/internal/notify"
	"github.com/Praneeth-A/onebox/internal/store"
)

// Processor turns one fetched message into at most one indexed document:
// fingerprint, dedup, classify, persist, notify. It is shared by the backfill
// and live-update paths of every account.
type Processor struct {
	store      store.EmailStore
	classifier classify.Classifier
	notifiers  []notify.Notifier
	log        *logrus.Logger
}

// NewProcessor creates a processing pipeline.
func NewProcessor(emailStore store.EmailStore, classifier classify.Classifier, notifiers []notify.Notifier, log *logrus.Logger) *Processor {
	return &Processor{
		store:      emailStore,
		classifier: classifier,
		notifiers:  notifiers,
		log:        log,
	}
}

// Process indexes one message. Processing the same message twice (same
// Message-ID) is a no-op on the second call. A store write failure is
// returned to the caller; classification and notification failures are not.
func (p *Processor) Process(ctx context.Context, account string, folder *models.Folder, msg *imap.Message) error {
	if msg == nil || msg.Envelope == nil || msg.Envelope.MessageId == "" {
		// Without a Message-ID there is nothing to fingerprint. Skip, don't retry.
		p.log.WithFields(logrus.Fields{
			"account": account,
			"folder":  folder.Name,
		}).Debug("Skipping message without Message-ID")
		return nil
	}

	id := Fingerprint(msg.Envelope.MessageId)

	exists, err := p.store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check for existing document: %w", err)
	}
	if exists {
		return nil
	}

	doc := p.buildDocument(id, account, folder, msg)

	category, confidence, err := p.classifier.Classify(ctx, doc.Subject, doc.RawContent)
	if err != nil {
		// Classification failure must never abort indexing.
		p.log.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"folder":  folder.Name,
		}).Warn("Classification failed, using fallback category")
		category = classify.FallbackCategory
		confidence = 0
	}
	doc.AICategory = category
	doc.AIConfidence = confidence

	if err := p.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	if category == models.CategoryInterested {
		p.notifyAll(ctx, doc)
	}

	return nil
}

// buildDocument assembles the index document from the message envelope and source.
func (p *Processor) buildDocument(id, account string, folder *models.Folder, msg *imap.Message) *models.EmailDocument {
	doc := &models.EmailDocument{
		ID:         id,
		MessageID:  NormalizeMessageID(msg.Envelope.MessageId),
		Subject:    msg.Envelope.Subject,
		Account:    account,
		Folder:     folder.Name,
		FolderType: folder.SpecialUse,
		RawContent: messageBody(msg),
	}

	if len(msg.Envelope.From) > 0 {
		doc.FromAddress = formatAddress(msg.Envelope.From[0])
	}
	doc.ToAddresses = formatAddressList(msg.Envelope.To)

	if !msg.Envelope.Date.IsZero() {
		date := msg.Envelope.Date
		doc.SentAt = &date
	} else if !msg.InternalDate.IsZero() {
		date := msg.InternalDate
		doc.SentAt = &date
	}

	return doc
}

// notifyAll fires every notifier independently. A failing sink is logged and
// never blocks the others; the persisted document is never rolled back.
func (p *Processor) notifyAll(ctx context.Context, doc *models.EmailDocument) {
	event := notify.Event{
		Subject: doc.Subject,
		From:    doc.FromAddress,
		Account: doc.Account,
	}

	for _, notifier := range p.notifiers {
		notifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := notifier.Notify(notifyCtx, event)
		cancel()
		if err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"notifier": notifier.Name(),
				"account":  doc.Account,
			}).Warn("Notification failed")
		}
	}
}

package models

import "time"

// FolderType is the semantic role of a mailbox folder.
type FolderType string

const (
	FolderInbox     FolderType = "inbox"
	FolderSent      FolderType = "sent"
	FolderDrafts    FolderType = "drafts"
	FolderSpam      FolderType = "spam"
	FolderTrash     FolderType = "trash"
	FolderImportant FolderType = "important"
	FolderStarred   FolderType = "starred"
	FolderArchive   FolderType = "archive"
	FolderCustom    FolderType = "custom"
)

// Folder is a mailbox folder discovered on the server, tagged with its role.
type Folder struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Flags      []string   `json:"flags"`
	SpecialUse FolderType `json:"special_use"`
}

// Category is the label assigned to a message by the classification service.
type Category string

const (
	CategoryInterested    Category = "Interested"
	CategoryMeetingBooked Category = "MeetingBooked"
	CategoryNotInterested Category = "NotInterested"
	CategorySpam          Category = "Spam"
	CategoryOutOfOffice   Category = "OutOfOffice"
)

// EmailDocument is the indexed form of one message. The ID is the message
// fingerprint, so the same message synced twice converges to a single row.
// Field names are part of the contract with the reporting layer.
type EmailDocument struct {
	ID           string     `json:"id"`
	MessageID    string     `json:"message_id"`
	Subject      string     `json:"subject"`
	FromAddress  string     `json:"from"`
	ToAddresses  []string   `json:"to"`
	SentAt       *time.Time `json:"date"`
	Account      string     `json:"account"`
	Folder       string     `json:"folder"`
	FolderType   FolderType `json:"folder_type"`
	RawContent   string     `json:"raw_content"`
	AICategory   Category   `json:"ai_category"`
	AIConfidence float64    `json:"ai_confidence"`
}

// FolderCount is one bucket of the aggregate statistics query.
type FolderCount struct {
	Account    string     `json:"account"`
	Folder     string     `json:"folder"`
	FolderType FolderType `json:"folder_type"`
	Count      int64      `json:"count"`
}

// SyncStats aggregates indexed message counts for the reporting layer.
type SyncStats struct {
	Total     int64            `json:"total"`
	ByAccount map[string]int64 `json:"by_account"`
	Buckets   []FolderCount    `json:"buckets"`
}

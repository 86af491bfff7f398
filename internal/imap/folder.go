package imap

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Praneeth-A/onebox/internal/models"
)

// nameRule maps a folder-name keyword to a folder type. Rules are checked in
// order; the first match wins.
type nameRule struct {
	keyword string
	role    models.FolderType
}

var nameRules = []nameRule{
	{"inbox", models.FolderInbox},
	{"sent", models.FolderSent},
	{"draft", models.FolderDrafts},
	{"spam", models.FolderSpam},
	{"junk", models.FolderSpam},
	{"trash", models.FolderTrash},
	{"bin", models.FolderTrash},
	{"important", models.FolderImportant},
	{"starred", models.FolderStarred},
	{"all mail", models.FolderArchive},
}

var flagRules = []nameRule{
	{"\\Inbox", models.FolderInbox},
	{imap.SentAttr, models.FolderSent},
	{imap.DraftsAttr, models.FolderDrafts},
	{imap.JunkAttr, models.FolderSpam},
	{imap.TrashAttr, models.FolderTrash},
	{"\\Important", models.FolderImportant},
	{imap.FlaggedAttr, models.FolderStarred},
	{imap.AllAttr, models.FolderArchive},
	{imap.ArchiveAttr, models.FolderArchive},
}

// ClassifyFolder maps a folder name and its attributes to a folder type.
// Name keywords take precedence over SPECIAL-USE attributes; anything
// unrecognized is custom. Pure and total.
func ClassifyFolder(name string, flags []string) models.FolderType {
	lowerName := strings.ToLower(name)
	for _, rule := range nameRules {
		if strings.Contains(lowerName, rule.keyword) {
			return rule.role
		}
	}

	for _, rule := range flagRules {
		for _, flag := range flags {
			if strings.EqualFold(flag, rule.keyword) {
				return rule.role
			}
		}
	}

	return models.FolderCustom
}

// ListFolders lists all folders on the IMAP server, tagged with their roles.
func ListFolders(c *client.Client) ([]*models.Folder, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var folders []*models.Folder
	for m := range mailboxes {
		folders = append(folders, &models.Folder{
			Name:       m.Name,
			Path:       m.Name,
			Flags:      m.Attributes,
			SpecialUse: ClassifyFolder(m.Name, m.Attributes),
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

package notice

import (
	"encoding/json"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultCategory = "General"
	DefaultLifetime = 30 * 24 * time.Hour
)

// FileType is fixed when an attachment is stored and never recomputed.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDoc   FileType = "doc"
	FileTypeImage FileType = "image"
	FileTypeOther FileType = "other"
)

// ClassifyFile maps an uploaded file to its FileType by extension, falling
// back to the detected content type for images.
func ClassifyFile(filename, contentType string) FileType {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return FileTypePDF
	case "doc", "docx":
		return FileTypeDoc
	case "jpg", "jpeg", "png", "gif", "webp", "svg":
		return FileTypeImage
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return FileTypeImage
	}
	return FileTypeOther
}

// Attachment is one uploaded file embedded in a notice.
type Attachment struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	URL          string             `bson:"url" json:"url"`
	FileType     FileType           `bson:"fileType" json:"fileType"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// Notice is owned by the admin in CreatorID; readers see it through the
// creator's department.
type Notice struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Content     string             `bson:"content"`
	CreatorID   primitive.ObjectID `bson:"CreaterId"`
	Category    string             `bson:"category"`
	IsImportant bool               `bson:"isImportant"`
	IsActive    bool               `bson:"isActive"`
	Files       []Attachment       `bson:"files"`

	// Single attachment of records written before multi-file support.
	// Cleared as soon as the files list is touched.
	LegacyFileURL  string   `bson:"fileUrl,omitempty"`
	LegacyFileType FileType `bson:"fileType,omitempty"`

	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
	ExpiryDate time.Time `bson:"expiryDate"`
}

func (n *Notice) IsExpired(now time.Time) bool {
	return n.ExpiryDate.Before(now)
}

func (n *Notice) hasLegacyFile() bool {
	return n.LegacyFileURL != ""
}

func (n *Notice) clearLegacyFile() {
	n.LegacyFileURL = ""
	n.LegacyFileType = ""
}

// fileURLs lists every remote file the notice references.
func (n *Notice) fileURLs() []string {
	urls := make([]string, 0, len(n.Files)+1)
	for _, f := range n.Files {
		urls = append(urls, f.URL)
	}
	if n.hasLegacyFile() {
		urls = append(urls, n.LegacyFileURL)
	}
	return urls
}

// legacyAttachment turns the single legacy file into a regular attachment.
func (n *Notice) legacyAttachment() Attachment {
	ft := n.LegacyFileType
	if ft == "" {
		ft = ClassifyFile(n.LegacyFileURL, "")
	}
	return Attachment{
		ID:           primitive.NewObjectID(),
		URL:          n.LegacyFileURL,
		FileType:     ft,
		OriginalName: path.Base(n.LegacyFileURL),
		UploadedAt:   n.CreatedAt,
	}
}

type noticeJSON struct {
	ID          primitive.ObjectID `json:"_id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	CreatorID   primitive.ObjectID `json:"CreaterId"`
	Category    string             `json:"category"`
	IsImportant bool               `json:"isImportant"`
	IsActive    bool               `json:"isActive"`
	Files       []Attachment       `json:"files"`
	FileURL     *string            `json:"fileUrl"`
	FileType    FileType           `json:"fileType"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	ExpiryDate  time.Time          `json:"expiryDate"`
	IsExpired   bool               `json:"isExpired"`
}

// MarshalJSON exposes fileUrl/fileType as a read-only view of the first
// attachment, or of the legacy file when the list is empty.
func (n Notice) MarshalJSON() ([]byte, error) {
	files := n.Files
	if files == nil {
		files = []Attachment{}
	}
	out := noticeJSON{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		CreatorID:   n.CreatorID,
		Category:    n.Category,
		IsImportant: n.IsImportant,
		IsActive:    n.IsActive,
		Files:       files,
		FileType:    FileTypeOther,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		ExpiryDate:  n.ExpiryDate,
		IsExpired:   n.IsExpired(time.Now()),
	}
	switch {
	case len(files) > 0:
		out.FileURL = &files[0].URL
		out.FileType = files[0].FileType
	case n.hasLegacyFile():
		legacy := n.LegacyFileURL
		out.FileURL = &legacy
		if n.LegacyFileType != "" {
			out.FileType = n.LegacyFileType
		}
	}
	return json.Marshal(out)
}

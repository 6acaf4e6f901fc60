package notice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"NoticeBoard/internal/auth"
	"NoticeBoard/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized   = errors.New("unauthorized: admin id not found")
	ErrNotFound       = errors.New("notice not found")
	ErrReaderNotFound = errors.New("user not found")
	ErrUpload         = errors.New("attachment upload failed")
)

// Store is the notice persistence the service needs.
type Store interface {
	Create(ctx context.Context, n *Notice) error
	FindOwned(ctx context.Context, id, creatorID primitive.ObjectID) (*Notice, error)
	Replace(ctx context.Context, n *Notice) (bool, error)
	DeleteOwned(ctx context.Context, id, creatorID primitive.ObjectID) (bool, error)
	ListByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]*Notice, error)
	ListActiveByCreators(ctx context.Context, creatorIDs []primitive.ObjectID) ([]*Notice, error)
}

// AttachmentStore is the remote object storage holding attachment bytes.
type AttachmentStore interface {
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// Directory resolves accounts for department scoping.
type Directory interface {
	FindByID(ctx context.Context, role auth.Role, id primitive.ObjectID) (*auth.Account, error)
	FindAdminIDsByDepartment(ctx context.Context, department string) ([]primitive.ObjectID, error)
}

// Upload is one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreateInput struct {
	Title       string
	Content     string
	Category    *string
	IsImportant *bool
	ExpiryDate  *time.Time
	Files       []Upload
}

// Patch holds a partial update; nil fields are left untouched.
type Patch struct {
	Title       *string
	Content     *string
	Category    *string
	IsImportant *bool
	ExpiryDate  *time.Time

	RemoveAllFiles bool
	// KeepFiles lists the attachment ids to retain. It only applies when
	// KeepFilesSet is true; an empty set drops every attachment.
	KeepFiles    []string
	KeepFilesSet bool
}

// Service is the notice lifecycle manager.
type Service struct {
	repo  Store
	files AttachmentStore
	dir   Directory
	log   *zap.Logger
	now   func() time.Time
}

func NewService(repo *NoticeRepository, files *storage.Cloudinary, dir *auth.AccountRepository, log *zap.Logger) *Service {
	return newService(repo, files, dir, log)
}

func newService(repo Store, files AttachmentStore, dir Directory, log *zap.Logger) *Service {
	return &Service{repo: repo, files: files, dir: dir, log: log, now: time.Now}
}

// Create uploads every file, then persists the notice. Uploaded files are
// not rolled back when the insert fails. Input is validated by the caller.
func (s *Service) Create(ctx context.Context, creatorID primitive.ObjectID, in CreateInput) (*Notice, error) {
	if creatorID.IsZero() {
		return nil, ErrUnauthorized
	}

	files, err := s.uploadAll(ctx, in.Files)
	if err != nil {
		return nil, err
	}

	now := s.now()
	n := &Notice{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		CreatorID:   creatorID,
		Category:    DefaultCategory,
		IsImportant: false,
		IsActive:    true,
		Files:       files,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiryDate:  now.Add(DefaultLifetime),
	}
	if in.Category != nil && *in.Category != "" {
		n.Category = *in.Category
	}
	if in.IsImportant != nil {
		n.IsImportant = *in.IsImportant
	}
	if in.ExpiryDate != nil {
		n.ExpiryDate = *in.ExpiryDate
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notice: %w", err)
	}
	s.log.Info("notice created",
		zap.String("notice_id", n.ID.Hex()),
		zap.String("creator_id", creatorID.Hex()),
		zap.Int("files", len(files)))
	return n, nil
}

// Update applies patch to a notice owned by creatorID and reconciles its
// attachments. Removed files are deleted remotely only after the write
// succeeds, and new files are uploaded before anything changes.
func (s *Service) Update(ctx context.Context, creatorID, noticeID primitive.ObjectID, patch Patch, uploads []Upload) (*Notice, error) {
	if creatorID.IsZero() {
		return nil, ErrUnauthorized
	}
	n, err := s.repo.FindOwned(ctx, noticeID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load notice: %w", err)
	}
	if n == nil {
		return nil, ErrNotFound
	}

	applyScalars(n, patch)
	dropped := reconcileFiles(n, patch)

	added, err := s.uploadAll(ctx, uploads)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		if n.hasLegacyFile() {
			n.Files = append([]Attachment{n.legacyAttachment()}, n.Files...)
			n.clearLegacyFile()
		}
		n.Files = append(n.Files, added...)
	}
	if n.Files == nil {
		n.Files = []Attachment{}
	}
	n.UpdatedAt = s.now()

	ok, err := s.repo.Replace(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("persist notice: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	s.deleteRemote(ctx, n.ID, dropped)
	s.log.Info("notice updated",
		zap.String("notice_id", n.ID.Hex()),
		zap.Int("files", len(n.Files)),
		zap.Int("removed", len(dropped)),
		zap.Int("added", len(added)))
	return n, nil
}

func applyScalars(n *Notice, patch Patch) {
	if patch.Title != nil {
		n.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Category != nil {
		n.Category = *patch.Category
	}
	if patch.IsImportant != nil {
		n.IsImportant = *patch.IsImportant
	}
	if patch.ExpiryDate != nil {
		n.ExpiryDate = *patch.ExpiryDate
	}
}

// reconcileFiles drops attachments per patch and returns the URLs that no
// longer belong to the notice.
func reconcileFiles(n *Notice, patch Patch) []string {
	if patch.RemoveAllFiles || (patch.KeepFilesSet && len(patch.KeepFiles) == 0) {
		dropped := n.fileURLs()
		n.Files = []Attachment{}
		n.clearLegacyFile()
		return dropped
	}
	if !patch.KeepFilesSet {
		return nil
	}

	keep := make(map[string]struct{}, len(patch.KeepFiles))
	for _, id := range patch.KeepFiles {
		keep[strings.TrimSpace(id)] = struct{}{}
	}

	var dropped []string
	kept := make([]Attachment, 0, len(n.Files))
	for _, f := range n.Files {
		if _, ok := keep[f.ID.Hex()]; ok {
			kept = append(kept, f)
			continue
		}
		dropped = append(dropped, f.URL)
	}
	n.Files = kept

	if len(dropped) > 0 && n.hasLegacyFile() {
		dropped = append(dropped, n.LegacyFileURL)
		n.clearLegacyFile()
	}
	return dropped
}

// Delete removes a notice owned by creatorID after a best-effort cleanup of
// its remote files.
func (s *Service) Delete(ctx context.Context, creatorID, noticeID primitive.ObjectID) error {
	if creatorID.IsZero() {
		return ErrUnauthorized
	}
	n, err := s.repo.FindOwned(ctx, noticeID, creatorID)
	if err != nil {
		return fmt.Errorf("load notice: %w", err)
	}
	if n == nil {
		return ErrNotFound
	}

	s.deleteRemote(ctx, n.ID, n.fileURLs())

	ok, err := s.repo.DeleteOwned(ctx, noticeID, creatorID)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	s.log.Info("notice deleted", zap.String("notice_id", noticeID.Hex()), zap.String("creator_id", creatorID.Hex()))
	return nil
}

// ListOwn returns the creator's notices newest first. No notices is
// reported as ErrNotFound.
func (s *Service) ListOwn(ctx context.Context, creatorID primitive.ObjectID) ([]*Notice, error) {
	if creatorID.IsZero() {
		return nil, ErrUnauthorized
	}
	notices, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	if len(notices) == 0 {
		return nil, ErrNotFound
	}
	return notices, nil
}

// ListForDepartment returns the active notices of every admin sharing the
// reader's department, newest first.
func (s *Service) ListForDepartment(ctx context.Context, readerID primitive.ObjectID) ([]*Notice, error) {
	if readerID.IsZero() {
		return nil, ErrUnauthorized
	}
	reader, err := s.dir.FindByID(ctx, auth.RoleUser, readerID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if reader == nil {
		return nil, ErrReaderNotFound
	}

	adminIDs, err := s.dir.FindAdminIDsByDepartment(ctx, reader.DepartmentName)
	if err != nil {
		return nil, fmt.Errorf("list department admins: %w", err)
	}
	if len(adminIDs) == 0 {
		return []*Notice{}, nil
	}

	notices, err := s.repo.ListActiveByCreators(ctx, adminIDs)
	if err != nil {
		return nil, fmt.Errorf("list department notices: %w", err)
	}
	return notices, nil
}

// uploadAll sends files one at a time, in order. The first failure aborts.
func (s *Service) uploadAll(ctx context.Context, uploads []Upload) ([]Attachment, error) {
	files := make([]Attachment, 0, len(uploads))
	for _, u := range uploads {
		url, err := s.files.Upload(ctx, u.Filename, u.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpload, u.Filename, err)
		}
		files = append(files, Attachment{
			ID:           primitive.NewObjectID(),
			URL:          url,
			FileType:     ClassifyFile(u.Filename, u.ContentType),
			OriginalName: u.Filename,
			UploadedAt:   s.now(),
		})
	}
	return files, nil
}

// deleteRemote removes files from the attachment store. Failures are logged
// and otherwise ignored; the remote file is left orphaned.
func (s *Service) deleteRemote(ctx context.Context, noticeID primitive.ObjectID, urls []string) {
	for _, url := range urls {
		if err := s.files.Delete(ctx, url); err != nil {
			s.log.Warn("failed to delete attachment",
				zap.String("notice_id", noticeID.Hex()),
				zap.String("url", url),
				zap.Error(err))
		}
	}
}

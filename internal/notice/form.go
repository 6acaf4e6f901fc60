package notice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Upload boundary limits.
const (
	MaxFiles    = 10
	MaxFileSize = 10 << 20
)

var allowedExtensions = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "jpg": {}, "jpeg": {}, "png": {},
}

var fileFields = []string{"files", "files[]"}

var (
	errBadForm     = errors.New("bad form")
	errExpiryDate  = errors.New("Invalid expiry date format")
	errKeepFileIDs = errors.New("keepFiles must be a list of file ids")
)

type createNoticeRequest struct {
	Title       string     `json:"title" form:"title" validate:"required,notblank"`
	Content     string     `json:"content" form:"content" validate:"required,notblank"`
	Category    *string    `json:"category" form:"category"`
	IsImportant *bool      `json:"isImportant" form:"isImportant"`
	ExpiryDate  *dateParam `json:"expiryDate" form:"expiryDate"`

	Files        []*multipart.FileHeader `json:"-" form:"files"`
	FilesBracket []*multipart.FileHeader `json:"-" form:"files[]"`
}

// updateNoticeRequest uses pointers so absent fields leave the notice as is.
type updateNoticeRequest struct {
	Title          *string    `json:"title" form:"title" validate:"omitempty,notblank"`
	Content        *string    `json:"content" form:"content" validate:"omitempty,notblank"`
	Category       *string    `json:"category" form:"category"`
	IsImportant    *bool      `json:"isImportant" form:"isImportant"`
	ExpiryDate     *dateParam `json:"expiryDate" form:"expiryDate"`
	RemoveAllFiles bool       `json:"removeAllFiles" form:"removeAllFiles"`
	KeepFiles      fileIDList `json:"keepFiles" form:"keepFiles"`
	KeepFilesArray fileIDList `json:"keepFiles[]" form:"keepFiles[]"`

	Files        []*multipart.FileHeader `json:"-" form:"files"`
	FilesBracket []*multipart.FileHeader `json:"-" form:"files[]"`
}

func (r *createNoticeRequest) input() CreateInput {
	return CreateInput{
		Title:       r.Title,
		Content:     r.Content,
		Category:    r.Category,
		IsImportant: r.IsImportant,
		ExpiryDate:  r.ExpiryDate.value(),
	}
}

func (r *updateNoticeRequest) patch() Patch {
	p := Patch{
		Title:          r.Title,
		Content:        r.Content,
		Category:       r.Category,
		IsImportant:    r.IsImportant,
		ExpiryDate:     r.ExpiryDate.value(),
		RemoveAllFiles: r.RemoveAllFiles,
	}
	if r.KeepFiles != nil || r.KeepFilesArray != nil {
		p.KeepFilesSet = true
		p.KeepFiles = append(append([]string{}, r.KeepFiles...), r.KeepFilesArray...)
	}
	return p
}

func (r *createNoticeRequest) uploads() []*multipart.FileHeader {
	return append(append([]*multipart.FileHeader{}, r.Files...), r.FilesBracket...)
}

func (r *updateNoticeRequest) uploads() []*multipart.FileHeader {
	return append(append([]*multipart.FileHeader{}, r.Files...), r.FilesBracket...)
}

type noticeRequest interface {
	uploads() []*multipart.FileHeader
}

// bindNotice binds and validates req, then returns the uploaded files of
// files and files[] in order. Any other file field is rejected.
func bindNotice(c echo.Context, req noticeRequest) ([]*multipart.FileHeader, error) {
	if err := c.Bind(req); err != nil {
		return nil, err
	}
	if err := c.Validate(req); err != nil {
		return nil, err
	}
	if form := c.Request().MultipartForm; form != nil {
		for name := range form.File {
			if !isFileField(name) {
				return nil, fmt.Errorf("%w: unexpected file field %q", errBadForm, name)
			}
		}
	}
	all := req.uploads()
	if err := checkFiles(all); err != nil {
		return nil, err
	}
	return all, nil
}

func isFileField(name string) bool {
	for _, f := range fileFields {
		if name == f {
			return true
		}
	}
	return false
}

func checkFiles(files []*multipart.FileHeader) error {
	if len(files) > MaxFiles {
		return fmt.Errorf("%w: at most %d files are allowed", errBadForm, MaxFiles)
	}
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			return fmt.Errorf("%w: %s exceeds the 10MB limit", errBadForm, fh.Filename)
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
		if _, ok := allowedExtensions[ext]; !ok {
			return fmt.Errorf("%w: %s has an unsupported file type", errBadForm, fh.Filename)
		}
	}
	return nil
}

// dateParam accepts RFC 3339, "2006-01-02T15:04" and "2006-01-02". An empty
// value binds as unset.
type dateParam struct {
	time.Time
}

func (d *dateParam) UnmarshalParam(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return errExpiryDate
}

func (d *dateParam) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errExpiryDate
	}
	return d.UnmarshalParam(s)
}

func (d *dateParam) value() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// fileIDList binds keepFiles sent as repeated fields or as one JSON array
// string. A bound list is never nil, even when empty, so presence survives.
type fileIDList []string

func (l *fileIDList) UnmarshalParams(values []string) error {
	out := fileIDList{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err != nil {
				return errKeepFileIDs
			}
			out = appendIDs(out, arr...)
			continue
		}
		out = appendIDs(out, v)
	}
	*l = out
	return nil
}

func (l *fileIDList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = appendIDs(fileIDList{}, arr...)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errKeepFileIDs
	}
	return l.UnmarshalParams([]string{s})
}

func appendIDs(l fileIDList, ids ...string) fileIDList {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			l = append(l, id)
		}
	}
	return l
}

// openUploads opens every file header in order. The returned func closes
// whatever was opened.
func openUploads(files []*multipart.FileHeader) ([]Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	uploads := make([]Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		ct := fh.Header.Get(echo.HeaderContentType)
		if ct == "" || ct == "application/octet-stream" {
			ct = sniffContentType(f)
		}
		uploads = append(uploads, Upload{Filename: fh.Filename, ContentType: ct, Body: f})
	}
	return uploads, closeAll, nil
}

func sniffContentType(f multipart.File) string {
	head := make([]byte, 512)
	n, _ := f.Read(head)
	_, _ = f.Seek(0, io.SeekStart)
	return http.DetectContentType(head[:n])
}

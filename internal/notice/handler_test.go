package notice

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NoticeBoard/internal/auth"
	"NoticeBoard/pkg/validate"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fileJSON struct {
	ID           string `json:"_id"`
	URL          string `json:"url"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
}

type noticeJSONView struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	IsImportant bool       `json:"isImportant"`
	IsActive    bool       `json:"isActive"`
	Files       []fileJSON `json:"files"`
	FileURL     *string    `json:"fileUrl"`
	FileType    string     `json:"fileType"`
	IsExpired   bool       `json:"isExpired"`
}

type apiResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Errors  []string         `json:"errors"`
	Count   int              `json:"count"`
	Notice  noticeJSONView   `json:"notice"`
	Notices []noticeJSONView `json:"notices"`
	Data    []noticeJSONView `json:"data"`
}

type part struct {
	field, filename, body string
}

func multipartBody(t *testing.T, fields map[string][]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, p := range files {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type handlerFixture struct {
	*fixture
	e *echo.Echo
}

// newHandlerFixture routes requests as if the JWT middleware had accepted a
// token for the account in the X-Test-Subject header.
func newHandlerFixture() *handlerFixture {
	f := newFixture()
	h := NewHandler(f.svc, zap.NewNop())
	e := echo.New()
	e.Validator = validate.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.Request().Header.Get("X-Test-Subject"); id != "" {
				auth.SetClaims(c, &auth.Claims{ID: id})
			}
			return next(c)
		}
	})
	e.POST("/admin/notices", h.Create)
	e.PUT("/admin/update-notices/:id", h.Update)
	e.DELETE("/admin/delete-notices/:id", h.Delete)
	e.GET("/admin/get-notices", h.ListOwn)
	e.GET("/user/notices", h.ListForDepartment)
	return &handlerFixture{fixture: f, e: e}
}

func (hf *handlerFixture) do(t *testing.T, method, path string, subject primitive.ObjectID, body *bytes.Buffer, ctype string) (int, apiResponse) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	if !subject.IsZero() {
		req.Header.Set("X-Test-Subject", subject.Hex())
	}
	rec := httptest.NewRecorder()
	hf.e.ServeHTTP(rec, req)

	var out apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (hf *handlerFixture) createVia(t *testing.T, admin primitive.ObjectID, title string, files ...part) noticeJSONView {
	t.Helper()
	body, ctype := multipartBody(t, map[string][]string{"title": {title}, "content": {"content"}}, files...)
	code, resp := hf.do(t, http.MethodPost, "/admin/notices", admin, body, ctype)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	return resp.Notice
}

func TestCreateHandler(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")

	body, ctype := multipartBody(t,
		map[string][]string{
			"title":       {"Exam timetable"},
			"content":     {"Attached"},
			"category":    {"Exams"},
			"isImportant": {"TRUE"},
			"expiryDate":  {"2099-01-31"},
		},
		part{"files", "timetable.pdf", "%PDF-1.4"},
		part{"files[]", "room.png", "png"},
	)
	code, resp := hf.do(t, http.MethodPost, "/admin/notices", admin, body, ctype)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, resp.Success)
	require.Equal(t, "Notice created successfully", resp.Message)

	n := resp.Notice
	require.Equal(t, "Exam timetable", n.Title)
	require.Equal(t, "Exams", n.Category)
	require.True(t, n.IsImportant)
	require.True(t, n.IsActive)
	require.False(t, n.IsExpired)
	require.Len(t, n.Files, 2)
	require.Equal(t, "timetable.pdf", n.Files[0].OriginalName)
	require.Equal(t, "pdf", n.Files[0].FileType)
	require.Equal(t, "image", n.Files[1].FileType)
	require.NotNil(t, n.FileURL)
	require.Equal(t, n.Files[0].URL, *n.FileURL)
}

func TestCreateHandlerJSONBody(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")

	body := bytes.NewBufferString(`{"title":"Holiday","content":"Campus closed","isImportant":true}`)
	code, resp := hf.do(t, http.MethodPost, "/admin/notices", admin, body, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "General", resp.Notice.Category)
	require.True(t, resp.Notice.IsImportant)
	require.NotNil(t, resp.Notice.Files)
	require.Empty(t, resp.Notice.Files)
	require.Nil(t, resp.Notice.FileURL)
	require.Equal(t, "other", resp.Notice.FileType)
}

func TestCreateHandlerRejects(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	valid := map[string][]string{"title": {"t"}, "content": {"c"}}

	tests := []struct {
		name   string
		fields map[string][]string
		files  []part
		want   string
	}{
		{"missing title", map[string][]string{"content": {"c"}}, nil, "title is required"},
		{"missing content", map[string][]string{"title": {"t"}}, nil, "content is required"},
		{"blank title", map[string][]string{"title": {"  \t"}, "content": {"c"}}, nil, "title is required"},
		{"bad importance", map[string][]string{"title": {"t"}, "content": {"c"}, "isImportant": {"maybe"}}, nil, ""},
		{"bad expiry", map[string][]string{"title": {"t"}, "content": {"c"}, "expiryDate": {"next week"}}, nil, "Invalid expiry date format"},
		{"unsupported type", valid, []part{{"files", "script.exe", "MZ"}}, "script.exe has an unsupported file type"},
		{"unexpected field", valid, []part{{"attachment", "a.pdf", "x"}}, `unexpected file field "attachment"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ctype := multipartBody(t, tt.fields, tt.files...)
			code, resp := hf.do(t, http.MethodPost, "/admin/notices", admin, body, ctype)
			require.Equal(t, http.StatusBadRequest, code)
			require.False(t, resp.Success)
			require.Equal(t, "Validation error", resp.Message)
			require.Len(t, resp.Errors, 1)
			if tt.want != "" {
				require.Equal(t, tt.want, resp.Errors[0])
			}
		})
	}
	require.Empty(t, hf.files.uploaded)
}

func TestCreateHandlerTooManyFiles(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")

	var files []part
	for i := 0; i <= MaxFiles; i++ {
		files = append(files, part{"files", "f.pdf", "x"})
	}
	body, ctype := multipartBody(t, map[string][]string{"title": {"t"}, "content": {"c"}}, files...)
	code, _ := hf.do(t, http.MethodPost, "/admin/notices", admin, body, ctype)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestCreateHandlerUploadFailure(t *testing.T) {
	hf := newHandlerFixture()
	hf.files.failOn = "a.pdf"
	admin := hf.dir.addAdmin("CS")

	body, ctype := multipartBody(t, map[string][]string{"title": {"t"}, "content": {"c"}}, part{"files", "a.pdf", "x"})
	code, resp := hf.do(t, http.MethodPost, "/admin/notices", admin, body, ctype)
	require.Equal(t, http.StatusInternalServerError, code)
	require.False(t, resp.Success)
	require.Empty(t, hf.store.byID)
}

func TestHandlersRequireSubject(t *testing.T) {
	hf := newHandlerFixture()
	code, resp := hf.do(t, http.MethodGet, "/admin/get-notices", primitive.NilObjectID, nil, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.False(t, resp.Success)
}

func TestUpdateHandlerKeepFiles(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t", part{"files", "a.pdf", "a"}, part{"files", "b.pdf", "b"}, part{"files", "c.pdf", "c"})

	keep, _ := json.Marshal([]string{n.Files[0].ID, n.Files[2].ID})
	body, ctype := multipartBody(t,
		map[string][]string{"title": {"renamed"}, "keepFiles": {string(keep)}},
		part{"files", "d.docx", "d"},
	)
	code, resp := hf.do(t, http.MethodPut, "/admin/update-notices/"+n.ID, admin, body, ctype)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Notice updated successfully", resp.Message)
	require.Equal(t, "renamed", resp.Notice.Title)

	var names []string
	for _, f := range resp.Notice.Files {
		names = append(names, f.OriginalName)
	}
	require.Equal(t, []string{"a.pdf", "c.pdf", "d.docx"}, names)
	require.Equal(t, []string{n.Files[1].URL}, hf.files.deleted)
}

func TestUpdateHandlerRejectsBlankFields(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t")

	tests := []struct {
		name   string
		fields map[string][]string
		want   string
	}{
		{"empty title", map[string][]string{"title": {""}}, "title is required"},
		{"blank content", map[string][]string{"content": {"   "}}, "content is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ctype := multipartBody(t, tt.fields)
			code, resp := hf.do(t, http.MethodPut, "/admin/update-notices/"+n.ID, admin, body, ctype)
			require.Equal(t, http.StatusBadRequest, code)
			require.Equal(t, []string{tt.want}, resp.Errors)
		})
	}

	stored := hf.store.byID[mustObjectID(t, n.ID)]
	require.Equal(t, "t", stored.Title)
}

func TestUpdateHandlerJSONBody(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t", part{"files", "a.pdf", "a"}, part{"files", "b.pdf", "b"})

	body := bytes.NewBufferString(`{"isImportant":true,"keepFiles":["` + n.Files[1].ID + `"]}`)
	code, resp := hf.do(t, http.MethodPut, "/admin/update-notices/"+n.ID, admin, body, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "t", resp.Notice.Title)
	require.True(t, resp.Notice.IsImportant)
	require.Len(t, resp.Notice.Files, 1)
	require.Equal(t, "b.pdf", resp.Notice.Files[0].OriginalName)
	require.Equal(t, []string{n.Files[0].URL}, hf.files.deleted)
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func TestUpdateHandlerRepeatedKeepFields(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t", part{"files", "a.pdf", "a"}, part{"files", "b.pdf", "b"})

	body, ctype := multipartBody(t, map[string][]string{"keepFiles[]": {n.Files[1].ID}})
	code, resp := hf.do(t, http.MethodPut, "/admin/update-notices/"+n.ID, admin, body, ctype)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Notice.Files, 1)
	require.Equal(t, "b.pdf", resp.Notice.Files[0].OriginalName)
}

func TestUpdateHandlerRemoveAll(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t", part{"files", "a.pdf", "a"})

	body, ctype := multipartBody(t, map[string][]string{"removeAllFiles": {"true"}})
	code, resp := hf.do(t, http.MethodPut, "/admin/update-notices/"+n.ID, admin, body, ctype)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Notice.Files)
	require.Nil(t, resp.Notice.FileURL)
}

func TestUpdateHandlerNotFound(t *testing.T) {
	hf := newHandlerFixture()
	owner := hf.dir.addAdmin("CS")
	n := hf.createVia(t, owner, "t")

	for _, path := range []string{
		"/admin/update-notices/" + n.ID,
		"/admin/update-notices/" + primitive.NewObjectID().Hex(),
		"/admin/update-notices/not-an-id",
	} {
		body, ctype := multipartBody(t, map[string][]string{"title": {"x"}})
		code, resp := hf.do(t, http.MethodPut, path, hf.dir.addAdmin("CS"), body, ctype)
		require.Equal(t, http.StatusNotFound, code, path)
		require.Equal(t, "Notice not found or not authorized to update", resp.Message)
	}
}

func TestDeleteHandler(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")
	n := hf.createVia(t, admin, "t", part{"files", "a.pdf", "a"})

	code, resp := hf.do(t, http.MethodDelete, "/admin/delete-notices/"+n.ID, admin, nil, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Equal(t, "Notice deleted successfully", resp.Message)
	require.Len(t, hf.files.deleted, 1)

	code, _ = hf.do(t, http.MethodDelete, "/admin/delete-notices/"+n.ID, admin, nil, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestListOwnHandler(t *testing.T) {
	hf := newHandlerFixture()
	admin := hf.dir.addAdmin("CS")

	code, resp := hf.do(t, http.MethodGet, "/admin/get-notices", admin, nil, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "No notices found", resp.Message)

	hf.createVia(t, admin, "first")
	hf.createVia(t, admin, "second")

	code, resp = hf.do(t, http.MethodGet, "/admin/get-notices", admin, nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "second", resp.Notices[0].Title)
	require.Equal(t, "first", resp.Notices[1].Title)
}

func TestListForDepartmentHandler(t *testing.T) {
	hf := newHandlerFixture()
	cs := hf.dir.addAdmin("CS")
	ee := hf.dir.addAdmin("EE")
	hf.createVia(t, cs, "cs notice")
	hf.createVia(t, ee, "ee notice")
	reader := hf.dir.addUser("EE")

	code, resp := hf.do(t, http.MethodGet, "/user/notices", reader, nil, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "ee notice", resp.Data[0].Title)

	code, resp = hf.do(t, http.MethodGet, "/user/notices", primitive.NewObjectID(), nil, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "User not found", resp.Message)
}

func TestFileIDListParams(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   fileIDList
	}{
		{"json array", []string{`["a"," b ",""]`}, fileIDList{"a", "b"}},
		{"repeated", []string{"a", "b"}, fileIDList{"a", "b"}},
		{"empty", []string{""}, fileIDList{}},
		{"empty array", []string{"[]"}, fileIDList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l fileIDList
			require.NoError(t, l.UnmarshalParams(tt.values))
			require.NotNil(t, l, "a bound list marks keepFiles as present")
			require.Equal(t, tt.want, l)
		})
	}

	var l fileIDList
	require.ErrorIs(t, l.UnmarshalParams([]string{"[oops"}), errKeepFileIDs)
}

func TestFileIDListJSON(t *testing.T) {
	var req updateNoticeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"keepFiles":["a","b"]}`), &req))
	require.Equal(t, fileIDList{"a", "b"}, req.KeepFiles)

	req = updateNoticeRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"keepFiles":"[\"a\"]"}`), &req))
	require.Equal(t, fileIDList{"a"}, req.KeepFiles)

	req = updateNoticeRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t"}`), &req))
	require.False(t, req.patch().KeepFilesSet)

	require.ErrorIs(t, json.Unmarshal([]byte(`{"keepFiles":5}`), &req), errKeepFileIDs)
}

func TestDateParam(t *testing.T) {
	for _, s := range []string{"2030-05-01", "2030-05-01T10:00", "2030-05-01T10:00:00Z", "2030-05-01T10:00:00.5+05:30"} {
		var d dateParam
		require.NoError(t, d.UnmarshalParam(s), s)
		require.Equal(t, 2030, d.value().Year())
	}

	var d dateParam
	require.NoError(t, d.UnmarshalParam(""))
	require.Nil(t, d.value())
	require.Nil(t, (*dateParam)(nil).value())
	require.ErrorIs(t, d.UnmarshalParam(strings.Repeat("x", 5)), errExpiryDate)

	require.NoError(t, d.UnmarshalJSON([]byte(`"2030-05-01"`)))
	require.Equal(t, 2030, d.value().Year())
	require.ErrorIs(t, d.UnmarshalJSON([]byte(`12`)), errExpiryDate)
}

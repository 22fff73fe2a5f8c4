package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/services"
)

// ---------- stub service ----------

type createCall struct {
	kind domain.Kind
	p    services.Payload
	o    services.Options
}

type stubDrops struct {
	created  *services.Created
	thread   *services.Thread
	err      error
	lastC    *createCall
	lastID   string
	lastKey  string
	lastKind domain.Kind
}

func (s *stubDrops) Create(_ context.Context, kind domain.Kind, p services.Payload, o services.Options) (*services.Created, error) {
	s.lastC = &createCall{kind: kind, p: p, o: o}
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func (s *stubDrops) Retrieve(_ context.Context, kind domain.Kind, id, key string) (*services.Thread, error) {
	s.lastKind, s.lastID, s.lastKey = kind, id, key
	if s.err != nil {
		return nil, s.err
	}
	return s.thread, nil
}

func newDropRouter(svc DropService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(svc)
	r.POST("/zync/:kind", h.CreateDrop)
	r.GET("/zync/:kind", h.GetDrop)
	return r
}

func do(r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

// ---------- create ----------

func TestCreateDrop_201_PassesPayloadAndOptions(t *testing.T) {
	svc := &stubDrops{created: &services.Created{ID: "ab12cd34", AccessKey: "k1k1k1"}}
	r := newDropRouter(svc)

	w := do(r, http.MethodPost, "/zync/code",
		`{"code":"x := 1","language":"Go","name":"Ann","expiry":3600,"content":"ignored"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp CreateDropResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.ID != "ab12cd34" || resp.AccessKey != "k1k1k1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	got := svc.lastC
	if got.kind != domain.KindCode || got.p.Code != "x := 1" || got.p.Language != "Go" {
		t.Fatalf("payload not forwarded: %+v", got)
	}
	if got.o.Name != "Ann" || got.o.ExpirySeconds == nil || *got.o.ExpirySeconds != 3600 {
		t.Fatalf("options not forwarded: %+v", got.o)
	}
}

func TestCreateDrop_ReplyOmitsAccessKey(t *testing.T) {
	svc := &stubDrops{created: &services.Created{ID: "rr00rr00"}}
	r := newDropRouter(svc)

	w := do(r, http.MethodPost, "/zync/link", `{"content":"nice","replyTo":"ab12cd34"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "accessKey") {
		t.Fatalf("reply response must not include accessKey: %s", w.Body.String())
	}
	if svc.lastC.o.ReplyTo != "ab12cd34" {
		t.Fatalf("replyTo not forwarded")
	}
}

func TestCreateDrop_ExpiryAndFileSizeForms(t *testing.T) {
	svc := &stubDrops{created: &services.Created{ID: "x"}}
	r := newDropRouter(svc)

	cases := []struct {
		body       string
		wantExpiry *int64
		wantSize   *int64
	}{
		{`{"content":"a"}`, nil, nil},
		{`{"content":"a","expiry":"120"}`, i64(120), nil},
		{`{"content":"a","expiry":90.9}`, i64(91), nil},
		{`{"content":"a","expiry":0.5}`, i64(1), nil},
		{`{"content":"a","expiry":-0.5}`, i64(-1), nil},
		{`{"content":"a","expiry":1e3}`, i64(1000), nil},
		{`{"fileName":"f","fileUrl":"u","fileSize":2048}`, nil, i64(2048)},
	}
	for _, tc := range cases {
		w := do(r, http.MethodPost, "/zync/note", tc.body, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: status %d", tc.body, w.Code)
		}
		if !eqPtr(svc.lastC.o.ExpirySeconds, tc.wantExpiry) || !eqPtr(svc.lastC.p.FileSize, tc.wantSize) {
			t.Fatalf("%s: expiry=%v size=%v", tc.body, svc.lastC.o.ExpirySeconds, svc.lastC.p.FileSize)
		}
	}
}

func i64(v int64) *int64 { return &v }

func eqPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestCreateDrop_BadInput(t *testing.T) {
	svc := &stubDrops{created: &services.Created{ID: "x"}}
	r := newDropRouter(svc)

	cases := []struct {
		name, target, body string
		status             int
		code, msg          string
	}{
		{"malformed json", "/zync/note", `{"content":`, http.StatusBadRequest, ErrCodeBadRequest, msgMalformedJSON},
		{"empty body", "/zync/note", ``, http.StatusBadRequest, ErrCodeBadRequest, msgMalformedJSON},
		{"wrong field type", "/zync/note", `{"content":12}`, http.StatusBadRequest, ErrCodeBadRequest, msgMalformedJSON},
		{"unknown kind", "/zync/image", `{"content":"x"}`, http.StatusNotFound, ErrCodeNotFound, msgUnknownKind},
		{"expiry out of range", "/zync/note", `{"content":"x","expiry":1e30}`, http.StatusBadRequest, ErrCodeBadRequest, "expiry must be a number of seconds"},
		{"expiry past int64", "/zync/note", `{"content":"x","expiry":9223372036854775808}`, http.StatusBadRequest, ErrCodeBadRequest, "expiry must be a number of seconds"},
		{"fileSize out of range", "/zync/file", `{"fileName":"f","fileUrl":"u","fileSize":-1e30}`, http.StatusBadRequest, ErrCodeBadRequest, "fileSize must be a number of bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc.lastC = nil
			w := do(r, http.MethodPost, tc.target, tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			er := decodeError(t, w)
			if er.Code != tc.code || er.Error != tc.msg {
				t.Fatalf("body = %+v", er)
			}
			if svc.lastC != nil {
				t.Fatalf("service must not be called on bad input")
			}
		})
	}
}

func TestCreateDrop_ValidationFromService(t *testing.T) {
	svc := &stubDrops{err: &services.ValidationError{Field: "content", Message: "Note content required"}}
	r := newDropRouter(svc)

	w := do(r, http.MethodPost, "/zync/note", `{"content":"  "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if er := decodeError(t, w); er.Error != "Note content required" {
		t.Fatalf("message = %q", er.Error)
	}
}

func TestCreateDrop_InternalErrorIsOpaque(t *testing.T) {
	svc := &stubDrops{err: errors.New("insert note: UNIQUE constraint failed: notes.id")}
	r := newDropRouter(svc)

	w := do(r, http.MethodPost, "/zync/note", `{"content":"hi"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "UNIQUE") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
	if er := decodeError(t, w); er.Error != msgInternal {
		t.Fatalf("message = %q", er.Error)
	}
}

// ---------- retrieve ----------

func strp(s string) *string { return &s }

func TestGetDrop_200_WithReplies(t *testing.T) {
	svc := &stubDrops{thread: &services.Thread{
		Drop: domain.Drop{ID: "ab12cd34", Kind: domain.KindNote, Content: "hello", Name: strp("Ann"), CreatedAt: 1, ExpiresAt: 2},
		Replies: []domain.Drop{
			{ID: "r1", Kind: domain.KindNote, Content: "A", ReplyTo: strp("ab12cd34"), CreatedAt: 3, ExpiresAt: 4},
		},
	}}
	r := newDropRouter(svc)

	w := do(r, http.MethodGet, "/zync/note?id=ab12cd34&key=k1k1k1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.lastKind != domain.KindNote || svc.lastID != "ab12cd34" || svc.lastKey != "k1k1k1" {
		t.Fatalf("args = %s/%s/%s", svc.lastKind, svc.lastID, svc.lastKey)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["id"] != "ab12cd34" || body["content"] != "hello" || body["name"] != "Ann" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, has := body["accessKey"]; has {
		t.Fatalf("accessKey must not be serialised")
	}
	replies, _ := body["replies"].([]any)
	if len(replies) != 1 {
		t.Fatalf("replies = %v", body["replies"])
	}
}

func TestGetDrop_EmptyRepliesIsArray(t *testing.T) {
	svc := &stubDrops{thread: &services.Thread{Drop: domain.Drop{ID: "x", Content: "c"}}}
	r := newDropRouter(svc)

	w := do(r, http.MethodGet, "/zync/note?id=x", "", nil)
	if !strings.Contains(w.Body.String(), `"replies":[]`) {
		t.Fatalf("replies must be an empty array: %s", w.Body.String())
	}
}

func TestGetDrop_KeyFromHeader(t *testing.T) {
	svc := &stubDrops{thread: &services.Thread{Drop: domain.Drop{ID: "x"}}}
	r := newDropRouter(svc)

	do(r, http.MethodGet, "/zync/file?id=x", "", map[string]string{accessKeyHeader: " hdrkey "})
	if svc.lastKey != "hdrkey" || svc.lastKind != domain.KindFile {
		t.Fatalf("key = %q kind = %s", svc.lastKey, svc.lastKind)
	}

	// Query parameter wins over header.
	do(r, http.MethodGet, "/zync/file?id=x&key=qkey", "", map[string]string{accessKeyHeader: "hdrkey"})
	if svc.lastKey != "qkey" {
		t.Fatalf("key = %q; want qkey", svc.lastKey)
	}
}

func TestGetDrop_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", services.ErrNotFound, http.StatusNotFound, msgNotFound},
		{"expired", services.ErrExpired, http.StatusNotFound, msgNotFound},
		{"denied", services.ErrAccessDenied, http.StatusForbidden, msgAccessDenied},
		{"missing id", &services.ValidationError{Field: "id", Message: "id is required"}, http.StatusBadRequest, "id is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newDropRouter(&stubDrops{err: tc.err})
			w := do(r, http.MethodGet, "/zync/note?id=abc", "", nil)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			if er := decodeError(t, w); er.Error != tc.msg {
				t.Fatalf("message = %q; want %q", er.Error, tc.msg)
			}
		})
	}
}

func TestGetDrop_ExpiredAndMissingBodiesIdentical(t *testing.T) {
	w1 := do(newDropRouter(&stubDrops{err: services.ErrNotFound}), http.MethodGet, "/zync/note?id=a", "", nil)
	w2 := do(newDropRouter(&stubDrops{err: services.ErrExpired}), http.MethodGet, "/zync/note?id=a", "", nil)
	if w1.Code != w2.Code || w1.Body.String() != w2.Body.String() {
		t.Fatalf("responses differ:\n%d %s\n%d %s", w1.Code, w1.Body.String(), w2.Code, w2.Body.String())
	}
}

func TestGetDrop_UnknownKind(t *testing.T) {
	svc := &stubDrops{}
	w := do(newDropRouter(svc), http.MethodGet, "/zync/video?id=a", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.lastID != "" {
		t.Fatalf("service must not be called for unknown kind")
	}
}

// Drop HTTP handlers.
//
// This file exposes the two drop endpoints, shared by every kind:
//   - POST /zync/{kind}            (create a drop or a reply)
//   - GET  /zync/{kind}?id=&key=   (retrieve a drop with its replies)
//
// Handlers are transport-thin: they decode input, call DropService, and
// translate results and errors into HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/services"
)

// accessKeyHeader is an alternative to the ?key= query parameter that keeps
// the key out of URLs.
const accessKeyHeader = "X-Access-Key"

// DropService defines the drop operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type DropService interface {
	Create(ctx context.Context, kind domain.Kind, p services.Payload, o services.Options) (*services.Created, error)
	Retrieve(ctx context.Context, kind domain.Kind, id, key string) (*services.Thread, error)
}

// Handlers groups the HTTP endpoints for drops.
type Handlers struct {
	drops DropService
}

// New constructs Handlers bound to the given service.
func New(drops DropService) *Handlers {
	return &Handlers{drops: drops}
}

//
// DTOs
//

// CreateDropRequest is the JSON payload for creating a drop. Only the fields
// of the target kind are read:
//   - note: content
//   - link: url (root) or content (reply)
//   - code: code, language
//   - file: fileName, fileUrl, fileSize
type CreateDropRequest struct {
	Content  string      `json:"content,omitempty" example:"hello"`
	URL      string      `json:"url,omitempty" example:"https://example.com"`
	Code     string      `json:"code,omitempty" example:"fmt.Println(\"hi\")"`
	Language string      `json:"language,omitempty" example:"go"`
	FileName string      `json:"fileName,omitempty" example:"report.pdf"`
	FileSize json.Number `json:"fileSize,omitempty" swaggertype:"integer" example:"1024"`
	FileURL  string      `json:"fileUrl,omitempty" example:"https://cdn.example.com/report.pdf"`

	// Name is an optional author label.
	Name string `json:"name,omitempty" example:"Ann"`
	// Expiry is the time-to-live in seconds; 0 or absent means 24h.
	Expiry json.Number `json:"expiry,omitempty" swaggertype:"integer" example:"3600"`
	// ReplyTo makes this drop a reply to the given id.
	ReplyTo string `json:"replyTo,omitempty" example:"k3j9x0ab"`
}

// CreateDropResponse is returned by a successful create. AccessKey is
// present for root drops only and cannot be retrieved again.
type CreateDropResponse struct {
	ID        string `json:"id" example:"k3j9x0ab"`
	AccessKey string `json:"accessKey,omitempty" example:"p0q9r8"`
}

// DropView is a retrieved drop with its replies in creation order. The
// access key is never included.
type DropView struct {
	domain.Drop
	Replies []domain.Drop `json:"replies"`
}

//
// Helpers
//

// kindParam resolves the :kind path segment.
func kindParam(c *gin.Context) (domain.Kind, bool) {
	return domain.ParseKind(c.Param("kind"))
}

// optionalInt parses a JSON number into an int64 pointer. Fractions round
// away from zero, so 0.5 seconds becomes 1 rather than the 0 default.
// Values outside the int64 range are rejected.
func optionalInt(n json.Number) (*int64, bool) {
	if n == "" {
		return nil, true
	}
	if v, err := n.Int64(); err == nil {
		return &v, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f < 0 {
		f = math.Floor(f)
	} else {
		f = math.Ceil(f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	v := int64(f)
	return &v, true
}

//
// Handlers
//

// CreateDrop godoc
// @ID          createDrop
// @Summary     Create a drop
// @Description Stores a note, link, code snippet or file reference and returns its id. Root drops also receive a one-time access key; replies (replyTo set) do not.
// @Tags        Drops
// @Accept      json
// @Produce     json
//
// @Param       kind  path  string  true  "Drop kind"  Enums(note, link, code, file)
// @Param       body  body  handlers.CreateDropRequest  true  "Drop payload"
//
// @Success     201  {object}  handlers.CreateDropResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or malformed JSON"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown kind"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.RateLimitResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /zync/{kind} [post]
func (h *Handlers) CreateDrop(c *gin.Context) {
	kind, found := kindParam(c)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgUnknownKind)
		return
	}

	var req CreateDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgMalformedJSON)
		return
	}
	expiry, valid := optionalInt(req.Expiry)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expiry must be a number of seconds")
		return
	}
	size, valid := optionalInt(req.FileSize)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fileSize must be a number of bytes")
		return
	}

	out, err := h.drops.Create(c.Request.Context(), kind,
		services.Payload{
			Content:  req.Content,
			URL:      req.URL,
			Code:     req.Code,
			Language: req.Language,
			FileName: req.FileName,
			FileSize: size,
			FileURL:  req.FileURL,
		},
		services.Options{
			Name:          req.Name,
			ExpirySeconds: expiry,
			ReplyTo:       req.ReplyTo,
		},
	)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, CreateDropResponse{ID: out.ID, AccessKey: out.AccessKey})
}

// GetDrop godoc
// @ID          getDrop
// @Summary     Retrieve a drop
// @Description Returns the drop and its replies (oldest first). Key-protected drops require the access key via ?key= or the X-Access-Key header. Expired and missing drops both return 404.
// @Tags        Drops
// @Produce     json
//
// @Param       kind          path    string  true   "Drop kind"  Enums(note, link, code, file)
// @Param       id            query   string  true   "Drop id"    example(k3j9x0ab)
// @Param       key           query   string  false  "Access key" example(p0q9r8)
// @Param       X-Access-Key  header  string  false  "Access key (alternative to ?key=)"
//
// @Success     200  {object}  handlers.DropView
// @Failure     400  {object}  handlers.ErrorResponse  "Missing id"
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid or missing access key"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found or expired"
// @Failure     429  {object}  handlers.RateLimitResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /zync/{kind} [get]
func (h *Handlers) GetDrop(c *gin.Context) {
	kind, found := kindParam(c)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgUnknownKind)
		return
	}

	key := c.Query("key")
	if key == "" {
		key = strings.TrimSpace(c.GetHeader(accessKeyHeader))
	}

	th, err := h.drops.Retrieve(c.Request.Context(), kind, c.Query("id"), key)
	if err != nil {
		failService(c, err)
		return
	}

	replies := th.Replies
	if replies == nil {
		replies = []domain.Drop{}
	}
	ok(c, http.StatusOK, DropView{Drop: th.Drop, Replies: replies})
}

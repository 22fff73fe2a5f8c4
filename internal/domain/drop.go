package domain

import "time"

// DefaultLanguage is stored for code drops submitted without a language tag.
const DefaultLanguage = "plaintext"

// Drop is the persisted document for every content kind. A drop whose
// ReplyTo is set is a reply: it never carries an AccessKey and is displayed
// under its parent's thread.
//
// Fields:
//   - ID: short random identifier, primary key within the kind's namespace.
//   - Kind: not stored; filled in by the store from the namespace it read.
//   - Content / URL / Code+Language / FileName+FileSize+FileURL: kind payload.
//   - AccessKey: write-once secret for root drops; nil for replies.
//   - Name: optional author label, nil when absent.
//   - ReplyTo: parent drop id, nil for root drops.
//   - CreatedAt / ExpiresAt: epoch milliseconds.
//
// Optional fields are pointers so absent values are never stored as empty
// placeholders (NULL in SQL, omitted in JSON documents).
type Drop struct {
	ID        string  `json:"id"                  gorm:"type:varchar(32);primaryKey"`
	Kind      Kind    `json:"kind,omitempty"      gorm:"-"`
	Content   string  `json:"content,omitempty"   gorm:"type:text"`
	URL       string  `json:"url,omitempty"       gorm:"type:text"`
	Code      string  `json:"code,omitempty"      gorm:"type:text"`
	Language  string  `json:"language,omitempty"  gorm:"type:varchar(64)"`
	FileName  string  `json:"fileName,omitempty"  gorm:"type:varchar(255)"`
	FileSize  int64   `json:"fileSize,omitempty"`
	FileURL   string  `json:"fileUrl,omitempty"   gorm:"type:text"`
	AccessKey *string `json:"accessKey,omitempty" gorm:"type:varchar(64)"`
	Name      *string `json:"name,omitempty"      gorm:"type:varchar(255)"`
	ReplyTo   *string `json:"replyTo,omitempty"   gorm:"type:varchar(32);index"`
	CreatedAt int64   `json:"createdAt"           gorm:"not null;autoCreateTime:false"`
	ExpiresAt int64   `json:"expiresAt"           gorm:"not null;index"`
}

// IsReply reports whether d replies to another drop.
func (d *Drop) IsReply() bool { return d.ReplyTo != nil && *d.ReplyTo != "" }

// Guarded reports whether retrieving d requires an access key.
func (d *Drop) Guarded() bool { return d.AccessKey != nil && *d.AccessKey != "" }

// ExpiredAt reports whether d is past its time-to-live at t. A drop is live
// while t <= ExpiresAt.
func (d *Drop) ExpiredAt(t time.Time) bool { return t.UnixMilli() > d.ExpiresAt }

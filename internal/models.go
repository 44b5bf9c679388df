package internal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UTMParams is the optional campaign parameter set stored with a link. Only
// parameters that are present get appended to the destination at resolve time.
type UTMParams struct {
	Ref      *string `gorm:"type:varchar(100)" json:"ref,omitempty"`
	Source   *string `gorm:"type:varchar(100)" json:"utm_source,omitempty"`
	Medium   *string `gorm:"type:varchar(100)" json:"utm_medium,omitempty"`
	Campaign *string `gorm:"type:varchar(100)" json:"utm_campaign,omitempty"`
	Term     *string `gorm:"type:varchar(100)" json:"utm_term,omitempty"`
	Content  *string `gorm:"type:varchar(100)" json:"utm_content,omitempty"`
}

// MaxUTMValueLength caps each stored UTM parameter value.
const MaxUTMValueLength = 100

// Validate rejects parameter values over the storage cap.
func (u UTMParams) Validate() error {
	for name, v := range map[string]*string{
		"ref": u.Ref, "utm_source": u.Source, "utm_medium": u.Medium,
		"utm_campaign": u.Campaign, "utm_term": u.Term, "utm_content": u.Content,
	} {
		if v != nil && len(*v) > MaxUTMValueLength {
			return fmt.Errorf("%s exceeds %d characters", name, MaxUTMValueLength)
		}
	}
	return nil
}

// Empty reports whether no parameter is set.
func (u UTMParams) Empty() bool {
	return u.Ref == nil && u.Source == nil && u.Medium == nil &&
		u.Campaign == nil && u.Term == nil && u.Content == nil
}

type Link struct {
	Key            string     `gorm:"primaryKey;type:varchar(20)" json:"key"`
	DestinationURL string     `gorm:"type:text;not null" json:"destination_url"`
	PasswordHash   *string    `gorm:"type:varchar(72)" json:"-"`
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at,omitempty"`
	UTM            UTMParams  `gorm:"embedded;embeddedPrefix:utm_" json:"utm"`
	OwnerID        *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Temporary reports whether the link has no owner (anonymous shortening).
func (l *Link) Temporary() bool {
	return l.OwnerID == nil
}

// ExpiredAt reports whether the link is past its expiry at the given instant.
// Links without ExpiresAt never expire.
func (l *Link) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// ClickFact is one immutable record of a successful resolution. It references
// its link weakly by key: the fact outlives link expiry and deletion.
type ClickFact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LinkKey   string    `gorm:"type:varchar(20);index;not null" json:"link_key"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Referer   string    `gorm:"type:text" json:"referer,omitempty"`
	Device    string    `gorm:"type:varchar(32);not null" json:"device"`
	OS        string    `gorm:"type:varchar(64);not null" json:"os"`
	Browser   string    `gorm:"type:varchar(64);not null" json:"browser"`
	Country   string    `gorm:"type:varchar(64);not null" json:"country"`
	Region    string    `gorm:"type:varchar(64);not null" json:"region"`
	City      string    `gorm:"type:varchar(64);not null" json:"city"`
}

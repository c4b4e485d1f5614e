package database

import "time"

// SentimentLabel is the categorical output of the classifier
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentUnknown  SentimentLabel = "unknown"
)

// NotificationStatus is the alert state of a district's ledger row
type NotificationStatus string

const (
	StatusQuiet    NotificationStatus = "quiet"
	StatusAlerting NotificationStatus = "alerting"
)

// DistrictStats holds the cumulative sentiment tally for one district.
// The (governorate, district) pair maps to exactly one district_id; the
// id is assigned on first observation and never reassigned.
type DistrictStats struct {
	DistrictID   uint      `gorm:"primaryKey;autoIncrement" json:"district_id"`
	Governorate  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_district_identity" json:"governorate"`
	District     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_district_identity" json:"district"`
	TotalReviews int64     `gorm:"not null;default:0" json:"total_reviews"`
	NumPositive  int64     `gorm:"not null;default:0" json:"num_positive"`
	NumNegative  int64     `gorm:"not null;default:0" json:"num_negative"`
	NumNeutral   int64     `gorm:"not null;default:0" json:"num_neutral"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DistrictStats) TableName() string {
	return "district_stats"
}

// Notification is the per-district alert ledger row. CumulativeNegative
// accumulates while the row is quiet and is frozen once alerting; only an
// acknowledgement resets it. AlertMessage is rendered exactly once, at the
// quiet->alerting transition (or at creation when the initial count already
// crosses the threshold).
type Notification struct {
	DistrictID         uint               `gorm:"primaryKey" json:"district_id"`
	CumulativeNegative int64              `gorm:"not null;default:0" json:"cumulative_negative"`
	Threshold          int64              `gorm:"not null" json:"threshold"`
	Status             NotificationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	AlertMessage       *string            `gorm:"type:text" json:"alert_message"`
	AlertedAt          *time.Time         `json:"alerted_at"`
	AcknowledgedAt     *time.Time         `json:"acknowledged_at"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	District DistrictStats `gorm:"foreignKey:DistrictID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// IsAlerting reports whether the row is in the alerting state
func (n *Notification) IsAlerting() bool {
	return n.Status == StatusAlerting
}

// Review is one classified customer review attributed to a district
type Review struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	DistrictID uint           `gorm:"not null;index" json:"district_id"`
	ReviewText string         `gorm:"type:text;not null" json:"review_text"`
	CleanText  string         `gorm:"type:text" json:"clean_text"`
	Sentiment  SentimentLabel `gorm:"type:varchar(16);not null" json:"sentiment"`
	Stars      int            `json:"stars"`
	CreatedAt  time.Time      `json:"created_at"`

	District DistrictStats `gorm:"foreignKey:DistrictID" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

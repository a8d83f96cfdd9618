package models

import "time"

// SettlementStat aggregates webhook processing counters per day. Rows are
// written by the counter flusher, not by the request path.
type SettlementStat struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StatDate   string    `gorm:"type:date;not null;uniqueIndex" json:"stat_date"`
	Processed  int64     `gorm:"not null;default:0" json:"processed"`
	Duplicates int64     `gorm:"not null;default:0" json:"duplicates"`
	Ignored    int64     `gorm:"not null;default:0" json:"ignored"`
	Failed     int64     `gorm:"not null;default:0" json:"failed"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

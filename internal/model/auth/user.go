package auth

import (
	"time"
)

// Account is a registered user of the chat service.
// IDs are UUID strings to avoid ObjectID conversions.
//
// MonthlyQueryCount and LastQueryMonth implement the lazy monthly quota
// window: the count is only meaningful for the month stored in
// LastQueryMonth ("YYYY-MM", UTC). An empty LastQueryMonth means the
// account has never issued a chat request.
type Account struct {
	ID                string     `bson:"_id,omitempty" json:"id"`
	Username          string     `bson:"username" json:"username"`
	Email             string     `bson:"email" json:"email"`
	Password          string     `bson:"password" json:"-"` // bcrypt hash, never serialized
	MonthlyQueryCount int        `bson:"monthly_query_count" json:"monthly_query_count"`
	LastQueryMonth    string     `bson:"last_query_month,omitempty" json:"last_query_month,omitempty"`
	IsSubscribed      bool       `bson:"is_subscribed" json:"is_subscribed"`
	LastLoginAt       *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

package auth

import (
	"time"

	"oracle/internal/model/auth"
)

// ErrorResponse is the error envelope shared by all auth endpoints.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// AccountInfo is the account shape returned by auth endpoints.
type AccountInfo struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	IsSubscribed      bool   `json:"is_subscribed"`
	MonthlyQueryCount int    `json:"monthly_query_count"`
	LastQueryMonth    string `json:"last_query_month,omitempty"`
	LastLoginAt       string `json:"last_login_at,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// toAccountInfo converts an Account entity into the response shape.
func toAccountInfo(account *auth.Account) AccountInfo {
	info := AccountInfo{
		ID:                account.ID,
		Username:          account.Username,
		Email:             account.Email,
		IsSubscribed:      account.IsSubscribed,
		MonthlyQueryCount: account.MonthlyQueryCount,
		LastQueryMonth:    account.LastQueryMonth,
	}

	if account.LastLoginAt != nil {
		info.LastLoginAt = account.LastLoginAt.Format(time.RFC3339)
	}
	info.CreatedAt = account.CreatedAt.Format(time.RFC3339)

	return info
}

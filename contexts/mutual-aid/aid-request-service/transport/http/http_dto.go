package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type CreateRequestRequest struct {
	Amount        float64 `json:"amount"`
	SeverityLevel int     `json:"severity_level"`
	Category      string  `json:"category"`
	Urgency       string  `json:"urgency"`
	Reason        string  `json:"reason"`
	PublicMessage string  `json:"public_message,omitempty"`
}

type ValidationSummary struct {
	Total             int     `json:"total"`
	Approved          int     `json:"approved"`
	Rejected          int     `json:"rejected"`
	AverageConfidence float64 `json:"average_confidence"`
	Required          int     `json:"required_validations"`
	Complete          bool    `json:"is_complete"`
}

type StatusChange struct {
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ChangedBy  string `json:"changed_by"`
	Reason     string `json:"reason,omitempty"`
	ChangedAt  string `json:"changed_at"`
}

type RequestResponse struct {
	RequestID     string            `json:"request_id"`
	Amount        float64           `json:"amount"`
	SeverityLevel int               `json:"severity_level"`
	Category      string            `json:"category"`
	Urgency       string            `json:"urgency"`
	Reason        string            `json:"reason,omitempty"`
	PublicMessage string            `json:"public_message,omitempty"`
	Status        string            `json:"status"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
	ExpiresAt     string            `json:"expires_at,omitempty"`
	ResolvedAt    string            `json:"resolved_at,omitempty"`
	CancelledAt   string            `json:"cancelled_at,omitempty"`
	Summary       ValidationSummary `json:"validation_summary"`
	StatusHistory []StatusChange    `json:"status_history,omitempty"`
	IsOwner       bool              `json:"is_owner"`
	CanCancel     bool              `json:"can_cancel"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type RequesterStats struct {
	TotalRequests       int     `json:"total_requests"`
	PendingRequests     int     `json:"pending_requests"`
	ApprovedRequests    int     `json:"approved_requests"`
	CompletedRequests   int     `json:"completed_requests"`
	RejectedRequests    int     `json:"rejected_requests"`
	RecentRequests      int     `json:"recent_requests"`
	TotalApprovedAmount float64 `json:"total_approved_amount"`
	SuccessRate         float64 `json:"success_rate"`
	CanSubmitNew        bool    `json:"can_submit_new"`
}

type MyRequestsResponse struct {
	Items      []RequestResponse `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Stats      RequesterStats    `json:"requester_stats"`
}

type CancelResponse struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
}

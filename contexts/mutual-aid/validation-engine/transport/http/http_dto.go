package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type SubmitValidationRequest struct {
	RequestID         string  `json:"request_id"`
	Decision          string  `json:"decision"`
	ConfidenceScore   float64 `json:"confidence_score"`
	Reason            string  `json:"reason"`
	ReviewTimeSeconds int     `json:"review_time_seconds,omitempty"`
}

type SubmitValidationResponse struct {
	VoteID         string         `json:"vote_id"`
	RequestID      string         `json:"request_id"`
	Decision       string         `json:"decision"`
	ConsensusState ConsensusState `json:"consensus_state"`
	Resolved       bool           `json:"resolved"`
	Reward         *RewardSettled `json:"reward,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

type ConsensusState struct {
	Approvals  int    `json:"approvals"`
	Rejections int    `json:"rejections"`
	TotalVotes int    `json:"total_votes"`
	Required   int    `json:"required_approvals"`
	Decided    bool   `json:"decided"`
	Outcome    string `json:"outcome,omitempty"`
}

type RewardSettled struct {
	EntryID       string  `json:"entry_id"`
	Amount        float64 `json:"amount"`
	Base          float64 `json:"base"`
	SeverityMult  float64 `json:"severity_multiplier"`
	AmountMult    float64 `json:"amount_multiplier"`
	AccuracyBonus float64 `json:"accuracy_bonus"`
	Credited      bool    `json:"credited"`
	Replayed      bool    `json:"replayed"`
}

type RewardQuote struct {
	Base       float64 `json:"base"`
	Multiplier float64 `json:"multiplier"`
	Estimated  float64 `json:"estimated_total"`
}

type RequesterSummary struct {
	WalletAddress      string  `json:"wallet_address"`
	ReputationScore    float64 `json:"reputation_score"`
	TotalContributions float64 `json:"total_contributions"`
	VerificationStatus string  `json:"verification_status"`
	MemberSince        string  `json:"member_since"`
}

type PendingValidationItem struct {
	RequestID     string           `json:"request_id"`
	Amount        float64          `json:"amount"`
	SeverityLevel int              `json:"severity_level"`
	Category      string           `json:"category"`
	Urgency       string           `json:"urgency"`
	CreatedAt     string           `json:"created_at"`
	ExpiresAt     string           `json:"expires_at,omitempty"`
	Requester     RequesterSummary `json:"requester"`
	Approvals     int              `json:"approvals"`
	Rejections    int              `json:"rejections"`
	TotalVotes    int              `json:"total_votes"`
	Required      int              `json:"required_approvals"`
	Reward        RewardQuote      `json:"estimated_reward"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type ValidatorStats struct {
	TotalValidations    int     `json:"total_validations"`
	RecentValidations   int     `json:"recent_validations"`
	ApprovedValidations int     `json:"approved_validations"`
	ApprovalRate        float64 `json:"approval_rate"`
}

type PendingValidationsResponse struct {
	Items      []PendingValidationItem `json:"items"`
	Pagination Pagination              `json:"pagination"`
	Stats      ValidatorStats          `json:"validator_stats"`
}

type HistoryItem struct {
	VoteID          string  `json:"vote_id"`
	RequestID       string  `json:"request_id"`
	Decision        string  `json:"decision"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reason          string  `json:"reason"`
	CreatedAt       string  `json:"created_at"`
	Amount          float64 `json:"amount,omitempty"`
	Category        string  `json:"category,omitempty"`
	RequestStatus   string  `json:"request_status,omitempty"`
}

type ValidationHistoryResponse struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

type QualificationDetails struct {
	MinReputationScore        float64  `json:"min_reputation_score"`
	CurrentReputationScore    float64  `json:"current_reputation_score"`
	MinValidationAccuracy     float64  `json:"min_validation_accuracy"`
	CurrentValidationAccuracy float64  `json:"current_validation_accuracy"`
	IsActiveValidator         bool     `json:"is_active_validator"`
	UnmetRequirements         []string `json:"unmet_requirements"`
}

type StatusDetails struct {
	CurrentStatus string `json:"current_status"`
}

package domain

import "time"

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewDismissed ReviewStatus = "dismissed"
)

// VersionReview records a prior-version candidate that failed the similarity
// gate. Neither document is touched until the review is confirmed.
type VersionReview struct {
	ID         int64        `json:"id"`
	Identifier string       `json:"identifier"`
	OldDocID   int64        `json:"old_doc_id"`
	NewDocID   int64        `json:"new_doc_id"`
	Similarity float64      `json:"similarity"`
	Threshold  float64      `json:"threshold"`
	Status     ReviewStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

package models

import "time"

// Comment is a single entry of a listing's discussion thread.
// ParentCommentID is empty for top-level comments.
type Comment struct {
	CommentID       string    `json:"commentId"`
	ParentCommentID string    `json:"parentCommentId,omitempty"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
	Description     string    `json:"description"`
}

// IsReply reports whether the comment names a parent.
func (c Comment) IsReply() bool {
	return c.ParentCommentID != ""
}

// NewComment is the payload accepted by the comments endpoint
type NewComment struct {
	AdID            string `json:"adId"`
	CreatedBy       string `json:"createdBy"`
	Description     string `json:"description"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

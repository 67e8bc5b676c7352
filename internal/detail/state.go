package detail

import (
	"time"

	"github.com/Fn-M/HousingManager/internal/carousel"
	"github.com/Fn-M/HousingManager/internal/comments"
	"github.com/Fn-M/HousingManager/internal/editor"
	"github.com/Fn-M/HousingManager/internal/models"
)

// CommentRow is one visible line of the comment thread
type CommentRow struct {
	models.Comment
	Depth      int  `json:"depth"`
	ReplyCount int  `json:"replyCount"`
	Collapsed  bool `json:"collapsed"`
}

// State is a render-ready copy of a view
type State struct {
	ID       string            `json:"id"`
	Loaded   bool              `json:"loaded"`
	LoadedAt *time.Time        `json:"loadedAt,omitempty"`
	Listing  *models.Listing   `json:"listing"`
	Photos   *carousel.Snapshot `json:"photos"`
	Comments []CommentRow      `json:"comments"`
	Thread   []*comments.Node  `json:"thread"`
	Edit     *editor.State     `json:"edit"`
	Errors   map[string]string `json:"errors,omitempty"`
	Statuses []string          `json:"statusTags"`
}

// State renders the view.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st := State{
		ID:       v.id,
		Thread:   v.tree,
		Comments: make([]CommentRow, 0, len(v.thread)),
		Statuses: models.SuggestedStatuses,
	}
	if !v.loadedAt.IsZero() {
		at := v.loadedAt
		st.Loaded = true
		st.LoadedAt = &at
	}
	if v.listing != nil {
		l := *v.listing
		st.Listing = &l
	}
	if v.photos != nil {
		snap := v.photos.Snapshot()
		st.Photos = &snap
	}
	if v.edit != nil {
		es := v.edit.State()
		st.Edit = &es
	}
	for _, row := range comments.Flatten(v.tree, v.collapse) {
		st.Comments = append(st.Comments, CommentRow{
			Comment:    row.Node.Comment,
			Depth:      row.Depth,
			ReplyCount: row.ReplyCount,
			Collapsed:  row.Collapsed,
		})
	}
	if len(v.errs) > 0 {
		st.Errors = make(map[string]string, len(v.errs))
		for k, msg := range v.errs {
			st.Errors[k] = msg
		}
	}
	return st
}

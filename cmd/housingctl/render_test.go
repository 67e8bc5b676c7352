package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fn-M/HousingManager/internal/carousel"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/models"
)

func f(v float64) *float64 { return &v }

func TestNumber(t *testing.T) {
	assert.Equal(t, "-", number(nil, "m²"))
	assert.Equal(t, "85 m²", number(f(85), "m²"))
	assert.Equal(t, "3.5", number(f(3.5), ""))
	assert.Equal(t, "€ 425000", price(f(425000)))
	assert.Equal(t, "-", text("  "))
}

func TestRenderListings(t *testing.T) {
	when := time.Date(2026, 3, 14, 10, 30, 0, 0, time.Local)
	out := renderListings([]models.Listing{
		{ID: "42", Name: "Canal house", Location: "1011 AB Amsterdam", Price: f(500000), Status: "View booked", ViewDate: &when},
		{ID: "43", Name: "Loft"},
	})

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Canal house")
	assert.Contains(t, out, "€ 500000")
	assert.Contains(t, out, "2026-03-14 10:30")
	assert.Contains(t, out, "Loft")
}

func TestRenderDetail(t *testing.T) {
	created := time.Date(2026, 1, 2, 9, 0, 0, 0, time.Local)
	st := detail.State{
		ID:      "42",
		Listing: &models.Listing{ID: "42", Name: "Canal house", Rooms: f(4)},
		Photos: &carousel.Snapshot{Photos: []models.Picture{
			models.PrimaryPicture("https://img/first.jpg"),
			{PictureID: "p1", PictureURL: "https://img/1.jpg"},
		}},
		Comments: []detail.CommentRow{
			{Comment: models.Comment{CommentID: "c1", CreatedBy: "Ana", CreatedAt: created, Description: "Nice"}, ReplyCount: 1},
			{Comment: models.Comment{CommentID: "c2", ParentCommentID: "c1", CreatedBy: "Rui", CreatedAt: created, Description: "Agreed"}, Depth: 1},
		},
	}

	out := renderDetail(st)
	assert.Contains(t, out, "Canal house")
	assert.Contains(t, out, "https://img/first.jpg")
	assert.Contains(t, out, "Comments (2)")

	lines := strings.Split(out, "\n")
	var reply string
	for _, l := range lines {
		if strings.Contains(l, "Agreed") {
			reply = l
		}
	}
	require.NotEmpty(t, reply)
	assert.True(t, strings.HasPrefix(reply, "  "), "replies are indented")
}

func TestRenderDetailSectionErrors(t *testing.T) {
	out := renderDetail(detail.State{
		Listing: &models.Listing{ID: "1", Name: "Flat"},
		Errors:  map[string]string{"pictures": "Failed to load pictures"},
	})
	assert.Contains(t, out, "Failed to load pictures")
	assert.Contains(t, out, "No comments yet")
}

func TestParseViewDate(t *testing.T) {
	got, err := parseViewDate("2026-05-01T14:00")
	require.NoError(t, err)
	assert.Equal(t, 14, got.Hour())

	got, err = parseViewDate("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.May, got.Month())

	_, err = parseViewDate("tomorrow")
	assert.Error(t, err)
}

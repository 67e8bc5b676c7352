// Package normalize is the single decoding boundary between the ads API and
// the rest of the application. The API is inconsistent about field casing and
// envelopes; nothing past this package sees raw JSON.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// Field aliases, the upstream casing first.
var (
	listingIDKeys   = []string{"FundaId", "id"}
	linkKeys        = []string{"Url", "link"}
	nameKeys        = []string{"Address", "name"}
	locationKeys    = []string{"PostCode", "location"}
	priceKeys       = []string{"Price", "price"}
	spaceKeys       = []string{"LivingArea", "space"}
	terrainKeys     = []string{"PlotArea", "terrain"}
	roomsKeys       = []string{"Bedrooms", "rooms"}
	energyKeys      = []string{"EnergyLabel", "energyClass"}
	photoKeys       = []string{"Picture", "firstPhoto"}
	descriptionKeys = []string{"Description", "description"}
	statusKeys      = []string{"Status", "status"}
	viewDateKeys    = []string{"ViewDate", "viewDate"}

	pictureIDKeys  = []string{"PictureId", "pictureId", "id"}
	pictureURLKeys = []string{"PictureUrl", "pictureUrl", "url"}

	commentIDKeys = []string{"CommentId", "commentId", "id"}
	parentIDKeys  = []string{"ParentCommentId", "parentCommentId"}
	createdByKeys = []string{"CreatedBy", "createdBy"}
	createdAtKeys = []string{"CreatedAt", "createdAt"}
)

// Listing decodes one raw ad.
func Listing(raw json.RawMessage) (models.Listing, error) {
	rec, err := parseRecord(raw)
	if err != nil {
		return models.Listing{}, err
	}

	id, ok := rec.id(listingIDKeys...)
	if !ok {
		return models.Listing{}, &DecodeError{Index: -1, Field: "id", Reason: "missing identifier"}
	}

	l := models.Listing{
		ID:      id,
		Price:   rec.num(priceKeys...),
		Space:   rec.num(spaceKeys...),
		Terrain: rec.num(terrainKeys...),
		Rooms:   rec.num(roomsKeys...),
	}

	text := []struct {
		field string
		keys  []string
		dst   *string
	}{
		{"link", linkKeys, &l.Link},
		{"name", nameKeys, &l.Name},
		{"location", locationKeys, &l.Location},
		{"energyClass", energyKeys, &l.EnergyClass},
		{"firstPhoto", photoKeys, &l.FirstPhoto},
		{"description", descriptionKeys, &l.Description},
		{"status", statusKeys, &l.Status},
	}
	for _, f := range text {
		s, err := rec.str(f.keys...)
		if err != nil {
			return models.Listing{}, &DecodeError{Index: -1, ID: id, Field: f.field, Reason: err.Error()}
		}
		*f.dst = strings.TrimSpace(s)
	}
	l.Description = PlainText(l.Description)

	// An unreadable date is dropped rather than losing the whole listing.
	if vd, err := rec.timestamp(viewDateKeys...); err == nil {
		l.ViewDate = vd
	}

	return l, nil
}

// Listings decodes a collection response. Records that fail to decode are
// skipped and reported; only a malformed envelope fails the whole call.
func Listings(data []byte) ([]models.Listing, []*DecodeError, error) {
	items, err := UnwrapCollection(data)
	if err != nil {
		return nil, nil, err
	}

	listings := make([]models.Listing, 0, len(items))
	var skipped []*DecodeError
	for i, item := range items {
		l, err := Listing(item)
		if err != nil {
			skipped = append(skipped, atIndex(err, i))
			continue
		}
		listings = append(listings, l)
	}
	return listings, skipped, nil
}

// Picture decodes one raw picture record.
func Picture(raw json.RawMessage) (models.Picture, error) {
	rec, err := parseRecord(raw)
	if err != nil {
		return models.Picture{}, err
	}
	id, ok := rec.id(pictureIDKeys...)
	if !ok {
		return models.Picture{}, &DecodeError{Index: -1, Field: "PictureId", Reason: "missing identifier"}
	}
	url, err := rec.str(pictureURLKeys...)
	if err != nil || strings.TrimSpace(url) == "" {
		return models.Picture{}, &DecodeError{Index: -1, ID: id, Field: "PictureUrl", Reason: "missing url"}
	}

	var primary bool
	if v, ok := rec.pick("isFirstPhoto", "IsFirstPhoto"); ok {
		_ = json.Unmarshal(v, &primary)
	}

	return models.Picture{
		PictureID:  id,
		PictureURL: strings.TrimSpace(url),
		IsPrimary:  primary || id == models.PrimaryPictureID,
	}, nil
}

// Pictures decodes a picture collection response.
func Pictures(data []byte) ([]models.Picture, []*DecodeError, error) {
	items, err := UnwrapCollection(data)
	if err != nil {
		return nil, nil, err
	}

	pictures := make([]models.Picture, 0, len(items))
	var skipped []*DecodeError
	for i, item := range items {
		p, err := Picture(item)
		if err != nil {
			skipped = append(skipped, atIndex(err, i))
			continue
		}
		pictures = append(pictures, p)
	}
	return pictures, skipped, nil
}

// Comment decodes one raw comment record.
func Comment(raw json.RawMessage) (models.Comment, error) {
	rec, err := parseRecord(raw)
	if err != nil {
		return models.Comment{}, err
	}
	id, ok := rec.id(commentIDKeys...)
	if !ok {
		return models.Comment{}, &DecodeError{Index: -1, Field: "CommentId", Reason: "missing identifier"}
	}

	c := models.Comment{CommentID: id}
	c.ParentCommentID, _ = rec.id(parentIDKeys...)

	if c.CreatedBy, err = rec.str(createdByKeys...); err != nil {
		return models.Comment{}, &DecodeError{Index: -1, ID: id, Field: "CreatedBy", Reason: err.Error()}
	}
	if c.Description, err = rec.str(descriptionKeys...); err != nil {
		return models.Comment{}, &DecodeError{Index: -1, ID: id, Field: "Description", Reason: err.Error()}
	}
	if at, err := rec.timestamp(createdAtKeys...); err == nil && at != nil {
		c.CreatedAt = *at
	}
	return c, nil
}

// Comments decodes a comment collection response, preserving input order.
func Comments(data []byte) ([]models.Comment, []*DecodeError, error) {
	items, err := UnwrapCollection(data)
	if err != nil {
		return nil, nil, err
	}

	comments := make([]models.Comment, 0, len(items))
	var skipped []*DecodeError
	for i, item := range items {
		c, err := Comment(item)
		if err != nil {
			skipped = append(skipped, atIndex(err, i))
			continue
		}
		comments = append(comments, c)
	}
	return comments, skipped, nil
}

var blockBreak = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6])>`)

// PlainText strips markup from a description and collapses blank runs.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	s = blockBreak.ReplaceAllString(s, "$0\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// FormatTime renders a view date the way the ads API expects it.
func FormatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func atIndex(err error, i int) *DecodeError {
	de, ok := err.(*DecodeError)
	if !ok {
		return &DecodeError{Index: i, Reason: err.Error()}
	}
	out := *de
	out.Index = i
	return &out
}

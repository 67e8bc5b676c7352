package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapCollection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"string body", `{"statusCode":200,"body":"[{\"FundaId\":1}]"}`, 1},
		{"array body", `{"body":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"items", `{"items":[{"id":1}]}`, 1},
		{"json string", `"[{\"id\":1},{\"id\":2}]"`, 2},
		{"null", `null`, 0},
		{"empty", ``, 0},
		{"empty string body", `{"body":""}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := UnwrapCollection([]byte(tt.input))
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
			assert.NotNil(t, items)
		})
	}
}

func TestUnwrapCollectionRejectsUnknownShapes(t *testing.T) {
	for _, input := range []string{`{"data":[]}`, `42`, `{"items":"nope"}`, `{"body":"not json"}`} {
		_, err := UnwrapCollection([]byte(input))
		var de *DecodeError
		assert.ErrorAs(t, err, &de, input)
	}
}

func TestUnwrapRecord(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		raw, err := UnwrapRecord([]byte(`{"FundaId":7,"Address":"Main 1"}`), "7")
		require.NoError(t, err)
		l, err := Listing(raw)
		require.NoError(t, err)
		assert.Equal(t, "Main 1", l.Name)
	})

	t.Run("string body holding object", func(t *testing.T) {
		raw, err := UnwrapRecord([]byte(`{"body":"{\"FundaId\":7}"}`), "7")
		require.NoError(t, err)
		l, err := Listing(raw)
		require.NoError(t, err)
		assert.Equal(t, "7", l.ID)
	})

	t.Run("collection picks matching id", func(t *testing.T) {
		raw, err := UnwrapRecord([]byte(`{"body":"[{\"FundaId\":1},{\"FundaId\":2,\"Address\":\"B\"}]"}`), "2")
		require.NoError(t, err)
		l, err := Listing(raw)
		require.NoError(t, err)
		assert.Equal(t, "B", l.Name)
	})

	t.Run("collection without id is not found", func(t *testing.T) {
		_, err := UnwrapRecord([]byte(`[{"FundaId":1}]`), "9")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestListingFallbacks(t *testing.T) {
	upstream := `{
		"FundaId": 43123456,
		"Url": "https://www.funda.nl/koop/amsterdam/huis-43123456/",
		"Address": "Keizersgracht 1",
		"PostCode": "1015 CJ Amsterdam",
		"Price": 650000,
		"LivingArea": "120",
		"PlotArea": null,
		"Bedrooms": 3,
		"EnergyLabel": "A+",
		"Picture": "https://cloud.funda.nl/1/2/3.jpg",
		"Description": "<p>Lovely <b>canal</b> house</p><p>Second line</p>",
		"Status": "View",
		"ViewDate": "2024-05-01T10:00:00Z"
	}`
	l, err := Listing(json.RawMessage(upstream))
	require.NoError(t, err)

	assert.Equal(t, "43123456", l.ID)
	assert.Equal(t, "Keizersgracht 1", l.Name)
	assert.Equal(t, "1015 CJ Amsterdam", l.Location)
	assert.Equal(t, "Amsterdam", l.City())
	require.NotNil(t, l.Price)
	assert.InDelta(t, 650000, *l.Price, 0.001)
	require.NotNil(t, l.Space)
	assert.InDelta(t, 120, *l.Space, 0.001)
	assert.Nil(t, l.Terrain)
	assert.Equal(t, "A+", l.EnergyClass)
	assert.Equal(t, "Lovely canal house\nSecond line", l.Description)
	require.NotNil(t, l.ViewDate)
	assert.True(t, l.ViewDate.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	local := `{"id":"abc","link":"x","name":"n","location":"Utrecht","price":"NaN","rooms":"two"}`
	l, err = Listing(json.RawMessage(local))
	require.NoError(t, err)
	assert.Equal(t, "abc", l.ID)
	assert.Equal(t, "Utrecht", l.Location)
	assert.Nil(t, l.Price, "NaN must become nil")
	assert.Nil(t, l.Rooms)
	assert.Nil(t, l.ViewDate)
}

func TestListingRejectsMissingID(t *testing.T) {
	_, err := Listing(json.RawMessage(`{"Address":"nowhere"}`))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "id", de.Field)

	_, err = Listing(json.RawMessage(`"text"`))
	assert.ErrorAs(t, err, &de)
}

func TestListingsSkipsInvalid(t *testing.T) {
	listings, skipped, err := Listings([]byte(`[{"FundaId":1},{"Address":"no id"},{"id":"2"}]`))
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "1", listings[0].ID)
	assert.Equal(t, "2", listings[1].ID)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
}

func TestPictures(t *testing.T) {
	pics, skipped, err := Pictures([]byte(`{"body":"[{\"PictureId\":\"p1\",\"PictureUrl\":\"https://x/1.jpg\"},{\"pictureId\":2,\"pictureUrl\":\"https://x/2.jpg\"},{\"PictureId\":\"p3\"}]"}`))
	require.NoError(t, err)
	require.Len(t, pics, 2)
	assert.Equal(t, "p1", pics[0].PictureID)
	assert.Equal(t, "2", pics[1].PictureID)
	assert.Len(t, skipped, 1)
}

func TestComments(t *testing.T) {
	comments, skipped, err := Comments([]byte(`[
		{"CommentId":"1","CreatedBy":"Ana","CreatedAt":"2024-01-02T03:04:05Z","Description":"hi"},
		{"commentId":"2","parentCommentId":"1","createdBy":"Bo","description":"re"},
		{"CommentId":3,"ParentCommentId":null,"Description":"x"}
	]`))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, comments, 3)
	assert.Equal(t, "", comments[0].ParentCommentID)
	assert.Equal(t, "1", comments[1].ParentCommentID)
	assert.Equal(t, "3", comments[2].CommentID)
	assert.Equal(t, 2024, comments[0].CreatedAt.Year())
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain", PlainText("  plain "))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry"))
	assert.Equal(t, "a\nb", PlainText("a<br>b"))
}

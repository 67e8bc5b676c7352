// Package carousel keeps the ordered photo list of a listing and the index of
// the photo on display.
package carousel

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"

	"github.com/Fn-M/HousingManager/internal/models"
)

var digitRun = regexp.MustCompile(`\d+`)

// orderKey is the last three numeric runs of a photo URL. URLs with fewer
// than three runs sort as (0,0,0).
func orderKey(url string) [3]uint64 {
	var key [3]uint64
	runs := digitRun.FindAllString(url, -1)
	if len(runs) < 3 {
		return key
	}
	for i, run := range runs[len(runs)-3:] {
		n, err := strconv.ParseUint(run, 10, 64)
		if err != nil {
			// too long to fit; keep it after everything that does
			n = ^uint64(0)
		}
		key[i] = n
	}
	return key
}

func compareKeys(a, b [3]uint64) int {
	for i := range a {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Arrange orders the secondary pictures by URL and pins the primary photo in
// front. Secondary entries that repeat the primary URL are dropped. An empty
// primaryURL yields only the sorted secondaries.
func Arrange(primaryURL string, pictures []models.Picture) []models.Picture {
	out := make([]models.Picture, 0, len(pictures)+1)
	if primaryURL != "" {
		out = append(out, models.PrimaryPicture(primaryURL))
	}

	secondary := make([]models.Picture, 0, len(pictures))
	for _, p := range pictures {
		if p.IsPrimary || p.PictureID == models.PrimaryPictureID {
			continue
		}
		if primaryURL != "" && p.PictureURL == primaryURL {
			continue
		}
		secondary = append(secondary, p)
	}
	slices.SortStableFunc(secondary, func(a, b models.Picture) int {
		return compareKeys(orderKey(a.PictureURL), orderKey(b.PictureURL))
	})
	return append(out, secondary...)
}

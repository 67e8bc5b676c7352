package models

// PrimaryPictureID is the reserved id of the photo synthesized from Listing.FirstPhoto.
const PrimaryPictureID = "first"

// Picture is a photo attached to a listing
type Picture struct {
	PictureID  string `json:"pictureId"`
	PictureURL string `json:"pictureUrl"`
	IsPrimary  bool   `json:"isPrimary"`
}

// PrimaryPicture builds the non-deletable entry for a listing's first photo.
func PrimaryPicture(url string) Picture {
	return Picture{
		PictureID:  PrimaryPictureID,
		PictureURL: url,
		IsPrimary:  true,
	}
}

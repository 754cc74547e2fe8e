package storage

import (
	"io"

	"github.com/rwcarlsen/goexif/exif"
)

// GPSCoordinates are decimal degrees extracted from a photo's EXIF block.
type GPSCoordinates struct {
	Latitude  float64
	Longitude float64
}

// ExtractGPS reads the EXIF block of an uploaded image and returns its
// geotag, if present. Missing or unparsable EXIF data is not an error;
// most browser-resized uploads have it stripped.
func ExtractGPS(r io.Reader) (*GPSCoordinates, bool) {
	meta, err := exif.Decode(r)
	if err != nil {
		return nil, false
	}

	lat, lng, err := meta.LatLong()
	if err != nil {
		return nil, false
	}
	return &GPSCoordinates{Latitude: lat, Longitude: lng}, true
}

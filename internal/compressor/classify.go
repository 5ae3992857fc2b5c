package compressor

import (
	"bytes"
	"errors"
	"image"

	// Decoders registered with the image package. imaging pulls in
	// gif, jpeg, png, bmp and tiff; webp uploads are accepted as well.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Classify sniffs the format of data and maps it to a media kind.
// GIF sources are animated, every other decodable format is static.
func Classify(data []byte) (MediaKind, string, error) {
	if len(data) == 0 {
		return KindUnknown, "", decodeErr("classify", errors.New("empty input"))
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return KindUnknown, "", decodeErr("classify", err)
	}
	if format == "gif" {
		return KindAnimated, format, nil
	}
	return KindStatic, format, nil
}

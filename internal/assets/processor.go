package assets

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	backdropBlurSigma = 20
	stillWidth        = 500
	stillHeight       = 281
	jpegQuality       = 90
)

// ImageProcessor decodes, transforms and re-encodes cached images
type ImageProcessor struct{}

// NewImageProcessor creates a new image processor instance
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// Decode decodes jpeg, png, gif or webp data
func (ip *ImageProcessor) Decode(data []byte) (image.Image, error) {
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode webp: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG encodes the image as jpeg
func (ip *ImageProcessor) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize re-encodes any supported image as jpeg
func (ip *ImageProcessor) Normalize(data []byte) ([]byte, error) {
	img, err := ip.Decode(data)
	if err != nil {
		return nil, err
	}
	return ip.EncodeJPEG(img)
}

// Blur returns the backdrop variant of an image
func (ip *ImageProcessor) Blur(data []byte) ([]byte, error) {
	img, err := ip.Decode(data)
	if err != nil {
		return nil, err
	}
	return ip.EncodeJPEG(imaging.Blur(img, backdropBlurSigma))
}

// ResizeStill scales an episode still to the fixed still size
func (ip *ImageProcessor) ResizeStill(data []byte) ([]byte, error) {
	img, err := ip.Decode(data)
	if err != nil {
		return nil, err
	}
	return ip.EncodeJPEG(imaging.Resize(img, stillWidth, stillHeight, imaging.Lanczos))
}

// BadgeLuminance returns the mean relative luminance, from 0 to 1, of the
// top right corner of a poster where the watched badge is drawn
func (ip *ImageProcessor) BadgeLuminance(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	region := image.Rect(b.Min.X+b.Dx()*3/4, b.Min.Y, b.Max.X, b.Min.Y+max(b.Dy()/8, 1))
	corner := imaging.Crop(img, region)

	var sum float64
	pixels := 0
	for i := 0; i+3 < len(corner.Pix); i += 4 {
		r, g, bl := float64(corner.Pix[i]), float64(corner.Pix[i+1]), float64(corner.Pix[i+2])
		sum += (0.2126*r + 0.7152*g + 0.0722*bl) / 255
		pixels++
	}
	if pixels == 0 {
		return 0
	}
	return sum / float64(pixels)
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

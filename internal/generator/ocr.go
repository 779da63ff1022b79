package generator

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"learningfun/internal/llm"
	"learningfun/internal/validation"
)

// MaxImageBytes bounds uploaded worksheet photos.
const MaxImageBytes = 8 << 20

// Extractor reads text from an uploaded image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)
}

// SampleTexts are returned by SampleExtractor.
var SampleTexts = []string{
	"The cat sat on the mat. The dog ran in the park. Birds fly high in the sky. Fish swim in the water.",
	"2 + 3 = 5. 4 + 6 = 10. 7 + 2 = 9. 5 + 5 = 10. 8 + 1 = 9.",
	"Animals live in different places. Lions live in Africa. Penguins live in Antarctica. Bears live in forests. Fish live in oceans.",
	"Red and blue make purple. Yellow and blue make green. Red and yellow make orange. White and black make gray.",
	"Plants need water and sunlight to grow. Trees give us oxygen. Flowers attract bees and butterflies. Fruits grow on trees.",
	"Monday Tuesday Wednesday Thursday Friday Saturday Sunday. January February March April May June July August September October November December.",
}

// SampleExtractor does no recognition. It returns one of SampleTexts chosen
// by the image's hash, so the same upload always yields the same text.
type SampleExtractor struct{}

func (SampleExtractor) Extract(_ context.Context, image []byte, mimeType string) (string, error) {
	if err := checkImage(image, mimeType); err != nil {
		return "", err
	}
	sum := sha256.Sum256(image)
	return SampleTexts[binary.BigEndian.Uint64(sum[:8])%uint64(len(SampleTexts))], nil
}

// VisionExtractor transcribes images with a vision model.
type VisionExtractor struct {
	reader llm.ImageReader
}

// NewVisionExtractor wraps an image reader.
func NewVisionExtractor(r llm.ImageReader) *VisionExtractor {
	return &VisionExtractor{reader: r}
}

func (v *VisionExtractor) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	if err := checkImage(image, mimeType); err != nil {
		return "", err
	}
	return v.reader.ReadImage(ctx, image, mimeType)
}

func checkImage(image []byte, mimeType string) error {
	if len(image) == 0 {
		return validation.ValidationError{Field: "image", Message: "image is empty"}
	}
	if len(image) > MaxImageBytes {
		return validation.ValidationError{Field: "image", Message: "image is larger than 8 MB"}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return validation.ValidationError{Field: "image", Message: "upload must be an image"}
	}
	return nil
}

package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Linked image files
// ---------------------------------------------------------------------------

// ImageMagic identifies a linked Feeny image file.
var ImageMagic = [4]byte{'F', 'N', 'Y', 'I'}

// ImageVersion is bumped whenever Instr, Class or Image change shape.
const ImageVersion uint32 = 1

const imageHeaderSize = 8

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected FNYI")
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrCorruptImage    = errors.New("corrupt image data")
)

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// IsImage reports whether data starts with the image magic number.
func IsImage(data []byte) bool {
	return len(data) >= len(ImageMagic) && bytes.Equal(data[:len(ImageMagic)], ImageMagic[:])
}

// MarshalImage serializes img as magic, little-endian version, then a
// canonical CBOR body. Equal images always encode to equal bytes.
func MarshalImage(img *Image) ([]byte, error) {
	body, err := imageEncMode.Marshal(img)
	if err != nil {
		return nil, errors.Wrap(err, "vm: marshal image")
	}
	out := make([]byte, imageHeaderSize, imageHeaderSize+len(body))
	copy(out, ImageMagic[:])
	binary.LittleEndian.PutUint32(out[4:], ImageVersion)
	return append(out, body...), nil
}

// UnmarshalImage decodes and validates an image produced by MarshalImage.
func UnmarshalImage(data []byte) (*Image, error) {
	if !IsImage(data) {
		return nil, ErrInvalidMagic
	}
	if len(data) < imageHeaderSize {
		return nil, errors.Wrap(ErrCorruptImage, "truncated header")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != ImageVersion {
		return nil, errors.Wrapf(ErrVersionMismatch, "got %d, want %d", v, ImageVersion)
	}
	var img Image
	if err := cbor.Unmarshal(data[imageHeaderSize:], &img); err != nil {
		return nil, errors.Wrap(ErrCorruptImage, err.Error())
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &img, nil
}

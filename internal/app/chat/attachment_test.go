package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geochat/internal/pkg/errs"
)

func TestValidateFileSize(t *testing.T) {
	tests := []struct {
		name         string
		size         int64
		expectedCode int
	}{
		{"one byte", 1, 0},
		{"at limit", MaxAttachmentSize, 0},
		{"zero", 0, errs.ErrInvalidParams},
		{"negative", -1, errs.ErrInvalidParams},
		{"over limit", MaxAttachmentSize + 1, errs.ErrFileSizeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customErr := ValidateFileSize(tt.size)
			if tt.expectedCode == 0 {
				assert.Nil(t, customErr)
			} else {
				require.NotNil(t, customErr)
				assert.Equal(t, tt.expectedCode, customErr.Code)
			}
		})
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		valid    bool
	}{
		{"jpeg", "photo.jpg", "image/jpeg", true},
		{"jpeg long extension", "photo.jpeg", "image/jpeg", true},
		{"png", "shot.png", "image/png", true},
		{"uppercase mime", "shot.png", "IMAGE/PNG", true},
		{"webp", "sticker.webp", "image/webp", true},
		{"disallowed mime", "doc.pdf", "application/pdf", false},
		{"extension mime mismatch", "photo.png", "image/jpeg", false},
		{"no extension", "photo", "image/jpeg", false},
		{"unknown extension", "photo.bmp", "image/jpeg", false},
		{"empty mime", "photo.jpg", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customErr := ValidateFileType(tt.fileName, tt.mimeType)
			if tt.valid {
				assert.Nil(t, customErr)
			} else {
				assert.NotNil(t, customErr)
			}
		})
	}
}

func TestValidateAttachmentKeys(t *testing.T) {
	roomID := "room1"

	assert.Nil(t, ValidateAttachmentKeys(roomID, nil))
	assert.Nil(t, ValidateAttachmentKeys(roomID, []string{"room1/a.jpg", "room1/b.png"}))

	assert.NotNil(t, ValidateAttachmentKeys(roomID, []string{""}),
		"empty key rejected")
	assert.NotNil(t, ValidateAttachmentKeys(roomID, []string{"room2/a.jpg"}),
		"key outside the room's prefix rejected")
	assert.NotNil(t, ValidateAttachmentKeys(roomID, []string{
		"room1/a.jpg", "room1/b.jpg", "room1/c.jpg", "room1/d.jpg", "room1/e.jpg",
	}), "attachment count bounded")
}

package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/novelbell/internal/model"
)

func TestValidateOptionalLink(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"/announcements/42", false},
		{"https://novels.example.com/news", false},
		{"http://localhost:3000/x", false},
		{"ftp://example.com", true},
		{"not a link", true},
		{"https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateOptionalLink(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Title")
	assert.EqualError(t, v("  "), "Title is required")
	assert.NoError(t, v("Maintenance"))
}

func TestAnnouncementTrimsFields(t *testing.T) {
	m := New(80, 24)
	m.Start()
	require.NotNil(t, m.form)

	m.fb.title = "  Maintenance "
	m.fb.message = "Down at 02:00 UTC\n"
	m.fb.link = " /news/1 "

	assert.Equal(t, model.Announcement{
		Title:   "Maintenance",
		Message: "Down at 02:00 UTC",
		Link:    "/news/1",
	}, m.announcement())
}

func TestStartResetsFields(t *testing.T) {
	m := New(80, 24)
	m.fb.title = "old"
	m.fb.link = "/old"
	m.Start()

	assert.Empty(t, m.fb.title)
	assert.Empty(t, m.fb.link)
	assert.Contains(t, m.View(), "New Announcement")
}

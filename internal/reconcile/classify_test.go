package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"REPORT.PDF", "application/pdf"},
		{"photo.jpeg", "image/jpeg"},
		{"photo.JPG", "image/jpeg"},
		{"icon.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"notes.txt", "text/plain"},
		{"letter.doc", "application/msword"},
		{"letter.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"deck.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		{"backup.tar.zip", "application/zip"},
		{"clip.mp4", "video/mp4"},
		{"song.mp3", "audio/mpeg"},
		{"archive.tar.gz", reconcile.DefaultContentType},
		{"Makefile", reconcile.DefaultContentType},
		{"trailing.", reconcile.DefaultContentType},
		{".bashrc", reconcile.DefaultContentType},
		{"", reconcile.DefaultContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcile.Classify(tt.name))
		})
	}
}

func TestBytesToMB(t *testing.T) {
	assert.Equal(t, 1.0, reconcile.BytesToMB(1048576))
	assert.Equal(t, 0.5, reconcile.BytesToMB(524288))
	assert.Equal(t, 0.0, reconcile.BytesToMB(0))
	assert.InDelta(t, 1.953125, reconcile.BytesToMB(2048000), 1e-9)
}

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitResourcePath(t *testing.T) {
	tests := []struct {
		path     string
		prefix   string
		wantID   string
		wantRest string
	}{
		{"/tasks/abc", "/tasks/", "abc", ""},
		{"/tasks/abc/", "/tasks/", "abc", ""},
		{"/tasks/abc/$execute", "/tasks/", "abc", "$execute"},
		{"/jobs/xyz/$stream", "/jobs/", "xyz", "$stream"},
		{"/tasks/", "/tasks/", "", ""},
		{"/artifacts/id/extra/deep", "/artifacts/", "id", "extra/deep"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, rest := splitResourcePath(tt.path, tt.prefix)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

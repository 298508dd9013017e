package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr error
	}{
		{"local", Request{FilePath: "a.png"}, nil},
		{"remote", Request{FileURL: "https://example.com/a.png"}, nil},
		{"neither", Request{FileName: "a.png"}, ErrNoSource},
		{"both", Request{FilePath: "a.png", FileURL: "https://example.com/a.png"}, ErrBothSources},
		{"relative url", Request{FileURL: "example.com/a.png"}, ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestSourceAndName(t *testing.T) {
	local := Request{FilePath: "/data/img/cat.png"}
	assert.Equal(t, "/data/img/cat.png", local.Source())
	assert.Equal(t, "cat.png", local.Name())
	assert.False(t, local.IsRemote())

	remote := Request{FileURL: "https://cdn.example/media/dog.jpg?v=2"}
	assert.Equal(t, "https://cdn.example/media/dog.jpg?v=2", remote.Source())
	assert.Equal(t, "dog.jpg", remote.Name())
	assert.True(t, remote.IsRemote())

	named := Request{FileURL: "https://cdn.example/", FileName: "index.html"}
	assert.Equal(t, "index.html", named.Name())

	assert.Equal(t, "", Request{FileURL: "https://cdn.example/"}.Name())
}

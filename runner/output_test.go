package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageOutput(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantPath string
		wantSeed string
		wantErr  bool
	}{
		{name: "plain", raw: "/out/fox1.png:991122", wantPath: "/out/fox1.png", wantSeed: "991122"},
		{name: "path with colons", raw: `C:\storage\images\fox.png:42`, wantPath: `C:\storage\images\fox.png`, wantSeed: "42"},
		{name: "surrounding whitespace", raw: "  /out/a.png:7\n", wantPath: "/out/a.png", wantSeed: "7"},
		{name: "no colon", raw: "garbage-no-colon", wantErr: true},
		{name: "blank seed", raw: "/out/a.png:   ", wantErr: true},
		{name: "empty path", raw: ":991122", wantErr: true},
		{name: "empty output", raw: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path, seed, err := ParseImageOutput(tc.raw)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantPath, path)
			assert.Equal(t, tc.wantSeed, seed)
		})
	}
}

func TestParsePathOutput(t *testing.T) {
	path, err := ParsePathOutput(" /out/video.mp4\n")
	require.NoError(t, err)
	assert.Equal(t, "/out/video.mp4", path)

	_, err = ParsePathOutput("   ")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

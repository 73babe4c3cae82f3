package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/treesync-io/treesync/pkg/errors"
)

func TestToRemote(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		remote string
		path   string
		exp    string
		expErr error
	}{
		{
			name:   "File",
			local:  "/home/user/data/",
			remote: "/backup/",
			path:   "/home/user/data/a.txt",
			exp:    "/backup/a.txt",
		},
		{
			name:   "NestedFile",
			local:  "/home/user/data/",
			remote: "/backup/",
			path:   "/home/user/data/dir/b.txt",
			exp:    "/backup/dir/b.txt",
		},
		{
			name:   "UnnormalizedRoots",
			local:  "/home/user/data",
			remote: "/backup",
			path:   "/home/user/data/a.txt",
			exp:    "/backup/a.txt",
		},
		{
			name:   "RootItself",
			local:  "/home/user/data/",
			remote: "/backup/",
			path:   "/home/user/data/",
			exp:    "/backup/",
		},
		{
			name:   "OutsideRoot",
			local:  "/home/user/data/",
			remote: "/backup/",
			path:   "/etc/passwd",
			expErr: errors.BadMapping{Path: "/etc/passwd", Root: "/home/user/data/"},
		},
		{
			name:   "SiblingPrefix",
			local:  "/data/",
			remote: "/backup/",
			path:   "/database/a.txt",
			expErr: errors.BadMapping{Path: "/database/a.txt", Root: "/data/"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mapper := New(test.local, test.remote)
			actual, err := mapper.ToRemote(test.path)
			if test.expErr != nil {
				assert.Equal(t, test.expErr, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.exp, actual)
		})
	}
}

func TestToLocal(t *testing.T) {
	mapper := New("/home/user/data", "/backup")

	local, err := mapper.ToLocal("/backup/dir/b.txt")
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/data/dir/b.txt", local)

	_, err = mapper.ToLocal("/elsewhere/b.txt")
	assert.Equal(t, errors.BadMapping{Path: "/elsewhere/b.txt", Root: "/backup/"}, err)
}

// Mapping one way and then back should always be the identity for paths under
// the corresponding root.
func TestRoundTrip(t *testing.T) {
	mapper := New("/home/user/data", "/backup")

	paths := []string{
		"/home/user/data/a.txt",
		"/home/user/data/dir/b.txt",
		"/home/user/data/dir/sub/c.txt",
		"/home/user/data/weird name with spaces",
	}
	for _, path := range paths {
		remote, err := mapper.ToRemote(path)
		assert.NoError(t, err)

		local, err := mapper.ToLocal(remote)
		assert.NoError(t, err)
		assert.Equal(t, path, local)
	}
}

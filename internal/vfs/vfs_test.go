package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestFS(t *testing.T) *FS {
	t.Helper()
	f := New()
	require.NoError(t, f.MkdirAll("/missions/1"))
	require.NoError(t, f.WriteFile("/missions/1/brief.txt", File{Content: []byte("read me")}))
	require.NoError(t, f.WriteFile("/missions/1/evidence.pcap", File{Content: []byte{0xd4, 0xc3, 0xb2, 0xa1}}))
	require.NoError(t, f.WriteFile("/missions/1/.notes", File{Content: []byte("secret"), Hidden: true}))
	require.NoError(t, f.WriteFile("/home/hero/readme.txt", File{Content: []byte("welcome")}))
	require.NoError(t, f.WriteFile("/home/hero/dump.bin", File{
		Content:      []byte("locked"),
		RequiredTool: "wireshark",
	}))
	return f
}

func TestList_StableOrderDirsFirst(t *testing.T) {
	f := buildTestFS(t)

	entries, err := f.List("/missions/1", "/", false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "brief.txt", entries[0].Name)
	assert.Equal(t, "evidence.pcap", entries[1].Name)

	root, err := f.List("/", "/", false)
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, "home", root[0].Name)
	assert.True(t, root[0].IsDir)
	assert.Equal(t, "missions", root[1].Name)
}

func TestList_HiddenEntries(t *testing.T) {
	f := buildTestFS(t)

	visible, err := f.List("/missions/1", "/", false)
	require.NoError(t, err)
	for _, e := range visible {
		assert.NotEqual(t, ".notes", e.Name)
	}

	all, err := f.List("/missions/1", "/", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ".notes", all[0].Name)
	assert.True(t, all[0].Hidden)
}

func TestResolve_Deterministic(t *testing.T) {
	f := buildTestFS(t)

	tests := []struct {
		name    string
		path    string
		cwd     string
		wantAbs string
		wantDir bool
		wantErr error
	}{
		{"absolute file", "/missions/1/brief.txt", "/", "/missions/1/brief.txt", false, nil},
		{"absolute dir", "/missions/1", "/", "/missions/1", true, nil},
		{"relative from cwd", "brief.txt", "/missions/1", "/missions/1/brief.txt", false, nil},
		{"dot", ".", "/missions/1", "/missions/1", true, nil},
		{"dotdot", "..", "/missions/1", "/missions", true, nil},
		{"dotdot past root", "../../../..", "/missions", "/", true, nil},
		{"mixed", "../1/./evidence.pcap", "/missions/1", "/missions/1/evidence.pcap", false, nil},
		{"missing", "/nope", "/", "", false, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs1, isDir1, err1 := f.Resolve(tt.path, tt.cwd)
			abs2, isDir2, err2 := f.Resolve(tt.path, tt.cwd)

			// same inputs, same result
			assert.Equal(t, abs1, abs2)
			assert.Equal(t, isDir1, isDir2)
			assert.Equal(t, err1 == nil, err2 == nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err1, tt.wantErr)
				return
			}
			require.NoError(t, err1)
			assert.Equal(t, tt.wantAbs, abs1)
			assert.Equal(t, tt.wantDir, isDir1)
		})
	}
}

func TestRead(t *testing.T) {
	f := buildTestFS(t)

	content, err := f.Read("/missions/1/brief.txt", "/", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("read me"), content)

	_, err = f.Read("/missions/1", "/", nil)
	assert.ErrorIs(t, err, ErrIsADirectory)

	_, err = f.Read("/missions/1/absent.txt", "/", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRead_ToolLocked(t *testing.T) {
	f := buildTestFS(t)

	_, err := f.Read("/home/hero/dump.bin", "/", nil)
	assert.ErrorIs(t, err, ErrToolLocked)

	_, err = f.Read("/home/hero/dump.bin", "/", []string{"nmap"})
	assert.ErrorIs(t, err, ErrToolLocked)

	content, err := f.Read("/home/hero/dump.bin", "/", []string{"nmap", "wireshark"})
	require.NoError(t, err)
	assert.Equal(t, []byte("locked"), content)
}

func TestChangeDir(t *testing.T) {
	f := buildTestFS(t)

	cwd, err := f.ChangeDir("missions/1", "/")
	require.NoError(t, err)
	assert.Equal(t, "/missions/1", cwd)

	cwd, err = f.ChangeDir("..", cwd)
	require.NoError(t, err)
	assert.Equal(t, "/missions", cwd)

	_, err = f.ChangeDir("brief.txt", "/missions/1")
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = f.ChangeDir("/void", "/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteFile_Conflicts(t *testing.T) {
	f := buildTestFS(t)

	// cannot write a file over an existing directory
	err := f.WriteFile("/missions/1", File{Content: []byte("x")})
	assert.ErrorIs(t, err, ErrIsADirectory)

	// cannot create a directory over an existing file
	err = f.MkdirAll("/missions/1/brief.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)

	// overwrite of an existing file is allowed (download refresh)
	require.NoError(t, f.WriteFile("/missions/1/brief.txt", File{Content: []byte("v2")}))
	content, err := f.Read("/missions/1/brief.txt", "/", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)
}

func TestStat(t *testing.T) {
	f := buildTestFS(t)

	file, err := f.Stat("evidence.pcap", "/missions/1")
	require.NoError(t, err)
	assert.Equal(t, "evidence.pcap", file.Name)
	assert.Len(t, file.Content, 4)

	_, err = f.Stat("/missions", "/")
	assert.ErrorIs(t, err, ErrNotFound)
}

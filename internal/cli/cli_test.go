package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goProgIndex/internal/codec/record"
	"github.com/LeJamon/goProgIndex/internal/pager"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		codecBase64 = false
		codecHeader = 1
		configFile = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	out, err := run(t, "encode", "ann", "hi")
	require.NoError(t, err)
	assert.Equal(t, "0103000000616e6e020000006869\n", out)

	out, err = run(t, "decode", "0103000000616e6e020000006869")
	require.NoError(t, err)
	var rec record.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, record.Record{Name: "ann", Message: "hi"}, rec)

	out, err = run(t, "encode", "--header", "0", "--base64", "a", "")
	require.NoError(t, err)
	assert.Equal(t, "AQAAAGEAAAAA\n", out)

	_, err = run(t, "decode", "01ff")
	assert.Error(t, err)
}

func TestPageCommand(t *testing.T) {
	dir := t.TempDir()
	fixture := `accounts:
  - name: carol
    message: three
  - name: ann
    message: one
  - name: bob
    message: two
`
	fixturePath := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(fixturePath, []byte(fixture), 0644))

	conf := `[ledger]
backend = "memory"
fixture_file = "` + filepath.ToSlash(fixturePath) + `"

[snapshot]
enabled = true
backend = "leveldb"
path = "` + filepath.ToSlash(filepath.Join(dir, "snap")) + `"

[log]
level = "error"
`
	confPath := filepath.Join(dir, "progindex.toml")
	require.NoError(t, os.WriteFile(confPath, []byte(conf), 0644))

	out, err := run(t, "--conf", confPath, "page", "--size", "2")
	require.NoError(t, err)

	var page pager.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Records, 2)
	assert.Equal(t, "ann", page.Records[0].Name)
	assert.Equal(t, "bob", page.Records[1].Name)
	assert.True(t, page.HasNext)
	assert.Equal(t, 3, page.AccountCount)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "progindexd version "))
}

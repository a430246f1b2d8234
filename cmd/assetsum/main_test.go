package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return out.String(), err
}

func TestSumStrings(t *testing.T) {
	out, err := run(t, "", "sum", "-s", "1", "-s", "123456789")
	require.NoError(t, err)
	assert.Equal(t, "83dcefb7  \"1\"\ncbf43926  \"123456789\"\n", out)
}

func TestSumExplicitLength(t *testing.T) {
	out, err := run(t, "", "sum", "-s", "11", "--length", "1")
	require.NoError(t, err)
	assert.Equal(t, "83dcefb7  \"11\"\n", out)

	_, err = run(t, "", "sum", "-s", "11", "--length", "3")
	assert.Error(t, err)

	_, err = run(t, "", "sum", "-s", "11", "--length", "-1")
	assert.Error(t, err)
}

func TestSumStdin(t *testing.T) {
	out, err := run(t, "123456789", "sum")
	require.NoError(t, err)
	assert.Equal(t, "cbf43926  -\n", out)

	out, err = run(t, "", "sum")
	require.NoError(t, err)
	assert.Equal(t, "00000000  -\n", out)
}

func TestSumFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.txt")
	require.NoError(t, os.WriteFile(path, []byte("11"), 0644))

	out, err := run(t, "", "sum", path)
	require.NoError(t, err)
	assert.Equal(t, "d65a1577  "+path+"\n", out)

	out, err = run(t, "", "sum", "-n", "1", path)
	require.NoError(t, err)
	assert.Equal(t, "83dcefb7  "+path+"\n", out)

	_, err = run(t, "", "sum", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestGenTableMatchesCommitted(t *testing.T) {
	out, err := run(t, "", "gen", "table", "--build", "!crcbootstrap")
	require.NoError(t, err)

	committed, err := os.ReadFile(filepath.Join("..", "..", "internal", "crc", "table_gen.go"))
	require.NoError(t, err)
	assert.Equal(t, string(committed), out)
}

func TestGenIDsToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ids.yaml")
	output := filepath.Join(dir, "ids_gen.go")
	require.NoError(t, os.WriteFile(input, []byte("package: ids\nids:\n  - name: One\n    path: \"1\"\n"), 0644))

	_, err := run(t, "", "gen", "ids", "-i", input, "-o", output)
	require.NoError(t, err)

	src, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(src), "One ID = 0x83dcefb7 // 1")
}

func TestScanAndVerify(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), []byte("1"), 0644))

	cfgPath := filepath.Join(dir, "assetsum.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  data_dir: "+filepath.Join(dir, "data")+"\njournal:\n  fsync: false\n"), 0644))

	exec := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := exec("scan", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "1 added")

	out, err = exec("verify", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "1 verified")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), []byte("2"), 0644))
	out, err = exec("verify", "--root", root)
	assert.Error(t, err)
	assert.Contains(t, out, "MISMATCH  a.bin")

	out, err = exec("rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "1 assets")
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
listen: ":9090"
accounts:
  - id: u1
    tier: pro
projects:
  - id: p1
    name: My Proj
    ownerId: u1
    endpoints:
      - id: e1
        path: /users
        method: POST
        fields:
          - name: name
            type: string
            required: true
      - id: e2
        path: /users
        method: GET
        dataSource: e1
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFileYAML(t *testing.T) {
	cfg, err := LoadFromFile(writeTemp(t, "cfg.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Projects, 1)
	assert.Len(t, cfg.Projects[0].Endpoints, 2)
}

func TestLoadFromFileJSON(t *testing.T) {
	content := `{
		"accounts": [{"id": "u1", "tier": "free"}],
		"projects": [{
			"id": "p1", "name": "demo", "ownerId": "u1",
			"endpoints": [{"id": "e1", "path": "/ping", "method": "GET", "response": "{}"}]
		}]
	}`
	cfg, err := LoadFromFile(writeTemp(t, "cfg.json", content))
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadFromFileEmpty(t *testing.T) {
	_, err := LoadFromFile(writeTemp(t, "empty.yaml", ""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadFromFileBadYAML(t *testing.T) {
	_, err := LoadFromFile(writeTemp(t, "bad.yaml", "listen: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadFromFileBadJSON(t *testing.T) {
	_, err := LoadFromFile(writeTemp(t, "bad.json", "{oops"))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestValidateUnknownOwner(t *testing.T) {
	content := `
accounts:
  - id: u1
projects:
  - id: p1
    name: demo
    ownerId: ghost
    endpoints:
      - id: e1
        path: /x
        method: GET
`
	_, err := LoadFromFile(writeTemp(t, "cfg.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestValidateDuplicateSlug(t *testing.T) {
	content := `
accounts:
  - id: u1
projects:
  - id: p1
    name: "My Proj"
    ownerId: u1
    endpoints: [{id: e1, path: /x, method: GET}]
  - id: p2
    name: "my proj"
    ownerId: u1
    endpoints: [{id: e2, path: /x, method: GET}]
`
	_, err := LoadFromFile(writeTemp(t, "cfg.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug")
}

func TestValidateFileFieldsNeedS3(t *testing.T) {
	content := `
accounts:
  - id: u1
projects:
  - id: p1
    name: demo
    ownerId: u1
    endpoints:
      - id: e1
        path: /upload
        method: POST
        fields:
          - name: avatar
            type: image
`
	_, err := LoadFromFile(writeTemp(t, "cfg.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3")

	withS3 := content + `
s3:
  bucket: uploads
  region: us-east-1
`
	_, err = LoadFromFile(writeTemp(t, "cfg2.yaml", withS3))
	assert.NoError(t, err)
}

func TestValidateDanglingDataSource(t *testing.T) {
	content := `
accounts:
  - id: u1
projects:
  - id: p1
    name: demo
    ownerId: u1
    endpoints:
      - id: e2
        path: /view
        method: GET
        dataSource: missing
`
	_, err := LoadFromFile(writeTemp(t, "cfg.yaml", content))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidYAML))
}

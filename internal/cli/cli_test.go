package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
	"github.com/vcabral19/json-placeholder-elt/internal/tracker"
)

const testUser = `{"id":1,"name":"Leanne Graham","username":"Bret","email":"Sincere@april.biz",` +
	`"address":{"street":"Kulas Light","suite":"Apt. 556","city":"Gwenborough","zipcode":"92998-3874",` +
	`"geo":{"lat":"-37.3159","lng":"81.1496"}},"phone":"1-770-736-8031 x56442","website":"hildegard.org",` +
	`"company":{"name":"Romaguera-Crona","catchPhrase":"Multi-layered client-server neural-net","bs":"harness real-time e-markets"}}`

type testEnv struct {
	dir          string
	rawDir       string
	processedDir string
	configPath   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		dir:          dir,
		rawDir:       filepath.Join(dir, "raw"),
		processedDir: filepath.Join(dir, "processed"),
		configPath:   filepath.Join(dir, "config.yaml"),
	}

	staging := filepath.Join(dir, "users.jsonl")
	require.NoError(t, os.WriteFile(staging, []byte(testUser+"\n"), 0o644))

	cfg := fmt.Sprintf(`source:
  staging_file: %q
paths:
  raw_dir: %q
  processed_dir: %q
ingest:
  persist_db: false
database:
  driver: sqlite
  path: %q
server:
  enabled: false
`, staging, env.rawDir, env.processedDir, filepath.Join(dir, "etl.db"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o644))

	return env
}

func (e *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := BuildCLI()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", e.configPath))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) outstanding(t *testing.T) []tracker.Outstanding {
	t.Helper()

	out, err := e.execute(t, "outstanding", "--json")
	require.NoError(t, err)

	var batches []tracker.Outstanding
	require.NoError(t, json.Unmarshal([]byte(out), &batches))
	return batches
}

func TestOutstandingCommand(t *testing.T) {
	env := newTestEnv(t)

	assert.Empty(t, env.outstanding(t))

	const ts = int64(1234567890)
	_, err := rawstore.New(env.rawDir).Save(context.Background(), ts, []json.RawMessage{json.RawMessage(testUser)})
	require.NoError(t, err)

	batches := env.outstanding(t)
	require.Len(t, batches, 1)
	assert.Equal(t, ts, batches[0].Timestamp)
	assert.Equal(t, "2009-02-13/23", batches[0].Partition)
	assert.ElementsMatch(t, []domain.Kind{domain.KindCompany, domain.KindUser}, batches[0].Missing)

	out, err := env.execute(t, "outstanding")
	require.NoError(t, err)
	assert.Contains(t, out, "TIMESTAMP")
	assert.Contains(t, out, "1234567890")
}

func TestIngestThenTransformOnce(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "ingest", "--once")
	require.NoError(t, err)

	batches := env.outstanding(t)
	require.Len(t, batches, 1)

	_, err = env.execute(t, "transform", "--once")
	require.NoError(t, err)
	assert.Empty(t, env.outstanding(t))

	b := batches[0]
	userCSV := filepath.Join(env.processedDir, "user", b.Partition, fmt.Sprintf("processed_user_%d.csv", b.Timestamp))
	data, err := os.ReadFile(userCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bret")
	assert.Contains(t, string(data), "388729825210280104")
}

func TestUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute(t, "--mode", "loader")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestMissingConfigFile(t *testing.T) {
	cmd := BuildCLI()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"outstanding", "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

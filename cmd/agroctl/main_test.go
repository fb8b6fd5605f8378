package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/agroyield-backend/internal/importer"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AGRO_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("AGRO_CONFIG_PATH", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MEMORY_FLAVOR", "relational")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportCommandMemory(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "crop_yield.csv")
	csv := "Crop,Crop_Year,Season,State,Area,Production,Annual_Rainfall,Fertilizer,Pesticide,Yield\n" +
		"Rice,2000,Kharif,Assam,10,20,1500,5,1,2\n" +
		"Rice,2000,Kharif,Assam,10,20,1500,5,1,2\n" +
		"Rice,2001,Kharif,,10,20,1500,5,1,2\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	out, err := execute(t, "import", "--backend", "memory", "--file", path, "--workers", "2")
	require.NoError(t, err)

	var sum importer.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "memory", sum.Backend)
	assert.Equal(t, int64(1), sum.Created)
	assert.Equal(t, int64(1), sum.Unchanged)
	assert.Equal(t, int64(1), sum.Skipped)
}

func TestImportCommandFailedRowsExitCode(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("State,Crop,Season,Crop_Year\nGoa,Rice,Kharif,1700\n"), 0o600))

	_, err := execute(t, "import", "--backend", "memory", "--file", path)
	require.Error(t, err)
	assert.Equal(t, exitUnhealthy, exitCode(err))
}

func TestImportCommandRequiresFile(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "import", "--backend", "memory")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestVerifyCommandMemory(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "verify", "--backend", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, `"backend": "memory"`)
}

func TestVerifyCommandUnknownBackend(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "verify", "--backend", "cassandra")
	require.Error(t, err)
}

func TestPredictCommandPrintsFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/postgres/records/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"record_id":"1","state_name":"Assam","crop_name":"Rice","season_name":"Kharif","crop_year":2004,"area":100,"annual_rainfall":2500}`))
	}))
	defer srv.Close()

	out, err := execute(t, "predict", "--url", srv.URL, "--backend", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, `"Decade": 2000`)
	assert.Contains(t, out, `"Rainfall_Category": "Very High"`)
}

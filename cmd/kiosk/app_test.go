package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kiosk/internal/config"
	"github.com/aretw0/kiosk/internal/logging"
	redisAdapter "github.com/aretw0/kiosk/pkg/adapters/redis"
	"github.com/aretw0/kiosk/pkg/audit"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func post(t *testing.T, h http.Handler, path string, body any) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, &buf))
	require.Less(t, w.Code, 300, w.Body.String())

	out := map[string]any{}
	if w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return out
}

func TestNewApp_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(t), logging.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)
	assert.Equal(t, "memory", a.backend)

	h := a.Handler()
	id := post(t, h, "/api/session/start", nil)["session_id"].(string)
	for _, trig := range []string{"select_reception", "start_reception", "patient_identified", "no_appointment"} {
		post(t, h, "/api/session/"+id+"/transition", map[string]any{"trigger": trig})
	}
	post(t, h, "/api/session/"+id+"/transition", map[string]any{
		"trigger": "symptoms_selected",
		"context": map[string]any{"symptoms": []string{"fever", "cough"}},
	})
	post(t, h, "/api/session/"+id+"/transition", map[string]any{"trigger": "department_selected"})
	res := post(t, h, "/api/session/"+id+"/transition", map[string]any{"trigger": "confirm_reception"})

	ticket := res["ticket"].(map[string]any)
	assert.Equal(t, "internal_medicine", ticket["department"])
	assert.EqualValues(t, 1, ticket["queue_number"])

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `kiosk_tickets_issued_total{department="internal_medicine"} 1`)
}

func TestNewApp_RedisEncryptedAudit(t *testing.T) {
	mr := miniredis.RunT(t)
	key := bytes.Repeat([]byte{7}, 32)

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.AuditEncryptionKey = hex.EncodeToString(key)
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "redis", a.backend)

	h := a.Handler()
	id := post(t, h, "/api/session/start", nil)["session_id"].(string)
	post(t, h, "/api/session/"+id+"/transition", map[string]any{
		"trigger": "select_reception",
		"context": map[string]any{"patient_id": "P-900", "lang": "ko"},
	})
	post(t, h, "/api/reception/check-in", map[string]any{"department": "dermatology"})

	// Close flushes the asynchronous audit trail.
	require.NoError(t, a.Close(ctx))

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()
	recs, err := redisAdapter.NewAuditStream(client, cfg.AuditStream, 0).Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].SessionID)
	assert.Contains(t, recs[0].Context, audit.EnvelopeKey)
	assert.NotContains(t, recs[0].Context, "patient_id")

	opened, err := audit.Open(recs[0], audit.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)
	assert.Equal(t, audit.Mask, opened.Context["patient_id"])
	assert.Equal(t, "ko", opened.Context["lang"])

	// Queue numbers live in Redis.
	loc, err := cfg.Location()
	require.NoError(t, err)
	n, err := client.Get(ctx, "kiosk:queue:dermatology:"+time.Now().In(loc).Format("2006-01-02")).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewApp_BackendErrors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.RedisURL = "not a url"
	_, err := newApp(ctx, cfg, logging.NewNop())
	assert.ErrorContains(t, err, "parse redis url")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg.RedisURL = "redis://" + addr
	_, err = newApp(ctx, cfg, logging.NewNop())
	assert.ErrorContains(t, err, "connect redis")
}

func TestCommands(t *testing.T) {
	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	assert.True(t, strings.HasPrefix(run("graph"), "graph TD"))
	assert.Contains(t, run("graph", "--format", "yaml"), "initial: HOME")
	assert.Contains(t, run("flows"), "## RECEPTION_CONFIRM")
	assert.Contains(t, run("version"), "kiosk version ")

	rootCmd.SetArgs([]string{"graph", "--format", "dot"})
	assert.ErrorContains(t, rootCmd.Execute(), "unknown format")
}

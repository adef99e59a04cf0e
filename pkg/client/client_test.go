package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/apiserver"
	"github.com/klubi/smolmind/internal/model"
	"github.com/klubi/smolmind/internal/store"
	"github.com/klubi/smolmind/internal/tools"
)

type fixedGateway struct{ reply string }

func (g fixedGateway) Generate(context.Context, []model.Message, model.Settings) (string, error) {
	return g.reply, nil
}

func newTestClient(t *testing.T, reply string) *Client {
	t.Helper()
	tc, err := tools.NewContext(t.TempDir(), "")
	require.NoError(t, err)
	core, err := agent.NewCore(fixedGateway{reply: reply}, tools.LoadDefaults(nil), tc)
	require.NoError(t, err)

	srv := apiserver.NewServer("", core, store.NewConversations(store.NewMemoryStore()), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestClientCatalogue(t *testing.T) {
	c := newTestClient(t, "hi")

	if err := c.Healthz(); err != nil {
		t.Fatalf("unexpected error on Healthz: %v", err)
	}

	agents, err := c.ListAgents()
	require.NoError(t, err)
	assert.Len(t, agents, 4)

	infos, err := c.ListTools()
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	result, err := c.CallTool("todo", map[string]any{"operation": "add", "title": "ship it"})
	require.NoError(t, err)
	assert.Equal(t, "Added todo #1: ship it", result.Output)
}

func TestClientSessions(t *testing.T) {
	c := newTestClient(t, "All done.")

	conv, err := c.CreateSession("")
	require.NoError(t, err)
	name := conv.Metadata.Name

	turn, err := c.SendTurn(name, "fix this bug")
	require.NoError(t, err)
	assert.Equal(t, "Coder", turn.Agent)
	assert.Equal(t, "All done.", turn.Text)

	got, err := c.GetSession(name)
	require.NoError(t, err)
	assert.Len(t, got.History, 2)

	list, err := c.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0].Name)

	require.NoError(t, c.DeleteSession(name))
	_, err = c.GetSession(name)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "key not found")
}

func TestClientToolErrors(t *testing.T) {
	c := newTestClient(t, "hi")

	_, err := c.CallTool("todo", map[string]any{"operation": "explode"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, `invalid payload for tool "todo"`)
}

func TestHealthzUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()
	if err := New(ts.URL).Healthz(); err == nil {
		t.Errorf("expected error for closed server")
	}
}

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
)

func TestResolveEntities_KeepsInputOrder(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/entities/resolve", map[string]any{
		"kind": "person",
		"role": "author",
		"refs": []any{
			"النووي",
			map[string]string{"id": "person-existing"},
			map[string]string{"name": "ابن حجر"},
			"",
			"النووى",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decodeData[ResolveEntitiesResponse](t, resp)
	require.Len(t, out.IDs, 4, "empty references are dropped")
	assert.Equal(t, "person-existing", out.IDs[1])
	assert.NotEqual(t, out.IDs[0], out.IDs[2])
	assert.Equal(t, out.IDs[0], out.IDs[3], "spelling variants resolve to one record")
}

func TestResolveEntities_SingleName(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/entities/resolve", map[string]any{"kind": "publisher", "refs": "دار الفكر"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decodeData[ResolveEntitiesResponse](t, resp)
	require.Len(t, out.IDs, 1)

	again := decodeData[ResolveEntitiesResponse](t, ts.api.Post("/api/v1/entities/resolve", map[string]any{
		"kind": "publisher",
		"refs": map[string]string{"title": "دار الفكر"},
	}))
	assert.Equal(t, out.IDs, again.IDs)
}

func TestResolveEntities_EmptyRefs(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/entities/resolve", map[string]any{"kind": "subject"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"ids":[]`)
}

func TestResolveEntities_MissingRole(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/entities/resolve", map[string]any{"kind": "person", "refs": "النووي"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, string(domainerrors.CodeValidation), decodeError(t, resp).Code)
}

func TestResolveEntities_UnknownKind(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/entities/resolve", map[string]any{"kind": "shelf", "refs": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
}

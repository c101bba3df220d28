package contexthelpers_test

import (
	"github.com/myrjola/casebook/internal/contexthelpers"
	"github.com/stretchr/testify/require"
	"net/http/httptest"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/game", nil)
	require.Empty(t, contexthelpers.PlayerID(r.Context()))
	require.Empty(t, contexthelpers.CSRFToken(r.Context()))

	r = contexthelpers.SetPlayerID(r, "player-1")
	r = contexthelpers.SetCSRFToken(r, "token")
	require.Equal(t, "player-1", contexthelpers.PlayerID(r.Context()))
	require.Equal(t, "token", contexthelpers.CSRFToken(r.Context()))
}

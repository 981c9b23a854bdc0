package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPAPI_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/8.8.8.8":
			_, _ = w.Write([]byte(`{"status":"success","country":"United States","query":"8.8.8.8"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
		}
	}))
	defer srv.Close()

	g := NewIPAPI(srv.URL)

	loc, err := g.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "United States", loc.Country)
	assert.Equal(t, "8.8.8.8", loc.IP)

	_, err = g.Locate(context.Background(), "10.0.0.1")
	assert.ErrorContains(t, err, "private range")
}

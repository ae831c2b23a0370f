package semver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SpatiumPortae/tuneshare/internal/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		for _, s := range []string{"v0.0.1", "v1.4.0", "v10.24.30"} {
			ver, err := semver.Parse(s)
			require.NoError(t, err, s)
			assert.Equal(t, s, ver.String())
		}
	})
	t.Run("negative", func(t *testing.T) {
		for _, s := range []string{"0.0.1", "v01.0.1", "v0.01.1", "v0.1.01", "v1.2", "dev"} {
			_, err := semver.Parse(s)
			assert.ErrorIs(t, err, semver.ErrParse, s)
		}
	})
}

func TestCompare(t *testing.T) {
	sv, err := semver.Parse("v1.1.1")
	require.NoError(t, err)
	tests := map[string]semver.Comparison{
		"v2.0.0": semver.CompareOldMajor,
		"v0.9.9": semver.CompareNewMajor,
		"v1.2.0": semver.CompareOldMinor,
		"v1.0.5": semver.CompareNewMinor,
		"v1.1.2": semver.CompareOldPatch,
		"v1.1.0": semver.CompareNewPatch,
		"v1.1.1": semver.CompareEqual,
	}
	for s, want := range tests {
		t.Run(s, func(t *testing.T) {
			oracle, err := semver.Parse(s)
			require.NoError(t, err)
			assert.Equal(t, want, sv.Compare(oracle))
		})
	}
	t.Run("compatible", func(t *testing.T) {
		assert.True(t, sv.Compatible(semver.Version{Major: 1, Minor: 9}))
		assert.False(t, sv.Compatible(semver.Version{Major: 2}))
	})
}

func TestFetchServerVersion(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/version", r.URL.Path)
			_ = json.NewEncoder(w).Encode(semver.Version{Major: 1, Minor: 2, Patch: 3})
		}))
		defer server.Close()

		ver, err := semver.FetchServerVersion(context.Background(), server.Client(), server.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", ver.String())
	})
	t.Run("bad status", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := semver.FetchServerVersion(context.Background(), nil, server.URL)
		assert.ErrorContains(t, err, "HTTP 404")
	})
}

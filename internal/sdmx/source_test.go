package sdmx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	commonerrors "sdmx-harvester/internal/common/errors"
	commonhttp "sdmx-harvester/internal/common/http"
	"sdmx-harvester/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalogue, err := os.ReadFile("testdata/catalogue.xml")
	require.NoError(t, err)
	structure, err := os.ReadFile("testdata/structure.xml")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/dataflow/ESTAT/all/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(catalogue)
	})
	mux.HandleFunc("/datastructure/ESTAT/DSD_nama_10_gdp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "children", r.URL.Query().Get("references"))
		_, _ = w.Write(structure)
	})
	mux.HandleFunc("/datastructure/ESTAT/DSD_demo_pjan", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(t *testing.T, srv *httptest.Server) *RegistrySource {
	client := commonhttp.NewClientWithConfig(commonhttp.ClientConfig{
		Timeout: 5 * time.Second,
		Retry:   commonhttp.RetryConfig{MaxRetries: 0},
	})
	return NewRegistrySource(RegistryConfig{
		CatalogueURL:       srv.URL + "/dataflow/ESTAT/all/latest",
		StructureURLFormat: srv.URL + "/datastructure/ESTAT/%s?references=children",
	}, client, logger.NewTestLogger(t))
}

func TestRegistrySource_ListDataflows(t *testing.T) {
	srv := newRegistryServer(t)
	src := newTestSource(t, srv)

	assert.Empty(t, src.Version())

	dataflows, err := src.ListDataflows(context.Background())
	require.NoError(t, err)
	require.Len(t, dataflows, 2)
	assert.Equal(t, "DATAFLOW_1571223644", src.Version())
}

func TestRegistrySource_LoadStructure(t *testing.T) {
	srv := newRegistryServer(t)
	src := newTestSource(t, srv)

	dataflows, err := src.ListDataflows(context.Background())
	require.NoError(t, err)

	dsd, err := src.LoadStructure(context.Background(), dataflows[0])
	require.NoError(t, err)
	assert.Equal(t, "DSD_nama_10_gdp", dsd.ID)
	assert.Len(t, dsd.Dimensions, 5)

	_, err = src.LoadStructure(context.Background(), dataflows[1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, commonhttp.ErrUnexpectedStatus))
}

func TestRegistrySource_LoadStructure_MissingReference(t *testing.T) {
	srv := newRegistryServer(t)
	src := newTestSource(t, srv)

	_, err := src.LoadStructure(context.Background(), Dataflow{ID: "orphan"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingStructureRef))
}

func TestRegistrySource_ListDataflows_Errors(t *testing.T) {
	t.Run("registry down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		src := newTestSource(t, srv)
		_, err := src.ListDataflows(context.Background())
		require.Error(t, err)

		stdErr, ok := commonerrors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, commonerrors.ErrCodeRegistryUnavailable, stdErr.Code)
	})

	t.Run("garbage catalogue", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{\"not\": \"xml\"}"))
		}))
		defer srv.Close()

		src := newTestSource(t, srv)
		_, err := src.ListDataflows(context.Background())
		require.Error(t, err)

		stdErr, ok := commonerrors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, commonerrors.ErrCodeCatalogueParseFailed, stdErr.Code)
	})
}

func TestRegistrySource_StructureURL(t *testing.T) {
	src := NewRegistrySource(RegistryConfig{StructureURLFormat: "http://registry/datastructure/ESTAT/"}, nil, logger.NewNoOpLogger())
	assert.Equal(t, "http://registry/datastructure/ESTAT/DSD_x", src.StructureURL(Reference{ID: "DSD_x"}))
}

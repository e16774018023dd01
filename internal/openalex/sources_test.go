package openalex

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/venuescope/internal/model"
)

const sourcesBody = `{
  "meta": {"count": 2},
  "results": [
    {
      "id": "https://openalex.org/S123",
      "display_name": "Journal of Child Development ",
      "host_organization_name": "Wiley",
      "issn_l": "0009-3920",
      "issn": ["0009-3920", "1467-8624"],
      "homepage_url": "https://srcd.onlinelibrary.wiley.com",
      "is_oa": false,
      "is_in_doaj": false,
      "apc_usd": 3850,
      "works_count": 9800,
      "cited_by_count": 650000,
      "summary_stats": {"2yr_mean_citedness": 4.2, "h_index": 260, "i10_index": 6000},
      "topics": [{"display_name": "Child Development"}, {"display_name": ""}, {"display_name": "Empathy"}]
    },
    {
      "id": "https://openalex.org/S999",
      "display_name": "Sparse Journal",
      "summary_stats": {}
    }
  ]
}`

func TestFetchVenues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sources", r.URL.Path)
		assert.Equal(t, "type:journal", r.URL.Query().Get("filter"))
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		assert.Equal(t, "child development", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(sourcesBody))
	})

	venues, err := c.FetchVenues(context.Background(), model.CatalogQuery{Search: "child development", Limit: 20})
	require.NoError(t, err)
	require.Len(t, venues, 2)

	v := venues[0]
	assert.Equal(t, "S123", v.ID)
	assert.Equal(t, "Journal of Child Development", v.Name)
	assert.Equal(t, "Wiley", v.Publisher)
	assert.Equal(t, "0009-3920", v.ISSNL)
	assert.Equal(t, []string{"0009-3920", "1467-8624"}, v.ISSN)
	require.NotNil(t, v.APCUSD)
	assert.Equal(t, 3850.0, *v.APCUSD)
	assert.Equal(t, 260, v.Metrics.HIndexOrZero())
	assert.Equal(t, 9800, v.Metrics.WorksOrZero())
	require.NotNil(t, v.Metrics.TwoYearMeanCitedness)
	assert.Equal(t, 4.2, *v.Metrics.TwoYearMeanCitedness)
	assert.Equal(t, []string{"Child Development", "Empathy"}, v.Topics)

	sparse := venues[1]
	assert.Nil(t, sparse.Metrics.HIndex)
	assert.Nil(t, sparse.Metrics.WorksCount)
	assert.Nil(t, sparse.APCUSD)
	assert.Empty(t, sparse.Topics)
}

func TestFetchVenuesDefaultLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	venues, err := c.FetchVenues(context.Background(), model.CatalogQuery{Search: "x"})
	require.NoError(t, err)
	assert.Empty(t, venues)
}

func TestLookupISSN(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "issn:0009-3920", r.URL.Query().Get("filter"))
		_, _ = w.Write([]byte(sourcesBody))
	})

	v, found, err := c.LookupISSN(context.Background(), " 0009-3920 ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "S123", v.ID)
}

func TestLookupISSNNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	_, found, err := c.LookupISSN(context.Background(), "1234-5678")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = c.LookupISSN(context.Background(), "")
	assert.Error(t, err)
}

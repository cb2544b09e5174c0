package pvpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// esiosDay builds a daily archive body with n hourly rows and the same
// numeric columns on every row, Spanish decimals included.
func esiosDay(day string, n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"Dia":"%s","Hora":"%02d-%02d",`+
			`"GEN":"112,414","NOC":"98,123","VHC":"96,456",`+
			`"TEUGEN":"44,027","TEUNOC":"62,012","TEUVHC":"62,012",`+
			`"COFGEN":"0,0000421","COFNOC":"0,0000312","COFVHC":"0,0000298"}`,
			day, i%24, (i+1)%24)
	}
	return `{"PVPC":[` + strings.Join(rows, ",") + `]}`
}

func newTestEsios(srv *httptest.Server, token string) *Esios {
	e := NewEsios(srv.URL, token)
	e.client = srv.Client()
	return e
}

func TestEsios(t *testing.T) {
	gen, err := tariff.Parse("GEN")
	require.NoError(t, err)

	t.Run("Parsing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/archives/70/download_json", r.URL.Path)
			assert.Equal(t, "es", r.URL.Query().Get("locale"))
			assert.Equal(t, "2016-02-01", r.URL.Query().Get("date"))
			assert.Equal(t, `Token token="secret"`, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(esiosDay("01/02/2016", 24)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "secret")
		start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
		hours, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, hours, 24)

		assert.True(t, hours[0].TSStart.Equal(start))
		assert.True(t, hours[23].TSStart.Equal(start.Add(23*time.Hour)))
		// published values are EUR/MWh, TCU is the total minus the toll
		assert.InDelta(t, 0.044027, hours[0].TEA, 1e-9)
		assert.InDelta(t, (112.414-44.027)/1000, hours[0].TCU, 1e-9)
		assert.InDelta(t, 0.0000421, hours[0].COF, 1e-12)
	})

	t.Run("PartialRange", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(esiosDay("01/02/2016", 24)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 2, 1, 10, 0, 0, 0, tariff.Madrid)
		end := time.Date(2016, 2, 1, 14, 0, 0, 0, tariff.Madrid)
		hours, err := e.GetHourlyPrices(context.Background(), gen, start, end)
		require.NoError(t, err)
		require.Len(t, hours, 4)
		assert.True(t, hours[0].TSStart.Equal(start))
	})

	t.Run("FallBackDay", func(t *testing.T) {
		// 2016-10-30 has 25 local hours in Madrid
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(esiosDay("30/10/2016", 25)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 10, 30, 0, 0, 0, 0, tariff.Madrid)
		hours, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, hours, 25)

		// rows 2 and 3 are the repeated 02:00 wall clock, one real hour apart
		assert.Equal(t, 2, hours[2].TSStart.Hour())
		assert.Equal(t, 2, hours[3].TSStart.Hour())
		assert.Equal(t, time.Hour, hours[3].TSStart.Sub(hours[2].TSStart))
	})

	t.Run("SpringForwardDay", func(t *testing.T) {
		// 2016-03-27 has 23 local hours in Madrid
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(esiosDay("27/03/2016", 23)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 3, 27, 0, 0, 0, 0, tariff.Madrid)
		hours, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, hours, 23)
		// 02:00 does not exist, row 2 is 03:00
		assert.Equal(t, 3, hours[2].TSStart.Hour())
	})

	t.Run("RowCountMismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(esiosDay("01/02/2016", 5)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
		_, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDataGap)
	})

	t.Run("HTTPError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
		_, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("DayCaching", func(t *testing.T) {
		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			_, _ = w.Write([]byte(esiosDay("01/02/2016", 24)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
		_, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, requests)

		_, err = e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, requests, "expected cached response")
	})

	t.Run("MultiDay", func(t *testing.T) {
		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			_, _ = w.Write([]byte(esiosDay(r.URL.Query().Get("date"), 24)))
		}))
		defer srv.Close()

		e := newTestEsios(srv, "")
		start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
		hours, err := e.GetHourlyPrices(context.Background(), gen, start, start.AddDate(0, 0, 2))
		require.NoError(t, err)
		assert.Len(t, hours, 48)
		assert.Equal(t, 2, requests)
	})
}

func TestParseSpanishFloat(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want float64
	}{
		{"1.234,567", 1234.567},
		{"112,414", 112.414},
		{"0,0000421", 0.0000421},
		{"44", 44},
	} {
		got, err := parseSpanishFloat(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}

	_, err := parseSpanishFloat("abc")
	assert.Error(t, err)
}

func TestValidateSeries(t *testing.T) {
	start := time.Date(2016, 2, 1, 0, 0, 0, 0, tariff.Madrid)
	end := start.Add(3 * time.Hour)

	full, err := (&Fixed{TCUEURKWH: 0.1}).GetHourlyPrices(context.Background(), tariff.Classes()[0], start, end)
	require.NoError(t, err)

	assert.NoError(t, ValidateSeries(full, start, end))
	assert.ErrorIs(t, ValidateSeries(full[:2], start, end), ErrDataGap)

	shifted := append([]types.PVPCHour{}, full...)
	shifted[1].TSStart = shifted[1].TSStart.Add(time.Minute)
	assert.ErrorIs(t, ValidateSeries(shifted, start, end), ErrDataGap)
}

func TestFixed(t *testing.T) {
	noc, err := tariff.Parse("NOC")
	require.NoError(t, err)

	start := time.Date(2016, 1, 15, 11, 0, 0, 0, tariff.Madrid)
	hours, err := (&Fixed{TCUEURKWH: 0.05, COF: 1}).GetHourlyPrices(context.Background(), noc, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 2)

	// 11:00 standard time is off-peak, 12:00 is peak
	assert.InDelta(t, 0.002215, hours[0].TEA, 1e-9)
	assert.InDelta(t, 0.062012, hours[1].TEA, 1e-9)
	assert.Equal(t, 0.05, hours[0].TCU)
	assert.Equal(t, 1.0, hours[0].COF)
}

package pvpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/common"
	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Esios implements Provider against the REE system-operator API
// (api.esios.ree.es). The PVPC breakdown is published as one JSON archive
// per day (archive 70), 23-25 hourly rows each, with Spanish-formatted
// decimal strings in €/MWh.
type Esios struct {
	apiURL string
	token  string
	client *http.Client

	mu    sync.Mutex
	cache map[string][]esiosRow // day key -> raw rows
}

// configuredEsios sets up flags for the esios client and returns the
// instance.
func configuredEsios() *Esios {
	e := &Esios{
		client: common.HTTPClient(10 * time.Second),
		cache:  make(map[string][]esiosRow),
	}
	apiURL := lflag.String("esios-api-url", "https://api.esios.ree.es", "Base URL for the esios API")
	token := lflag.String("esios-token", "", "Personal token for the esios API")

	lflag.Do(func() {
		e.apiURL = *apiURL
		e.token = *token
	})

	return e
}

// NewEsios builds a client without flag registration, for embedding and tests.
func NewEsios(apiURL, token string) *Esios {
	return &Esios{
		apiURL: apiURL,
		token:  token,
		client: common.HTTPClient(10 * time.Second),
		cache:  make(map[string][]esiosRow),
	}
}

// Validate ensures the configuration is usable.
func (e *Esios) Validate() error {
	if e.apiURL == "" {
		return fmt.Errorf("esios-api-url is required")
	}
	if _, err := url.Parse(e.apiURL); err != nil {
		return fmt.Errorf("failed to parse esios url (%s): %w", e.apiURL, err)
	}
	return nil
}

// esiosRow is one hourly record of the daily PVPC archive. Only the day,
// the hour label and the per-tariff numeric columns matter; the column set
// varies over the years so the numbers are kept as a loose map.
type esiosRow struct {
	Dia    string
	Hora   string
	Values map[string]string
}

func (r *esiosRow) UnmarshalJSON(b []byte) error {
	raw := map[string]string{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Dia = raw["Dia"]
	r.Hora = raw["Hora"]
	delete(raw, "Dia")
	delete(raw, "Hora")
	r.Values = raw
	return nil
}

// parseSpanishFloat parses "1.234,567" style decimals.
func parseSpanishFloat(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

type esiosArchive struct {
	PVPC []esiosRow `json:"PVPC"`
}

// fetchDay downloads (or serves from cache) the raw rows of one local day.
func (e *Esios) fetchDay(ctx context.Context, day time.Time) ([]esiosRow, error) {
	key := day.Format("2006-01-02")

	e.mu.Lock()
	if rows, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return rows, nil
	}
	e.mu.Unlock()

	u, err := url.Parse(e.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	u.Path = "/archives/70/download_json"
	params := url.Values{}
	params.Set("locale", "es")
	params.Set("date", key)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json; application/vnd.esios-api-v1+json")
	if e.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Token token=%q", e.token))
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching pvpc archive", slog.String("day", key))

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		observeFetch("esios", false, time.Since(start))
		return nil, fmt.Errorf("failed to fetch pvpc archive for %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observeFetch("esios", false, time.Since(start))
		return nil, fmt.Errorf("esios api returned status %d for %s", resp.StatusCode, key)
	}

	var arch esiosArchive
	if err := json.NewDecoder(resp.Body).Decode(&arch); err != nil {
		observeFetch("esios", false, time.Since(start))
		return nil, fmt.Errorf("failed to decode esios response for %s: %w", key, err)
	}
	observeFetch("esios", true, time.Since(start))

	if n := len(arch.PVPC); n != 24 && n != 23 && n != 25 {
		return nil, fmt.Errorf("pvpc archive for %s has %d rows: %w", key, n, ErrDataGap)
	}

	e.mu.Lock()
	e.cache[key] = arch.PVPC
	e.mu.Unlock()
	return arch.PVPC, nil
}

// GetHourlyPrices implements Provider. Rows are published in local-day
// order, so the i-th row of a day is the day's i-th real hour; that holds
// on 23- and 25-hour DST days too.
func (e *Esios) GetHourlyPrices(ctx context.Context, class tariff.Class, start, end time.Time) ([]types.PVPCHour, error) {
	start = start.In(tariff.Madrid)
	end = end.In(tariff.Madrid)

	var out []types.PVPCHour
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, tariff.Madrid)
	for day.Before(end) {
		rows, err := e.fetchDay(ctx, day)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			ts := day.Add(time.Duration(i) * time.Hour)
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			h, err := rowToHour(row, class, ts)
			if err != nil {
				return nil, fmt.Errorf("pvpc archive %s row %d: %w", day.Format("2006-01-02"), i, err)
			}
			out = append(out, h)
		}
		day = day.AddDate(0, 0, 1)
	}

	if err := ValidateSeries(out, start, end); err != nil {
		return nil, err
	}
	return out, nil
}

// rowToHour extracts one tariff's breakdown from a raw row. The published
// total and TEU come in €/MWh; TCU is the total minus the access toll.
// COF is a dimensionless weight and stays as published.
func rowToHour(row esiosRow, class tariff.Class, ts time.Time) (types.PVPCHour, error) {
	total, err := parseSpanishFloat(row.Values[class.Short])
	if err != nil {
		return types.PVPCHour{}, fmt.Errorf("bad %s value %q: %w", class.Short, row.Values[class.Short], err)
	}
	teu, err := parseSpanishFloat(row.Values["TEU"+class.Short])
	if err != nil {
		return types.PVPCHour{}, fmt.Errorf("bad TEU%s value %q: %w", class.Short, row.Values["TEU"+class.Short], err)
	}
	cof, err := parseSpanishFloat(row.Values["COF"+class.Short])
	if err != nil {
		return types.PVPCHour{}, fmt.Errorf("bad COF%s value %q: %w", class.Short, row.Values["COF"+class.Short], err)
	}
	return types.PVPCHour{
		TSStart: ts,
		TEA:     teu / 1000.0,
		TCU:     (total - teu) / 1000.0,
		COF:     cof,
	}, nil
}

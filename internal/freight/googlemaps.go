package freight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Chative-commerce/server/internal/agent/model"
)

const defaultDistanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

type Config struct {
	APIKey  string        `envconfig:"GOOGLE_MAPS_API_KEY"`
	Timeout time.Duration `envconfig:"MAPS_TIMEOUT" default:"10s"`
	BaseURL string        `envconfig:"MAPS_BASE_URL"`
}

// UpstreamError carries the reason reported by the distance API.
type UpstreamError struct {
	Reason string
}

func (e *UpstreamError) Error() string { return "distance matrix: " + e.Reason }

// DistanceMatrix is a model.DistanceProvider backed by the Google Distance Matrix API.
type DistanceMatrix struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ model.DistanceProvider = (*DistanceMatrix)(nil)

// NewDistanceProvider returns a nil provider when no API key is configured,
// which the Calculator reports as a missing key.
func NewDistanceProvider(cfg Config) model.DistanceProvider {
	if cfg.APIKey == "" {
		return nil
	}
	return NewDistanceMatrix(cfg)
}

func NewDistanceMatrix(cfg Config) *DistanceMatrix {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDistanceMatrixURL
	}
	return &DistanceMatrix{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type matrixValue struct {
	Value float64 `json:"value"`
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string      `json:"status"`
			Distance matrixValue `json:"distance"`
			Duration matrixValue `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func coord(p model.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// DistanceAndDuration returns meters and seconds from origin to destination.
func (d *DistanceMatrix) DistanceAndDuration(ctx context.Context, origin, destination model.LatLng) (float64, float64, error) {
	q := url.Values{}
	q.Set("origins", coord(origin))
	q.Set("destinations", coord(destination))
	q.Set("key", d.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	res, err := d.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return 0, 0, fmt.Errorf("distance matrix: http %d", res.StatusCode)
	}

	var body matrixResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("distance matrix: decode: %w", err)
	}
	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 || body.Rows[0].Elements[0].Status != "OK" {
		reason := body.ErrorMessage
		if reason == "" {
			reason = "Erro desconhecido"
		}
		return 0, 0, &UpstreamError{Reason: reason}
	}
	el := body.Rows[0].Elements[0]
	return el.Distance.Value, el.Duration.Value, nil
}

// IsUpstream reports whether err was reported by the distance API itself.
func IsUpstream(err error) (*UpstreamError, bool) {
	var u *UpstreamError
	ok := errors.As(err, &u)
	return u, ok
}

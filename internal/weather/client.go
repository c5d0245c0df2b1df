// Package weather fetches current conditions from OpenWeather and renders
// the Polish spoken summary.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode"
)

const defaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// ErrUnavailable is the user-facing failure message. Handler errors are
// spoken, never fatal.
const ErrUnavailable = "Przepraszam, problem z pobraniem pogody"

// APIError is an in-body error reported by OpenWeather. Its text is safe to
// speak to the user.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "Błąd pogody: " + e.Message }

// Report is the subset of the OpenWeather response the assistant and the
// dashboard use.
type Report struct {
	City        string  `json:"city"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Speech renders the report the way the assistant reads it out loud.
func (r Report) Speech() string {
	return fmt.Sprintf(
		"Aktualna pogoda w %s: %s, temperatura: %.1f°C (odczuwalna %.1f°C), wilgotność: %d%%, wiatr: %.1f km/h",
		r.City, r.Description, r.Temp, r.FeelsLike, r.Humidity, r.WindSpeed,
	)
}

// Client queries OpenWeather. Safe for concurrent use.
type Client struct {
	apiKey      string
	defaultCity string
	baseURL     string
	http        *http.Client
}

// NewClient returns a Client using the given API key and fallback city.
// When httpClient is nil a 10 second timeout client is used.
func NewClient(apiKey, defaultCity string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:      apiKey,
		defaultCity: defaultCity,
		baseURL:     defaultBaseURL,
		http:        httpClient,
	}
}

// openWeatherBody mirrors the wire shape of the upstream response.
type openWeatherBody struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current returns conditions for city, falling back to the default city
// when city is empty.
func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	if city == "" {
		city = c.defaultCity
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "pl")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("openweather: %w", err)
	}
	defer resp.Body.Close()

	var body openWeatherBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decode openweather response: %w", err)
	}

	// The API reports its own errors in-body with a non-200 cod.
	if cod := fmt.Sprint(body.Cod); cod != "200" {
		msg := body.Message
		if msg == "" {
			msg = "nieznany błąd"
		}
		slog.Warn("openweather error", "city", city, "cod", cod, "message", msg)
		return Report{}, &APIError{Message: msg}
	}
	if len(body.Weather) == 0 {
		return Report{}, fmt.Errorf("openweather: empty weather block for %q", city)
	}

	return Report{
		City:        body.Name,
		Icon:        body.Weather[0].Icon,
		Description: capitalize(body.Weather[0].Description),
		Temp:        body.Main.Temp,
		FeelsLike:   body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		WindSpeed:   body.Wind.Speed,
	}, nil
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

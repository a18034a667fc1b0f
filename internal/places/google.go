package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/httpclient"
)

const (
	searchFieldMask  = "places.id,places.displayName"
	detailsFieldMask = "id,displayName,formattedAddress,addressComponents,nationalPhoneNumber," +
		"internationalPhoneNumber,websiteUri,googleMapsUri,rating,userRatingCount,priceLevel," +
		"regularOpeningHours,types,businessStatus,location,photos,delivery,dineIn,takeout," +
		"reservable,servesBreakfast,servesLunch,servesDinner,servesBeer,servesWine,accessibilityOptions"
)

// GoogleProvider calls the Places API (New).
type GoogleProvider struct {
	BaseURL string
	APIKey  string
	client  *httpclient.Client
}

func NewGoogleProvider(baseURL, apiKey string, client *httpclient.Client) *GoogleProvider {
	if baseURL == "" {
		baseURL = constants.DefaultPlacesURL
	}
	if client == nil {
		client = httpclient.NewClient(nil, constants.DefaultRequestDelay)
	}
	return &GoogleProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  client,
	}
}

func (p *GoogleProvider) Search(ctx context.Context, text string, maxResults int) ([]PlaceSummary, error) {
	if maxResults <= 0 || maxResults > constants.MaxResultsLimit {
		maxResults = constants.MaxResultsLimit
	}
	payload, err := json.Marshal(map[string]any{
		"textQuery":      text,
		"maxResultCount": maxResults,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Places []struct {
			ID          string `json:"id"`
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
		} `json:"places"`
	}
	if err := p.do(ctx, "search", http.MethodPost, p.BaseURL+"/places:searchText", payload, searchFieldMask, &resp); err != nil {
		return nil, err
	}

	out := make([]PlaceSummary, 0, len(resp.Places))
	for _, pl := range resp.Places {
		if pl.ID == "" {
			continue
		}
		out = append(out, PlaceSummary{ID: pl.ID, Name: pl.DisplayName.Text, Rank: len(out) + 1})
	}
	return out, nil
}

func (p *GoogleProvider) Details(ctx context.Context, placeID string) (*domain.Business, error) {
	var place placeDetails
	u := p.BaseURL + "/places/" + url.PathEscape(placeID)
	if err := p.do(ctx, "details", http.MethodGet, u, nil, detailsFieldMask, &place); err != nil {
		return nil, err
	}
	b := place.toBusiness(p.BaseURL)
	if b.PlaceID == "" {
		b.PlaceID = placeID
	}
	return b, nil
}

func (p *GoogleProvider) do(ctx context.Context, op, method, u string, body []byte, fieldMask string, target any) error {
	if p.APIKey == "" {
		return domain.Fatal(op, 0, errors.New("places API key is not configured"))
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return domain.Transient(op, 0, err)
	}
	req.Header.Set("Content-Type", constants.MimeTypeJSON)
	req.Header.Set("X-Goog-Api-Key", p.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return classifyResponse(op, resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return domain.Transient(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var fatalStatuses = map[string]bool{
	"UNAUTHENTICATED":    true,
	"PERMISSION_DENIED":  true,
	"RESOURCE_EXHAUSTED": true,
}

// classifyResponse decides from the HTTP status and the API error status
// whether a failed call should halt the queue.
func classifyResponse(op string, status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	msg := ae.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if ae.Error.Status != "" {
		msg = ae.Error.Status + ": " + msg
	}
	err := errors.New(msg)

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return domain.Fatal(op, status, err)
	case fatalStatuses[ae.Error.Status]:
		return domain.Fatal(op, status, err)
	default:
		return domain.Transient(op, status, err)
	}
}

func classifyTransportError(op string, err error) error {
	var rl *httpclient.RateLimitError
	if errors.As(err, &rl) {
		if rl.StatusCode == http.StatusTooManyRequests {
			return domain.Fatal(op, rl.StatusCode, err)
		}
		return domain.Transient(op, rl.StatusCode, err)
	}
	return domain.Transient(op, 0, err)
}

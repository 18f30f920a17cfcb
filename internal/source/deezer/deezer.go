package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/larkvale/metamerge/internal/source"
)

const defaultBaseURL = "https://api.deezer.com"

// FieldAlbumID is the field name this source owns.
const FieldAlbumID = "deezer_album_id"

// Adapter implements source.Source for Deezer's public API. No
// authentication is required.
type Adapter struct {
	client  *http.Client
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source name.
func (a *Adapter) Name() source.Name { return source.NameDeezer }

// SupportsLookup reports that albums can be fetched by Deezer ID.
func (a *Adapter) SupportsLookup() bool { return true }

// SupportsSearch reports that albums can be searched by entity fields.
func (a *Adapter) SupportsSearch() bool { return true }

// OwnedFields returns the identifier fields owned by Deezer.
func (a *Adapter) OwnedFields() []string { return []string{FieldAlbumID} }

// LookupByID fetches an album by its Deezer ID (a numeric string).
// Non-numeric IDs are NotFound since Deezer does not index foreign
// identifiers.
func (a *Adapter) LookupByID(ctx context.Context, id string) (*source.Candidate, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, &source.NotFoundError{Source: source.NameDeezer, ID: id}
	}

	body, err := a.doRequest(ctx, a.baseURL+"/album/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var album albumResult
	if err := json.Unmarshal(body, &album); err != nil {
		return nil, fmt.Errorf("parsing album response: %w", err)
	}
	if album.Error != nil {
		return nil, &source.NotFoundError{Source: source.NameDeezer, ID: id}
	}

	cand := candidateFrom(&album)
	return &cand, nil
}

// Search queries the album search endpoint with the entity's artist
// and title.
func (a *Adapter) Search(ctx context.Context, fields source.Fields) ([]source.Candidate, error) {
	artist := fields.String("artist")
	title := fields.String("album")
	if title == "" {
		title = fields.String("title")
	}
	if artist == "" && title == "" {
		return nil, nil
	}

	var terms []string
	if artist != "" {
		terms = append(terms, fmt.Sprintf("artist:%q", artist))
	}
	if title != "" {
		terms = append(terms, fmt.Sprintf("album:%q", title))
	}

	params := url.Values{
		"q":     {strings.Join(terms, " ")},
		"limit": {"10"},
	}

	body, err := a.doRequest(ctx, a.baseURL+"/search/album?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	candidates := make([]source.Candidate, 0, len(resp.Data))
	for i := range resp.Data {
		candidates = append(candidates, candidateFrom(&resp.Data[i]))
	}

	a.logger.Debug("album search completed",
		slog.String("artist", artist),
		slog.String("title", title),
		slog.Int("results", len(candidates)))

	return candidates, nil
}

// candidateFrom maps a Deezer album to a candidate field set.
func candidateFrom(r *albumResult) source.Candidate {
	id := strconv.Itoa(r.ID)
	fields := source.Fields{
		"album":      r.Title,
		FieldAlbumID: id,
	}
	if r.Artist.Name != "" {
		fields["artist"] = r.Artist.Name
	}
	if len(r.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(r.ReleaseDate[:4]); err == nil {
			fields["year"] = year
		}
	}
	if r.Label != "" {
		fields["label"] = r.Label
	}
	if len(r.Genres.Data) > 0 {
		genres := make([]string, 0, len(r.Genres.Data))
		for _, g := range r.Genres.Data {
			genres = append(genres, g.Name)
		}
		fields["genre"] = genres
	}
	return source.Candidate{ID: id, Fields: fields}
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, source.NameDeezer); err != nil {
		return nil, &source.UnavailableError{
			Source: source.NameDeezer,
			Cause:  fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &source.UnavailableError{Source: source.NameDeezer, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &source.UnavailableError{
			Source: source.NameDeezer,
			Cause:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &source.UnavailableError{Source: source.NameDeezer, Cause: err}
	}
	return body, nil
}

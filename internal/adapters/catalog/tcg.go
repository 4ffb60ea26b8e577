package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/pokepack/internal/domain/model"
)

// DefaultPageSize is the largest page the card API serves.
const DefaultPageSize = 250

// cardFields limits card responses to what packs and collections use.
const cardFields = "id,name,rarity,images,number,set"

// JSONGetter is the upstream surface the API client needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error
}

// TCG is a client of the trading-card API.
type TCG struct {
	base     string
	getter   JSONGetter
	pageSize int
}

// TCGOption configures a TCG client.
type TCGOption func(*TCG)

// WithPageSize overrides the card page size.
func WithPageSize(n int) TCGOption {
	return func(t *TCG) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// NewTCG returns a client for the API at baseURL.
func NewTCG(baseURL string, getter JSONGetter, opts ...TCGOption) *TCG {
	t := &TCG{base: strings.TrimRight(baseURL, "/"), getter: getter, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type cardsPage struct {
	Data       []model.Card `json:"data"`
	Count      int          `json:"count"`
	TotalCount *int         `json:"totalCount"`
}

type setsPage struct {
	Data []struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Images model.SetImages `json:"images"`
	} `json:"data"`
}

// SetCards returns every card of one set.
func (t *TCG) SetCards(ctx context.Context, setID string) ([]model.Card, error) {
	return t.pages(ctx, url.Values{
		"q":      {"set.id:" + setID},
		"select": {cardFields},
	}, nil)
}

// AllCards pages through the whole catalog. onPage, when set, sees each page
// as it arrives.
func (t *TCG) AllCards(ctx context.Context, onPage func(page int, cards []model.Card)) ([]model.Card, error) {
	return t.pages(ctx, url.Values{"select": {cardFields}}, onPage)
}

func (t *TCG) pages(ctx context.Context, query url.Values, onPage func(int, []model.Card)) ([]model.Card, error) {
	var all []model.Card
	for page := 1; ; page++ {
		q := cloneValues(query)
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(t.pageSize))

		var resp cardsPage
		if err := t.getter.GetJSON(ctx, t.base+"/cards", q, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return all, nil
		}
		all = append(all, resp.Data...)
		if onPage != nil {
			onPage(page, resp.Data)
		}

		total := page * t.pageSize
		switch {
		case resp.TotalCount != nil:
			total = *resp.TotalCount
		case len(resp.Data) < t.pageSize:
			total = len(all)
		}
		if page*t.pageSize >= total {
			return all, nil
		}
	}
}

// LatestSets returns the n most recently released sets, newest first.
func (t *TCG) LatestSets(ctx context.Context, n int) ([]model.PackSet, error) {
	var resp setsPage
	err := t.getter.GetJSON(ctx, t.base+"/sets", url.Values{
		"orderBy":  {"-releaseDate"},
		"pageSize": {strconv.Itoa(n)},
	}, &resp)
	if err != nil {
		return nil, err
	}
	sets := make([]model.PackSet, 0, len(resp.Data))
	for _, s := range resp.Data {
		sets = append(sets, model.PackSet{ID: s.ID, Name: s.Name, Images: s.Images})
	}
	return sets, nil
}

// Card looks a single card up by id.
func (t *TCG) Card(ctx context.Context, id string) (model.Card, error) {
	var resp struct {
		Data model.Card `json:"data"`
	}
	if err := t.getter.GetJSON(ctx, t.base+"/cards/"+url.PathEscape(id), nil, &resp); err != nil {
		return model.Card{}, err
	}
	return resp.Data, nil
}

// SampleCard returns the first card of a set, if any.
func (t *TCG) SampleCard(ctx context.Context, setID string) (model.Card, bool, error) {
	var resp cardsPage
	err := t.getter.GetJSON(ctx, t.base+"/cards", url.Values{
		"q":        {"set.id:" + setID},
		"page":     {"1"},
		"pageSize": {"1"},
		"select":   {"id,images"},
	}, &resp)
	if err != nil {
		return model.Card{}, false, err
	}
	if len(resp.Data) == 0 {
		return model.Card{}, false, nil
	}
	return resp.Data[0], true, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

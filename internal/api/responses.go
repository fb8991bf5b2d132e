package api

import (
	"context"

	"github.com/onnwee/vibemap/internal/geo"
	"github.com/onnwee/vibemap/internal/place"
	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/review"
	"github.com/onnwee/vibemap/internal/session"
)

// PlaceService is the data surface the handlers read from and write to.
// *session.Session implements it.
type PlaceService interface {
	Status() (session.Status, error)
	Places() ([]*place.Place, error)
	Cuisines() ([]string, error)
	PlaceDetail(ctx context.Context, id string) (*session.PlaceDetail, error)
	SubmitReview(ctx context.Context, n review.NewReview) (*review.Review, error)
	Rank(filter ranking.FilterState) (*ranking.Outcome, error)
}

// PlaceResponse is the public representation of a place.
type PlaceResponse struct {
	ID       string   `json:"id"`
	OSMID    string   `json:"osm_id"`
	Name     string   `json:"name"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Geohash  string   `json:"geohash,omitempty"`
	Cuisines []string `json:"cuisines"`
	Address  *string  `json:"address,omitempty"`
}

func toPlaceResponse(p *place.Place) PlaceResponse {
	resp := PlaceResponse{
		ID:       p.ID,
		OSMID:    p.OSMID,
		Name:     p.DisplayName(),
		Cuisines: p.Cuisines(),
		Address:  p.Address,
	}
	if resp.Cuisines == nil {
		resp.Cuisines = []string{}
	}
	if pt, ok := p.Location(); ok {
		resp.Lat = p.Lat
		resp.Lng = p.Lng
		resp.Geohash = geo.Encode(pt.Lat, pt.Lng, geo.DefaultPrecision)
	}
	return resp
}

func toPlaceResponses(places []*place.Place) []PlaceResponse {
	out := make([]PlaceResponse, 0, len(places))
	for _, p := range places {
		out = append(out, toPlaceResponse(p))
	}
	return out
}

// RankedPlaceResponse is one ranked entry.
type RankedPlaceResponse struct {
	Place   PlaceResponse `json:"place"`
	Average float64       `json:"average"`
	Count   int           `json:"count"`
}

// RankingResponse is the public form of a ranking outcome.
type RankingResponse struct {
	Mode        ranking.Mode          `json:"mode"`
	Reason      ranking.Reason        `json:"reason,omitempty"`
	Headline    string                `json:"headline"`
	Entries     []RankedPlaceResponse `json:"entries"`
	Suggestions []PlaceResponse       `json:"suggestions"`
	Context     ranking.Context       `json:"context"`
}

func toRankingResponse(o *ranking.Outcome) RankingResponse {
	resp := RankingResponse{
		Mode:        o.Mode,
		Reason:      o.Reason,
		Headline:    o.Headline(),
		Entries:     make([]RankedPlaceResponse, 0, len(o.Entries)),
		Suggestions: toPlaceResponses(o.Suggestions),
		Context:     o.Context,
	}
	for _, e := range o.Entries {
		resp.Entries = append(resp.Entries, RankedPlaceResponse{
			Place:   toPlaceResponse(e.Place),
			Average: e.Average,
			Count:   e.Count,
		})
	}
	return resp
}

package pipeline

import (
	"context"
	"errors"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// fakeScorer replays scripted responses in call order. A nil entry in errs
// means the matching call succeeds.
type fakeScorer struct {
	responses []string
	errs      []error
	calls     []scoring.Request
}

func (f *fakeScorer) Score(_ context.Context, req scoring.Request) (*scoring.Response, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("fakeScorer: no scripted response")
	}
	return &scoring.Response{Text: f.responses[i]}, nil
}

// fakeAds is an in-memory store.Ads.
type fakeAds struct {
	ads         map[string][]model.NormalizedAdRecord
	labels      map[string][]model.AdLabel
	competitors map[string][]model.ValidatedCompetitor
	saveErr     error
}

func newFakeAds() *fakeAds {
	return &fakeAds{
		ads:         map[string][]model.NormalizedAdRecord{},
		labels:      map[string][]model.AdLabel{},
		competitors: map[string][]model.ValidatedCompetitor{},
	}
}

func (f *fakeAds) SaveAds(_ context.Context, runID string, ads []model.NormalizedAdRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.ads[runID] = append(f.ads[runID], ads...)
	return nil
}

func (f *fakeAds) DeleteAds(_ context.Context, runID string) error {
	delete(f.ads, runID)
	return nil
}

func (f *fakeAds) ListAds(_ context.Context, runID string, filter store.AdFilter) ([]model.NormalizedAdRecord, error) {
	var out []model.NormalizedAdRecord
	for _, ad := range f.ads[runID] {
		if filter.Brand != "" && ad.Brand != filter.Brand {
			continue
		}
		if filter.OnlyImages && len(ad.ImageURLs) == 0 {
			continue
		}
		out = append(out, ad)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAds) CountAds(_ context.Context, runID string) (int, error) {
	return len(f.ads[runID]), nil
}

func (f *fakeAds) CountAdsWithImages(_ context.Context, runID string) (int, error) {
	n := 0
	for _, ad := range f.ads[runID] {
		if len(ad.ImageURLs) > 0 {
			n++
		}
	}
	return n, nil
}

func (f *fakeAds) SaveAdLabels(_ context.Context, runID string, labels []model.AdLabel) error {
	f.labels[runID] = append(f.labels[runID], labels...)
	return nil
}

func (f *fakeAds) SaveCompetitors(_ context.Context, runID string, competitors []model.ValidatedCompetitor) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.competitors[runID] = append(f.competitors[runID], competitors...)
	return nil
}

func (f *fakeAds) DeleteCompetitors(_ context.Context, runID string) error {
	delete(f.competitors, runID)
	return nil
}

func (f *fakeAds) ListCompetitors(_ context.Context, runID string) ([]model.ValidatedCompetitor, error) {
	return f.competitors[runID], nil
}

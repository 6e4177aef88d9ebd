package metadata

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// seasonFetchWorkers bounds concurrent season requests of one series
const seasonFetchWorkers = 4

// FetchSeries fetches a series and the episodes of every listed season.
// The returned map is keyed by season number. Any failed season request
// fails the whole fetch.
func FetchSeries(ctx context.Context, client Client, id, lang string) (*SeriesDetail, map[int][]EpisodeDetail, error) {
	detail, err := client.GetSeries(ctx, id, lang)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	episodes := make(map[int][]EpisodeDetail, len(detail.Seasons))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(seasonFetchWorkers)
	for _, season := range detail.Seasons {
		number := season.SeasonNumber
		p.Go(func(ctx context.Context) error {
			eps, err := client.GetSeasonEpisodes(ctx, id, number, lang)
			if err != nil {
				return err
			}
			mu.Lock()
			episodes[number] = eps
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return detail, episodes, nil
}

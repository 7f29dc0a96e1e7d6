package domain

type Show struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Format      string   `json:"format,omitempty"`
	PosterURL   string   `json:"poster_url"`
	BannerURL   string   `json:"banner_url"`
	Seasons     []Season `json:"seasons"`
}

type Season struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Episodes []Episode `json:"episodes"`
}

type Episode struct {
	ID           int               `json:"id"`
	Title        string            `json:"title"`
	ThumbnailURL string            `json:"thumbnail_url"`
	Subtitles    map[string]string `json:"subtitles"`
	Duration     float64           `json:"duration"`
	StreamURL    string            `json:"stream_url"`
}

// EpisodeByID resolves an episode by its show-wide number. Episodes are
// numbered from 1 across seasons, so episode 3 of a show whose first season
// has two episodes is the first episode of season two.
func EpisodeByID(show Show, episodeID int) (Episode, bool) {
	if episodeID < 1 {
		return Episode{}, false
	}
	offset := 0
	for _, season := range show.Seasons {
		start := offset
		offset += len(season.Episodes)
		if episodeID <= offset {
			return season.Episodes[episodeID-start-1], true
		}
	}
	return Episode{}, false
}

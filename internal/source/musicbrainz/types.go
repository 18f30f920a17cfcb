package musicbrainz

// searchResponse is the JSON response from the release search endpoint.
type searchResponse struct {
	Count    int         `json:"count"`
	Releases []mbRelease `json:"releases"`
}

// mbRelease is a single release from a MusicBrainz search or lookup.
type mbRelease struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	Score        int            `json:"score"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	LabelInfo    []labelInfo    `json:"label-info"`
	TrackCount   int            `json:"track-count"`
}

type artistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
}

type labelInfo struct {
	Label struct {
		Name string `json:"name"`
	} `json:"label"`
}

package deezer

// searchResponse is the JSON response from the album search endpoint.
type searchResponse struct {
	Data  []albumResult `json:"data"`
	Total int           `json:"total"`
}

// albumResult is a single album from a Deezer search or album endpoint.
type albumResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	ReleaseDate string `json:"release_date"`
	Label       string `json:"label"`
	NbTracks    int    `json:"nb_tracks"`
	Duration    int    `json:"duration"`
	Artist      struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	Genres struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"genres"`
	Error *apiError `json:"error,omitempty"`
}

// apiError is Deezer's embedded error object; the API answers 200 even
// for unknown IDs.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

package server

import (
	"net/http"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/tracking"
)

// trackPageData feeds pages/track.html
type trackPageData struct {
	Mode     tracking.Mode
	Query    string
	Searched bool
	Result   tracking.Result
}

// handleTrackPage renders the tracking search and, when a query was sent,
// its result. ?tracking=<code> is accepted as a code search.
func (s *Server) handleTrackPage(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "track.title")
	q := r.URL.Query()

	page := trackPageData{Mode: tracking.ParseMode(q.Get("mode"))}

	switch {
	case q.Has("q"):
		page.Query = q.Get("q")
		page.Searched = true
	case q.Get("tracking") != "":
		page.Mode = tracking.ModeCode
		page.Query = q.Get("tracking")
		page.Searched = true
	}

	if page.Searched {
		result, err := s.tracking.Lookup(r.Context(), page.Mode, page.Query)
		page.Result = result
		if err != nil {
			data.Flash = errorFlash(domain.MessageOf(err))
			if domain.KindOf(err) == domain.KindEmptyQuery {
				key := "track.emptyCode"
				if page.Mode == tracking.ModePhone {
					key = "track.emptyPhone"
				}
				data.Flash = &FlashMessage{Type: "warning", Message: s.catalog.T(data.Lang, key)}
			}
		}
	}

	data.Data = page
	s.render(w, r, "pages/track.html", data)
}

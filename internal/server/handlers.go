package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

// maxCaptionBody bounds uploaded caption files
const maxCaptionBody = 5 << 20

type providersResponse struct {
	Providers []providers.Provider `json:"providers"`
}

type sourcesResponse struct {
	Sources []providers.VideoSource `json:"sources"`
}

type subtitlesResponse struct {
	Tracks []subtitles.Track `json:"tracks"`
}

type captionsResponse struct {
	Cues []subtitles.Cue `json:"cues"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	all := []providers.Provider{}
	if s.deps.Registry != nil {
		all = s.deps.Registry.All()
	}
	writeJSON(w, http.StatusOK, providersResponse{Providers: all})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromHTTP(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sources := s.deps.Resolver.Resolve(r.Context(), req)
	if sources == nil {
		sources = []providers.VideoSource{}
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sources})
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromHTTP(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tracks := s.deps.Subtitles.TracksFor(r.Context(), req)
	if tracks == nil {
		tracks = []subtitles.Track{}
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{Tracks: tracks})
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	cues, err := s.deps.Subtitles.FetchCues(r.Context(), r.URL.Query().Get("url"))
	if errors.Is(err, subtitles.ErrInvalidCaptionURL) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.logger.Warn("caption fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if cues == nil {
		cues = []subtitles.Cue{}
	}
	writeJSON(w, http.StatusOK, captionsResponse{Cues: cues})
}

func (s *Server) handleParseCaptions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCaptionBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("caption file exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}

	cues := subtitles.ParseCaptions(string(body))
	if cues == nil {
		cues = []subtitles.Cue{}
	}
	writeJSON(w, http.StatusOK, captionsResponse{Cues: cues})
}

// requestFromHTTP reads a source request from the path and query string
func requestFromHTTP(r *http.Request) (providers.SourceRequest, error) {
	kind, err := providers.ParseMediaKind(chi.URLParam(r, "kind"))
	if err != nil {
		return providers.SourceRequest{}, err
	}

	q := r.URL.Query()
	season, err := intParam(q.Get("season"))
	if err != nil {
		return providers.SourceRequest{}, fmt.Errorf("%w: season: %v", providers.ErrInvalidRequest, err)
	}
	episode, err := intParam(q.Get("episode"))
	if err != nil {
		return providers.SourceRequest{}, fmt.Errorf("%w: episode: %v", providers.ErrInvalidRequest, err)
	}
	dubbed := false
	if v := q.Get("dub"); v != "" {
		dubbed, err = strconv.ParseBool(v)
		if err != nil {
			return providers.SourceRequest{}, fmt.Errorf("%w: dub: %v", providers.ErrInvalidRequest, err)
		}
	}

	req := providers.NewSourceRequest(kind, chi.URLParam(r, "id"), season, episode, dubbed)
	if err := req.Validate(); err != nil {
		return providers.SourceRequest{}, err
	}
	return req, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

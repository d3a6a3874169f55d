package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const defaultMaxPerPage = 100

type sortInfo struct {
	SortBy movie.SortField `json:"sort_by"`
	Order  movie.SortOrder `json:"order"`
}

type listResponse struct {
	Movies     []movie.Record   `json:"movies"`
	Pagination movie.Pagination `json:"pagination"`
	Sort       sortInfo         `json:"sort"`
}

type movieResponse struct {
	Movie movie.Record `json:"movie"`
}

type searchResponse struct {
	Movies []movie.Record `json:"movies"`
	Count  int            `json:"count"`
}

// listQuery is the normalised form of the /api/movies query string.
type listQuery struct {
	page    int
	perPage int
	field   movie.SortField
	order   movie.SortOrder
}

func (s *Server) parseListQuery(r *http.Request) listQuery {
	q := r.URL.Query()

	defaultPer := s.cfg.API.DefaultPerPage
	if defaultPer <= 0 {
		defaultPer = 10
	}
	maxPer := s.cfg.API.MaxPerPage
	if maxPer < defaultPer {
		maxPer = max(defaultPer, defaultMaxPerPage)
	}

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	switch {
	case err != nil || perPage < 1:
		perPage = defaultPer
	case perPage > maxPer:
		perPage = maxPer
	}

	field, order := movie.NormalizeSort(movie.SortField(q.Get("sort_by")), movie.SortOrder(q.Get("order")))
	return listQuery{page: page, perPage: perPage, field: field, order: order}
}

// openStore opens a handle for one request, answering 500 on failure.
func (s *Server) openStore(w http.ResponseWriter, r *http.Request) (movie.Store, bool) {
	store, err := s.opener.Open(r.Context())
	if err != nil {
		s.logger.Error("open store", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return nil, false
	}
	return store, true
}

func (s *Server) closeStore(store movie.Store) {
	if err := store.Close(); err != nil {
		s.logger.Warn("close store", zap.Error(err))
	}
}

func (s *Server) storageFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op,
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "failed to load movies")
}

func (s *Server) listMovies(w http.ResponseWriter, r *http.Request) {
	lq := s.parseListQuery(r)

	store, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer s.closeStore(store)

	ctx := r.Context()
	total, err := store.Count(ctx)
	if err != nil {
		s.storageFailed(w, r, "count movies", err)
		return
	}
	records, err := store.ListSorted(ctx, lq.field, lq.order, lq.perPage, movie.Offset(lq.page, lq.perPage))
	if err != nil {
		s.storageFailed(w, r, "list movies", err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Movies:     nonNil(records),
		Pagination: movie.NewPagination(total, lq.page, lq.perPage),
		Sort:       sortInfo{SortBy: lq.field, Order: lq.order},
	})
}

func (s *Server) randomMovie(w http.ResponseWriter, r *http.Request) {
	store, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer s.closeStore(store)

	ctx := r.Context()
	ids, err := store.ListIDs(ctx)
	if err != nil {
		s.storageFailed(w, r, "list movie ids", err)
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusNotFound, "no movies in database")
		return
	}

	id := ids[s.pick(len(ids))]
	rec, err := store.Get(ctx, id)
	if err != nil {
		// Only a concurrent scrape can remove an id between the two queries.
		s.logger.Error("load random movie",
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Int64("id", id),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}
	writeJSON(w, http.StatusOK, movieResponse{Movie: rec})
}

func (s *Server) getMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}

	store, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer s.closeStore(store)

	rec, err := store.Get(r.Context(), id)
	switch {
	case errors.Is(err, movie.ErrNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
	case err != nil:
		s.storageFailed(w, r, "get movie", err)
	default:
		writeJSON(w, http.StatusOK, movieResponse{Movie: rec})
	}
}

func (s *Server) searchMovies(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	store, ok := s.openStore(w, r)
	if !ok {
		return
	}
	defer s.closeStore(store)

	records, err := store.Search(r.Context(), keyword)
	if err != nil {
		s.storageFailed(w, r, "search movies", err)
		return
	}
	records = nonNil(records)
	writeJSON(w, http.StatusOK, searchResponse{Movies: records, Count: len(records)})
}

func nonNil(records []movie.Record) []movie.Record {
	if records == nil {
		return []movie.Record{}
	}
	return records
}

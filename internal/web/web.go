package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"streamcal/internal/config"
	"streamcal/internal/format"
	"streamcal/internal/ics"
	"streamcal/internal/live"
	appLog "streamcal/internal/log"
	"streamcal/internal/model"
	"streamcal/internal/schedule"
	"streamcal/internal/tz"
)

// ScheduleSource yields the current projection of the schedule.
type ScheduleSource interface {
	Current(now time.Time) (schedule.Snapshot, error)
}

// Server provides the widget page, its JSON APIs and the ICS feed.
type Server struct {
	cfg      *config.Config
	mux      *http.ServeMux
	schedule ScheduleSource
	catalog  *format.Catalog
	page     *template.Template
	now      func() time.Time

	liveMu sync.RWMutex
	live   live.State
}

//go:embed templates/*.html
var templateFS embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, source ScheduleSource, catalog *format.Catalog) *Server {
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		schedule: source,
		catalog:  catalog,
		page:     template.Must(template.ParseFS(templateFS, "templates/schedule.html")),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// SetLive publishes the latest live state to /api/live and the page.
func (s *Server) SetLive(st live.State) {
	s.liveMu.Lock()
	s.live = st
	s.liveMu.Unlock()
}

func (s *Server) liveState() live.State {
	s.liveMu.RLock()
	defer s.liveMu.RUnlock()
	return s.live
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="streamcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/live", s.handleLive)
	s.mux.HandleFunc("GET /schedule.ics", s.handleICS)
	s.mux.HandleFunc("GET /schedule", s.handlePage)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/schedule", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// view is one request's rendering context: locale, display zone, clock.
type view struct {
	fmt    *format.Formatter
	zone   string
	hour12 bool
}

// viewFor resolves ?locale= then Accept-Language then the configured
// locale, and ?tz= over the configured display zone.
func (s *Server) viewFor(r *http.Request) view {
	q := r.URL.Query()

	zone := s.cfg.Timezone
	if z := tz.NormalizeTZID(q.Get("tz")); z != "" && tz.Known(z) {
		zone = z
	}

	pref := s.cfg.Hour12
	if h := q.Get("hour12"); h != "" {
		pref = h
	}
	hour12 := format.Hour12(pref, zone)

	var prefs []string
	if l := strings.TrimSpace(q.Get("locale")); l != "" {
		prefs = append(prefs, l)
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		prefs = append(prefs, al)
	}
	prefs = append(prefs, s.cfg.Locale)

	return view{
		fmt:    format.New(s.catalog.Localizer(prefs...), zone, hour12),
		zone:   zone,
		hour12: hour12,
	}
}

// occurrenceDTO is a JSON-friendly view of an occurrence.
type occurrenceDTO struct {
	Start     time.Time `json:"start"`
	Zone      string    `json:"zone"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Game      string    `json:"game"`
	Label     string    `json:"label"`
	Countdown string    `json:"countdown"`
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Timezone    string          `json:"timezone"`
	Hour12      bool            `json:"hour12"`
	GeneratedAt time.Time       `json:"generated_at"`
	FetchedAt   time.Time       `json:"fetched_at"`
	FromCache   bool            `json:"from_cache"`
	Next        *occurrenceDTO  `json:"next"`
	Expanded    []occurrenceDTO `json:"expanded"`
	Occurrences []occurrenceDTO `json:"occurrences"`
	// Message is the NoUpcoming phrase when there is nothing to show.
	Message string `json:"message,omitempty"`
	// Error is the LoadFailed phrase when the feed could not be loaded.
	Error string `json:"error,omitempty"`
}

func (s *Server) buildSchedule(v view, snap schedule.Snapshot, now time.Time) scheduleResponse {
	resp := scheduleResponse{
		Timezone:    v.zone,
		Hour12:      v.hour12,
		GeneratedAt: snap.GeneratedAt,
		FetchedAt:   snap.FetchedAt,
		FromCache:   snap.FromCache,
		Expanded:    []occurrenceDTO{},
		Occurrences: make([]occurrenceDTO, 0, len(snap.Occurrences)),
	}
	if snap.Err != nil {
		resp.Error = v.fmt.Phrase(format.MsgLoadFailed, nil)
		return resp
	}

	for _, occ := range snap.Occurrences {
		resp.Occurrences = append(resp.Occurrences, toDTO(v.fmt, occ, now))
	}
	if len(resp.Occurrences) == 0 {
		resp.Message = v.fmt.Phrase(format.MsgNoUpcoming, nil)
		return resp
	}

	next := resp.Occurrences[0]
	resp.Next = &next
	rest := resp.Occurrences[1:]
	if len(rest) > s.cfg.ExpandedCount {
		rest = rest[:s.cfg.ExpandedCount]
	}
	resp.Expanded = append(resp.Expanded, rest...)
	return resp
}

func toDTO(f *format.Formatter, occ model.Occurrence, now time.Time) occurrenceDTO {
	return occurrenceDTO{
		Start:     occ.Instant,
		Zone:      occ.Zone,
		Title:     occ.Title,
		Category:  occ.Category,
		Game:      f.Game(occ),
		Label:     f.Label(occ),
		Countdown: f.Countdown(occ, now),
	}
}

// currentSnapshot maps "not loaded yet" onto a failed snapshot so every
// consumer shows the LoadFailed phrase.
func (s *Server) currentSnapshot(now time.Time) schedule.Snapshot {
	snap, err := s.schedule.Current(now)
	if err != nil {
		if !errors.Is(err, schedule.ErrNoSnapshot) {
			appLog.Error("schedule unavailable", err)
		}
		return schedule.Snapshot{GeneratedAt: now, Err: err}
	}
	return snap
}

// handleSchedule returns the next stream and the expanded list.
//
// GET /api/schedule?locale=ro&tz=Europe/Bucharest&hour12=auto
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	v := s.viewFor(r)
	snap := s.currentSnapshot(now)

	status := http.StatusOK
	if errors.Is(snap.Err, schedule.ErrNoSnapshot) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, s.buildSchedule(v, snap, now))
}

// liveResponse is the JSON response shape for /api/live.
type liveResponse struct {
	Enabled bool `json:"enabled"`
	live.State
	Status string `json:"status"`
	Title  string `json:"title"`
}

func (s *Server) buildLive(v view) liveResponse {
	st := s.liveState()
	resp := liveResponse{Enabled: s.cfg.LiveURL != "", State: st}
	if resp.Platforms == nil {
		resp.Platforms = []string{}
	}

	if !st.Live {
		resp.Title = v.fmt.Phrase(format.MsgOffline, nil)
		return resp
	}

	if len(st.Platforms) == 0 {
		resp.Status = v.fmt.Phrase(format.MsgLiveNow, nil)
		resp.Title = v.fmt.Phrase(format.MsgLiveTitle, map[string]any{
			"Platforms": v.fmt.Phrase(format.MsgAllPlatforms, nil),
		})
		return resp
	}

	upper := make([]string, len(st.Platforms))
	for i, p := range st.Platforms {
		upper[i] = strings.ToUpper(p)
	}
	resp.Status = v.fmt.Phrase(format.MsgLiveNowOn, map[string]any{"Platforms": strings.Join(upper, " · ")})
	resp.Title = v.fmt.Phrase(format.MsgLiveTitle, map[string]any{"Platforms": strings.Join(st.Platforms, ", ")})
	return resp
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildLive(s.viewFor(r)))
}

// handleICS serves the projected occurrences as a subscribable feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	snap := s.currentSnapshot(now)
	if snap.Err != nil {
		http.Error(w, "schedule unavailable", http.StatusServiceUnavailable)
		return
	}

	body := ics.Export(snap.Occurrences, ics.ExportOptions{Name: "Upcoming streams", Stamp: now})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// pageData feeds templates/schedule.html.
type pageData struct {
	Lang       string
	NextStream string
	ShowMore   string
	HideMore   string
	Schedule   scheduleResponse
	Live       liveResponse
}

// handlePage renders the widget. The root element carries
// data-ready="true" once rendered, which the snapshot capture waits for.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	v := s.viewFor(r)
	snap := s.currentSnapshot(now)

	data := pageData{
		Lang:       pageLang(r, s.cfg.Locale),
		NextStream: v.fmt.Phrase(format.MsgNextStream, nil),
		ShowMore:   v.fmt.Phrase(format.MsgShowMore, nil),
		HideMore:   v.fmt.Phrase(format.MsgHideMore, nil),
		Schedule:   s.buildSchedule(v, snap, now),
		Live:       s.buildLive(v),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Execute(w, data); err != nil {
		appLog.Error("failed to render schedule page", err)
	}
}

func pageLang(r *http.Request, fallback string) string {
	if l := strings.TrimSpace(r.URL.Query().Get("locale")); l != "" {
		return l
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

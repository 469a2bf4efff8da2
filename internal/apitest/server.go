// Package apitest provides an in-process stand-in for the Assessly REST
// API. It implements the same envelope and routes as the real platform,
// assigns sequential numeric ids, records every call, and can inject
// one-shot failures per route. Tests drive the real client and engines
// against it instead of a live deployment.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Call is one recorded request, identified by method and route pattern.
type Call struct {
	Method string
	Route  string
}

func (c Call) String() string { return c.Method + " " + c.Route }

// Server is the in-memory API double.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int64
	calls    []Call
	failures map[string]int // "METHOD /route" → remaining injected failures

	assessments map[int64]*assessmentRow
	modules     map[int64]*moduleRow
	moduleIDs   []int64
	questions   map[int64]*questionRow
	questionIDs []int64
	optionOwner map[int64]int64 // option id → question id

	attempts     map[int64]*attemptRow
	byAssessment map[int64]int64 // assessment id → attempt id
	// StartOverride, when set, is used as started_at for newly created
	// attempts so timer tests can control the deadline.
	startOverride *time.Time

	saved map[int64][]SavedAnswer // attempt id → saves in arrival order
}

type assessmentRow struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Type            string  `json:"type"`
	Order           int     `json:"order"`
	Instructions    string  `json:"instructions,omitempty"`
	TotalMarks      *int    `json:"total_marks,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	IsActive        bool    `json:"is_active"`
}

type moduleRow struct {
	ID           int64  `json:"id"`
	AssessmentID int64  `json:"assessment_id"`
	Title        string `json:"title"`
	Code         string `json:"code"`
	TimeLimitMin *int   `json:"time_limit_min,omitempty"`
	Order        int    `json:"order"`
}

type optionRow struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

type questionRow struct {
	ID           int64       `json:"id"`
	ModuleID     int64       `json:"module_id"`
	AssessmentID int64       `json:"assessment_id"`
	Type         string      `json:"type"`
	Stem         string      `json:"stem"`
	Marks        int         `json:"marks"`
	Difficulty   string      `json:"difficulty"`
	Topic        *string     `json:"topic,omitempty"`
	Options      []optionRow `json:"options,omitempty"`
}

type attemptRow struct {
	ID           int64      `json:"id"`
	AssessmentID int64      `json:"assessment_id"`
	StudentID    int64      `json:"student_id"`
	StartedAt    time.Time  `json:"started_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

type SavedAnswer struct {
	QuestionID int64   `json:"question_id"`
	OptionID   *int64  `json:"option_id,omitempty"`
	TextAnswer *string `json:"text_answer,omitempty"`
}

// NewServer starts the stub on a random port.
func NewServer() *Server {
	s := &Server{
		failures:     make(map[string]int),
		assessments:  make(map[int64]*assessmentRow),
		modules:      make(map[int64]*moduleRow),
		questions:    make(map[int64]*questionRow),
		optionOwner:  make(map[int64]int64),
		attempts:     make(map[int64]*attemptRow),
		byAssessment: make(map[int64]int64),
		saved:        make(map[int64][]SavedAnswer),
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(s.observe)

	r.POST("/auth/login", s.login)
	r.GET("/assessments", s.listAssessments)
	r.GET("/assessments/:id", s.getAssessment)
	r.POST("/assessments", s.createAssessment)
	r.PUT("/assessments/:id", s.updateAssessment)
	r.POST("/modules", s.createModule)
	r.PUT("/modules/:id", s.updateModule)
	r.DELETE("/modules/:id", s.deleteModule)
	r.POST("/questions", s.createQuestion)
	r.PUT("/questions/:id", s.updateQuestion)
	r.DELETE("/questions/:id", s.deleteQuestion)
	r.POST("/questions/:id/options", s.addOption)
	r.DELETE("/options/:id", s.deleteOption)
	r.POST("/assessments/:id/attempts", s.startAttempt)
	r.POST("/attempts/:id/save", s.saveAnswer)
	r.POST("/attempts/:id/submit", s.submitAttempt)

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the base URL for client configuration.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the stub down.
func (s *Server) Close() { s.srv.Close() }

// ─── Test controls ──────────────────────────────────────────────────────

// FailOnce makes the next n requests matching the route fail with a 500
// envelope. Route is the gin pattern, e.g. "POST /questions".
func (s *Server) FailOnce(method, route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+route] = n
}

// SetStartOverride fixes started_at for subsequently created attempts.
func (s *Server) SetStartOverride(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startOverride = &t
}

// Calls returns every recorded request in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts recorded requests matching method and route pattern.
func (s *Server) CountCalls(method, route string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Route == route {
			n++
		}
	}
	return n
}

// SavedAnswers returns the autosave payloads received for an attempt, in
// arrival order.
func (s *Server) SavedAnswers(attemptID int64) []SavedAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SavedAnswer(nil), s.saved[attemptID]...)
}

// SeedAssessment inserts an assessment with one module and the given
// MCQ questions directly into the store, bypassing the builder flow.
// Returns the assessment id.
func (s *Server) SeedAssessment(title string, durationMinutes *int, questionStems []string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	aID := s.nextIDLocked()
	s.assessments[aID] = &assessmentRow{
		ID: aID, Title: title, Type: "ONLINE", Order: 1,
		DurationMinutes: durationMinutes, IsActive: true,
	}

	mID := s.nextIDLocked()
	s.modules[mID] = &moduleRow{ID: mID, AssessmentID: aID, Title: "Module 1", Code: "M1", Order: 1}
	s.moduleIDs = append(s.moduleIDs, mID)

	for _, stem := range questionStems {
		qID := s.nextIDLocked()
		q := &questionRow{
			ID: qID, ModuleID: mID, AssessmentID: aID,
			Type: "MCQ", Stem: stem, Marks: 1, Difficulty: "medium",
		}
		for _, label := range []string{"Option 1", "Option 2"} {
			oID := s.nextIDLocked()
			q.Options = append(q.Options, optionRow{ID: oID, Label: label})
			s.optionOwner[oID] = qID
		}
		s.questions[qID] = q
		s.questionIDs = append(s.questionIDs, qID)
	}
	return aID
}

// ─── Middleware and envelope helpers ────────────────────────────────────

func (s *Server) observe(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: c.Request.Method, Route: c.FullPath()})
	inject := s.failures[key] > 0
	if inject {
		s.failures[key]--
	}
	s.mu.Unlock()

	if inject {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "injected failure")
		c.Abort()
		return
	}
	c.Next()
}

func metadata() gin.H {
	return gin.H{
		"request_id": uuid.NewString(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
}

func ok(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"data": data, "metadata": metadata()})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"data":     nil,
		"error":    gin.H{"code": code, "message": message},
		"metadata": metadata(),
	})
}

func (s *Server) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// ─── Handlers ───────────────────────────────────────────────────────────

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", "email and password required")
		return
	}
	ok(c, http.StatusOK, gin.H{"token": "stub-token-" + uuid.NewString()[:8]})
}

func (s *Server) listAssessments(c *gin.Context) {
	s.mu.Lock()
	out := make([]*assessmentRow, 0, len(s.assessments))
	for _, a := range s.assessments {
		out = append(out, a)
	}
	s.mu.Unlock()
	ok(c, http.StatusOK, gin.H{"assessments": out})
}

func (s *Server) getAssessment(c *gin.Context) {
	id := paramID(c)

	s.mu.Lock()
	a, found := s.assessments[id]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "assessment not found")
		return
	}

	detail := gin.H{
		"id": a.ID, "title": a.Title, "type": a.Type, "order": a.Order,
		"instructions": a.Instructions, "total_marks": a.TotalMarks,
		"duration_minutes": a.DurationMinutes, "is_active": a.IsActive,
	}
	var mods []gin.H
	for _, mID := range s.moduleIDs {
		m := s.modules[mID]
		if m == nil || m.AssessmentID != id {
			continue
		}
		var qs []*questionRow
		for _, qID := range s.questionIDs {
			q := s.questions[qID]
			if q != nil && q.ModuleID == mID {
				qs = append(qs, q)
			}
		}
		mods = append(mods, gin.H{
			"id": m.ID, "assessment_id": m.AssessmentID, "title": m.Title,
			"code": m.Code, "time_limit_min": m.TimeLimitMin, "order": m.Order,
			"questions": qs,
		})
	}
	detail["modules"] = mods
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"assessment": detail})
}

func (s *Server) createAssessment(c *gin.Context) {
	var row assessmentRow
	if err := c.ShouldBindJSON(&row); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if row.Title == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "title required")
		return
	}

	s.mu.Lock()
	row.ID = s.nextIDLocked()
	s.assessments[row.ID] = &row
	s.mu.Unlock()

	ok(c, http.StatusCreated, gin.H{"assessment": row})
}

func (s *Server) updateAssessment(c *gin.Context) {
	id := paramID(c)
	var row assessmentRow
	if err := c.ShouldBindJSON(&row); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	if _, found := s.assessments[id]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "assessment not found")
		return
	}
	row.ID = id
	s.assessments[id] = &row
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"assessment": row})
}

func (s *Server) createModule(c *gin.Context) {
	var row moduleRow
	if err := c.ShouldBindJSON(&row); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	row.ID = s.nextIDLocked()
	s.modules[row.ID] = &row
	s.moduleIDs = append(s.moduleIDs, row.ID)
	s.mu.Unlock()

	ok(c, http.StatusCreated, gin.H{"module": row})
}

func (s *Server) updateModule(c *gin.Context) {
	id := paramID(c)
	var row moduleRow
	if err := c.ShouldBindJSON(&row); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	if _, found := s.modules[id]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "module not found")
		return
	}
	row.ID = id
	s.modules[id] = &row
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"module": row})
}

func (s *Server) deleteModule(c *gin.Context) {
	id := paramID(c)

	s.mu.Lock()
	if _, found := s.modules[id]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "module not found")
		return
	}
	delete(s.modules, id)
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{})
}

func (s *Server) createQuestion(c *gin.Context) {
	var req struct {
		questionRow
		Points  int `json:"points"`
		Options []struct {
			Label     string `json:"label"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	row := req.questionRow
	row.Options = nil
	row.ID = s.nextIDLocked()
	for _, o := range req.Options {
		oID := s.nextIDLocked()
		row.Options = append(row.Options, optionRow{ID: oID, Label: o.Label, IsCorrect: o.IsCorrect})
		s.optionOwner[oID] = row.ID
	}
	s.questions[row.ID] = &row
	s.questionIDs = append(s.questionIDs, row.ID)
	s.mu.Unlock()

	ok(c, http.StatusCreated, gin.H{"question": row})
}

func (s *Server) updateQuestion(c *gin.Context) {
	id := paramID(c)
	var row questionRow
	if err := c.ShouldBindJSON(&row); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	existing, found := s.questions[id]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}
	// Updates never touch options.
	row.ID = id
	row.Options = existing.Options
	s.questions[id] = &row
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"question": row})
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id := paramID(c)

	s.mu.Lock()
	if _, found := s.questions[id]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}
	delete(s.questions, id)
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{})
}

func (s *Server) addOption(c *gin.Context) {
	qID := paramID(c)
	var req struct {
		Label     string `json:"label"`
		IsCorrect bool   `json:"is_correct"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	q, found := s.questions[qID]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}
	row := optionRow{ID: s.nextIDLocked(), Label: req.Label, IsCorrect: req.IsCorrect}
	q.Options = append(q.Options, row)
	s.optionOwner[row.ID] = qID
	s.mu.Unlock()

	ok(c, http.StatusCreated, gin.H{"option": row})
}

func (s *Server) deleteOption(c *gin.Context) {
	id := paramID(c)

	s.mu.Lock()
	qID, found := s.optionOwner[id]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "option not found")
		return
	}
	delete(s.optionOwner, id)
	if q := s.questions[qID]; q != nil {
		for i, o := range q.Options {
			if o.ID == id {
				q.Options = append(q.Options[:i], q.Options[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{})
}

func (s *Server) startAttempt(c *gin.Context) {
	aID := paramID(c)

	s.mu.Lock()
	if _, found := s.assessments[aID]; !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "assessment not found")
		return
	}

	// Idempotent: an in-flight attempt is returned rather than erroring.
	if attID, exists := s.byAssessment[aID]; exists {
		att := s.attempts[attID]
		if att.SubmittedAt == nil {
			s.mu.Unlock()
			ok(c, http.StatusOK, gin.H{"attempt": att})
			return
		}
	}

	startedAt := time.Now()
	if s.startOverride != nil {
		startedAt = *s.startOverride
	}
	att := &attemptRow{
		ID:           s.nextIDLocked(),
		AssessmentID: aID,
		StudentID:    1,
		StartedAt:    startedAt,
	}
	s.attempts[att.ID] = att
	s.byAssessment[aID] = att.ID
	s.mu.Unlock()

	ok(c, http.StatusCreated, gin.H{"attempt": att})
}

func (s *Server) saveAnswer(c *gin.Context) {
	attID := paramID(c)
	var req SavedAnswer
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	att, found := s.attempts[attID]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "attempt not found")
		return
	}
	if att.SubmittedAt != nil {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "ATTEMPT_ALREADY_SUBMITTED", "attempt is finalized")
		return
	}
	s.saved[attID] = append(s.saved[attID], req)
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{})
}

func (s *Server) submitAttempt(c *gin.Context) {
	attID := paramID(c)

	s.mu.Lock()
	att, found := s.attempts[attID]
	if !found {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "NOT_FOUND", "attempt not found")
		return
	}
	if att.SubmittedAt != nil {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "ATTEMPT_ALREADY_SUBMITTED", "attempt is finalized")
		return
	}
	now := time.Now()
	att.SubmittedAt = &now
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"attempt": att})
}

func paramID(c *gin.Context) int64 {
	var id int64
	for _, p := range c.Params {
		if p.Key == "id" {
			for _, ch := range p.Value {
				if ch < '0' || ch > '9' {
					return 0
				}
				id = id*10 + int64(ch-'0')
			}
		}
	}
	return id
}

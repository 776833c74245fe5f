// Package testrailtest provides an in-memory TestRail API server for tests.
package testrailtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/bitrise-steplib/steps-testrail/testrail"
)

// Credentials accepted by a new Server.
const (
	Username = "ci@example.com"
	Password = "api-key"
)

// RunRecord is a run created through add_run.
type RunRecord struct {
	testrail.Run
	CaseIDs []int
}

// ResultRecord is a result posted through add_result_for_case.
type ResultRecord struct {
	RunID  int
	CaseID int
	testrail.NewResult
}

// Server ...
type Server struct {
	URL string
	// PageSize enables the paginated envelope on list endpoints. Zero answers with bare arrays.
	PageSize int

	server *httptest.Server

	mu       sync.Mutex
	nextID   int
	projects []testrail.Project
	users    []testrail.User
	suites   []testrail.Suite
	sections []testrail.Section
	cases    []testrail.Case
	runs     []RunRecord
	results  []ResultRecord
	requests []string
	failures map[string]*failure
}

type failure struct {
	statusCode int
	remaining  int
}

// NewServer starts a server with no projects. Close it when done.
func NewServer() *Server {
	s := &Server{
		nextID:   1,
		failures: map[string]*failure{},
	}
	s.server = httptest.NewServer(s)
	s.URL = s.server.URL
	return s
}

// Close ...
func (s *Server) Close() {
	s.server.Close()
}

// AddProject creates a project with a single suite and returns both.
func (s *Server) AddProject(name string) (testrail.Project, testrail.Suite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project := testrail.Project{ID: s.id(), Name: name, SuiteMode: testrail.SuiteModeSingle}
	s.projects = append(s.projects, project)

	suite := testrail.Suite{ID: s.id(), ProjectID: project.ID, Name: "Master"}
	s.suites = append(s.suites, suite)

	return project, suite
}

// AddSuite ...
func (s *Server) AddSuite(projectID int, name string) testrail.Suite {
	s.mu.Lock()
	defer s.mu.Unlock()

	suite := testrail.Suite{ID: s.id(), ProjectID: projectID, Name: name}
	s.suites = append(s.suites, suite)
	return suite
}

// SetSuiteMode ...
func (s *Server) SetSuiteMode(projectID, suiteMode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.projects {
		if s.projects[i].ID == projectID {
			s.projects[i].SuiteMode = suiteMode
		}
	}
}

// AddUser ...
func (s *Server) AddUser(name, email string) testrail.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := testrail.User{ID: s.id(), Name: name, Email: email, IsActive: true}
	s.users = append(s.users, user)
	return user
}

// FailOn answers every request whose endpoint starts with prefix with the given status code.
func (s *Server) FailOn(prefix string, statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[prefix] = &failure{statusCode: statusCode, remaining: -1}
}

// FailTimes answers the next times requests whose endpoint starts with prefix with the given status code.
func (s *Server) FailTimes(prefix string, statusCode, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[prefix] = &failure{statusCode: statusCode, remaining: times}
}

// Sections ...
func (s *Server) Sections() []testrail.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]testrail.Section(nil), s.sections...)
}

// Cases ...
func (s *Server) Cases() []testrail.Case {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]testrail.Case(nil), s.cases...)
}

// Runs ...
func (s *Server) Runs() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RunRecord(nil), s.runs...)
}

// Results ...
func (s *Server) Results() []ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ResultRecord(nil), s.results...)
}

// RequestCount returns how many requests hit endpoints starting with prefix.
func (s *Server) RequestCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, endpoint := range s.requests {
		if strings.HasPrefix(endpoint, prefix) {
			count++
		}
	}
	return count
}

func (s *Server) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok || username != Username || password != Password {
		writeError(w, http.StatusUnauthorized, "Authentication failed: invalid or missing user/password or session cookie.")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.RawQuery, "/api/v2/"), "&")
	endpoint := parts[0]
	params := url.Values{}
	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(part, "=")
		unescaped, err := url.QueryUnescape(value)
		if err != nil {
			unescaped = value
		}
		params.Set(key, unescaped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, endpoint)
	for prefix, f := range s.failures {
		if !strings.HasPrefix(endpoint, prefix) || f.remaining == 0 {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		writeError(w, f.statusCode, "injected failure")
		return
	}

	segments := strings.Split(endpoint, "/")
	ids := make([]int, 0, len(segments)-1)
	for _, segment := range segments[1:] {
		id, err := strconv.Atoi(segment)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id: "+segment)
			return
		}
		ids = append(ids, id)
	}

	handler, ok := map[string]func(http.ResponseWriter, *http.Request, []int, url.Values){
		"get_projects":        s.getProjects,
		"get_project":         s.getProject,
		"get_user_by_email":   s.getUserByEmail,
		"get_suites":          s.getSuites,
		"get_sections":        s.getSections,
		"add_section":         s.addSection,
		"get_cases":           s.getCases,
		"add_case":            s.addCase,
		"add_run":             s.addRun,
		"add_result_for_case": s.addResultForCase,
	}[segments[0]]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown method '"+segments[0]+"'")
		return
	}

	wantPost := strings.HasPrefix(segments[0], "add_")
	if wantPost != (r.Method == http.MethodPost) {
		writeError(w, http.StatusBadRequest, "unexpected method "+r.Method)
		return
	}

	handler(w, r, ids, params)
}

func (s *Server) getProjects(w http.ResponseWriter, _ *http.Request, _ []int, params url.Values) {
	writeList(w, s.PageSize, "get_projects", params, "projects", s.projects)
}

func (s *Server) getProject(w http.ResponseWriter, _ *http.Request, ids []int, _ url.Values) {
	project, ok := s.project(ids)
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :project_id is not a valid or accessible project.")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) getUserByEmail(w http.ResponseWriter, _ *http.Request, _ []int, params url.Values) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, params.Get("email")) {
			writeJSON(w, http.StatusOK, user)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Field :email is not a valid email address.")
}

func (s *Server) getSuites(w http.ResponseWriter, _ *http.Request, ids []int, _ url.Values) {
	project, ok := s.project(ids)
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :project_id is not a valid or accessible project.")
		return
	}

	suites := []testrail.Suite{}
	for _, suite := range s.suites {
		if suite.ProjectID == project.ID {
			suites = append(suites, suite)
		}
	}
	writeJSON(w, http.StatusOK, suites)
}

func (s *Server) getSections(w http.ResponseWriter, _ *http.Request, ids []int, params url.Values) {
	suite, ok := s.suite(ids, params.Get("suite_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :suite_id is not a valid test suite.")
		return
	}

	sections := []testrail.Section{}
	for _, section := range s.sections {
		if section.SuiteID == suite.ID {
			sections = append(sections, section)
		}
	}
	writeList(w, s.PageSize, fmt.Sprintf("get_sections/%d", ids[0]), params, "sections", sections)
}

func (s *Server) addSection(w http.ResponseWriter, r *http.Request, ids []int, _ url.Values) {
	var payload testrail.NewSection
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, "Field :name is a required field.")
		return
	}

	suiteID := ""
	if payload.SuiteID > 0 {
		suiteID = strconv.Itoa(payload.SuiteID)
	}
	suite, ok := s.suite(ids, suiteID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :suite_id is not a valid test suite.")
		return
	}

	section := testrail.Section{ID: s.id(), SuiteID: suite.ID, Name: payload.Name, Description: payload.Description}
	s.sections = append(s.sections, section)
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) getCases(w http.ResponseWriter, _ *http.Request, ids []int, params url.Values) {
	suite, ok := s.suite(ids, params.Get("suite_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :suite_id is not a valid test suite.")
		return
	}
	sectionID, _ := strconv.Atoi(params.Get("section_id"))

	cases := []testrail.Case{}
	for _, c := range s.cases {
		if c.SuiteID != suite.ID || (sectionID > 0 && c.SectionID != sectionID) {
			continue
		}
		cases = append(cases, c)
	}
	writeList(w, s.PageSize, fmt.Sprintf("get_cases/%d", ids[0]), params, "cases", cases)
}

func (s *Server) addCase(w http.ResponseWriter, r *http.Request, ids []int, _ url.Values) {
	var payload testrail.NewCase
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Title == "" {
		writeError(w, http.StatusBadRequest, "Field :title is a required field.")
		return
	}

	for _, section := range s.sections {
		if len(ids) == 1 && section.ID == ids[0] {
			c := testrail.Case{
				ID:         s.id(),
				SectionID:  section.ID,
				SuiteID:    section.SuiteID,
				Title:      payload.Title,
				TemplateID: payload.TemplateID,
				TypeID:     payload.TypeID,
				PriorityID: payload.PriorityID,
			}
			s.cases = append(s.cases, c)
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Field :section_id is not a valid section.")
}

func (s *Server) addRun(w http.ResponseWriter, r *http.Request, ids []int, _ url.Values) {
	var payload testrail.NewRun
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suiteID := ""
	if payload.SuiteID > 0 {
		suiteID = strconv.Itoa(payload.SuiteID)
	}
	suite, ok := s.suite(ids, suiteID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Field :suite_id is not a valid test suite.")
		return
	}

	for _, caseID := range payload.CaseIDs {
		if !s.caseInSuite(caseID, suite.ID) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Field :case_ids contains the unknown case %d.", caseID))
			return
		}
	}

	run := RunRecord{
		Run: testrail.Run{
			ID:          s.id(),
			ProjectID:   ids[0],
			SuiteID:     suite.ID,
			Name:        payload.Name,
			Description: payload.Description,
			IncludeAll:  payload.IncludeAll,
		},
		CaseIDs: append([]int{}, payload.CaseIDs...),
	}
	run.URL = fmt.Sprintf("%s/index.php?/runs/view/%d", s.URL, run.ID)
	s.runs = append(s.runs, run)
	writeJSON(w, http.StatusOK, run.Run)
}

func (s *Server) addResultForCase(w http.ResponseWriter, r *http.Request, ids []int, _ url.Values) {
	var payload testrail.NewResult
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(ids) != 2 {
		writeError(w, http.StatusBadRequest, "Field :run_id and :case_id are required.")
		return
	}

	for _, run := range s.runs {
		if run.ID != ids[0] {
			continue
		}
		included := run.IncludeAll
		for _, caseID := range run.CaseIDs {
			included = included || caseID == ids[1]
		}
		if !included {
			writeError(w, http.StatusBadRequest, "No (active) test found for the run/case combination.")
			return
		}

		record := ResultRecord{RunID: ids[0], CaseID: ids[1], NewResult: payload}
		s.results = append(s.results, record)
		writeJSON(w, http.StatusOK, testrail.Result{
			ID:       s.id(),
			StatusID: payload.StatusID,
			Comment:  payload.Comment,
			Elapsed:  payload.Elapsed,
		})
		return
	}
	writeError(w, http.StatusBadRequest, "Field :run_id is not a valid test run.")
}

func (s *Server) project(ids []int) (testrail.Project, bool) {
	if len(ids) != 1 {
		return testrail.Project{}, false
	}
	for _, project := range s.projects {
		if project.ID == ids[0] {
			return project, true
		}
	}
	return testrail.Project{}, false
}

// suite resolves the suite of a project scoped request. An empty suiteID selects the first suite.
func (s *Server) suite(ids []int, suiteID string) (testrail.Suite, bool) {
	project, ok := s.project(ids)
	if !ok {
		return testrail.Suite{}, false
	}

	id, _ := strconv.Atoi(suiteID)
	for _, suite := range s.suites {
		if suite.ProjectID == project.ID && (suiteID == "" || suite.ID == id) {
			return suite, true
		}
	}
	return testrail.Suite{}, false
}

func (s *Server) caseInSuite(caseID, suiteID int) bool {
	for _, c := range s.cases {
		if c.ID == caseID && c.SuiteID == suiteID {
			return true
		}
	}
	return false
}

func writeList[T any](w http.ResponseWriter, pageSize int, endpoint string, params url.Values, key string, items []T) {
	if pageSize <= 0 {
		writeJSON(w, http.StatusOK, items)
		return
	}

	offset, _ := strconv.Atoi(params.Get("offset"))
	end := min(offset+pageSize, len(items))
	page := []T{}
	if offset < len(items) {
		page = items[offset:end]
	}

	var next *string
	if end < len(items) {
		link := "/api/v2/" + endpoint
		for _, filter := range []string{"suite_id", "section_id"} {
			if value := params.Get(filter); value != "" {
				link += "&" + filter + "=" + value
			}
		}
		link += fmt.Sprintf("&limit=%d&offset=%d", pageSize, end)
		next = &link
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"offset": offset,
		"limit":  pageSize,
		"size":   len(page),
		"_links": map[string]*string{"next": next, "prev": nil},
		key:      page,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
